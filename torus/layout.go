package torus

import "fmt"

// TileEdge returns the edge length of the square tile each worker owns.
// It fails when workers is not a perfect square or when n does not split
// into whole tiles, the two configurations the simulation must refuse.
func TileEdge(n, workers int) (int, error) {
	side, ok := Side(workers)
	if !ok {
		return 0, fmt.Errorf("worker count %d is not a perfect square", workers)
	}
	if n%side != 0 {
		return 0, fmt.Errorf("grid width %d does not divide into %dx%d tiles", n, side, side)
	}
	return n / side, nil
}

// ToTiled rearranges a row-major n×n grid so that every l×l tile is one
// contiguous run of l² cells, tiles in row-major block order. The result
// splits into equal per-worker chunks: worker k owns tiled[k*l*l:(k+1)*l*l].
func ToTiled(grid []uint8, n, l int) []uint8 {
	tiled := make([]uint8, len(grid))
	perRow := n / l
	for i, v := range grid {
		row, col := i/n, i%n
		tile := (row/l)*perRow + col/l
		tiled[tile*l*l+(row%l)*l+col%l] = v
	}
	return tiled
}

// FromTiled is the exact inverse of ToTiled: it reassembles the row-major
// grid from the tile-blocked layout.
func FromTiled(tiled []uint8, n, l int) []uint8 {
	grid := make([]uint8, len(tiled))
	perRow := n / l
	area := l * l
	for i, v := range tiled {
		tile := i / area
		row := (tile/perRow)*l + (i%area)/l
		col := (tile%perRow)*l + (i%area)%l
		grid[row*n+col] = v
	}
	return grid
}
