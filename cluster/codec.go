package cluster

import (
	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

// SizeOfInt is the minimum number of bytes representing every coordinate
// of an n wide grid.
func SizeOfInt(n int) int {
	size_int := 1
	for largest := 0x7F; largest < n; largest = (largest << 8) | 0xFF {
		size_int++
	}
	return size_int
}

// CompressGrid packs the initial grid into hp, choosing whichever of the
// two encodings is smaller: a bitmap of all cells, or the coordinate list
// of the alive ones.
func CompressGrid(hp *HubParams, grid []uint8, initials []util.Cell) {
	hp.SizeInt = SizeOfInt(hp.GridWidth)
	size_pixels := len(grid)/8 + 1
	size_initials := len(initials) * hp.SizeInt * 2
	if size_pixels <= size_initials {
		// Compressed pixel data will be sent
		hp.Pixels = make([]byte, size_pixels)
		for i := range grid {
			hp.Pixels[i/8] |= grid[i] & (1 << (i % 8))
		}
	} else {
		// Compressed positions of initial alive cells will be sent
		hp.Initials = make([]byte, size_initials)
		view := hp.Initials[:]
		for _, cell := range initials {
			for j := 0; j != hp.SizeInt; j++ {
				view[0] = byte(cell.X >> (j * 8))
				view = view[1:]
			}
			for j := 0; j != hp.SizeInt; j++ {
				view[0] = byte(cell.Y >> (j * 8))
				view = view[1:]
			}
		}
	}
}

// DecompressGrid rebuilds the flat row-major grid packed by CompressGrid.
func DecompressGrid(hp *HubParams) []uint8 {
	grid := make([]uint8, hp.GridWidth*hp.GridWidth)
	if hp.Pixels != nil {
		// Compressed pixel data
		for i := range grid {
			if hp.Pixels[i/8]&(1<<(i%8)) != 0 {
				grid[i] = torus.Alive
			}
		}
	} else {
		// Compressed positions of initial alive cells
		for i := 0; i != len(hp.Initials); i += hp.SizeInt * 2 {
			pos := util.Cell{}
			for j := 0; j != hp.SizeInt; j++ {
				pos.X |= int(hp.Initials[i+j]) << (j * 8)
			}
			for j := 0; j != hp.SizeInt; j++ {
				pos.Y |= int(hp.Initials[i+hp.SizeInt+j]) << (j * 8)
			}
			grid[pos.Y*hp.GridWidth+pos.X] = torus.Alive
		}
	}
	return grid
}

// CompressFlippedTo writes the flipped cells into dest and returns the
// unwritten remainder of dest.
func CompressFlippedTo(flipped []util.Cell, dest []byte, size_int int) []byte {
	for _, cell := range flipped {
		for j := 0; j != size_int; j++ {
			dest[0] = byte(cell.X >> (j * 8))
			dest = dest[1:]
		}
		for j := 0; j != size_int; j++ {
			dest[0] = byte(cell.Y >> (j * 8))
			dest = dest[1:]
		}
	}
	return dest
}

// DecompressFlipped rebuilds a slice of flipped cells.
func DecompressFlipped(data []byte, size_int int) []util.Cell {
	flipped := make([]util.Cell, len(data)/(size_int*2))
	flipped_index := 0
	for i := 0; i != len(data); i += size_int * 2 {
		for j := 0; j != size_int; j++ {
			flipped[flipped_index].X |= int(data[i+j]) << (j * 8)
		}
		for j := 0; j != size_int; j++ {
			flipped[flipped_index].Y |= int(data[i+size_int+j]) << (j * 8)
		}
		flipped_index++
	}
	return flipped
}
