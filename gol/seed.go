package gol

import (
	"math/rand"
	"time"

	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

// gliderCells is the classic five-cell glider, placed near the top-left
// corner. On a torus it travels down-right forever.
var gliderCells = []util.Cell{
	{X: 3, Y: 1},
	{X: 1, Y: 2},
	{X: 3, Y: 2},
	{X: 2, Y: 3},
	{X: 3, Y: 3},
}

// seedGrid produces the initial n×n cell buffer before it is handed to
// the layout transform. Image seeding goes through the io goroutine.
func seedGrid(p Params, io *ioState) []uint8 {
	n := p.GridWidth
	switch p.Seed {
	case SeedGlider:
		grid := make([]uint8, n*n)
		for _, c := range gliderCells {
			grid[c.Y*n+c.X] = torus.Alive
		}
		return grid
	case SeedImage:
		operation := ioOperation{
			command:  ioInput,
			filename: p.ImagePath,
		}
		io.sendIoRequest(&operation)
		io.waitIoRequest()
		return operation.data
	default:
		seed := p.RandSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		grid := make([]uint8, n*n)
		for i := range grid {
			if rng.Intn(2) == 1 {
				grid[i] = torus.Alive
			}
		}
		return grid
	}
}
