package gol

import (
	"fmt"
	"sync"
	"time"

	"uk.ac.bris.cs/tilelife/torus"
)

// SeedMode selects the initial pattern of the grid.
type SeedMode int

const (
	SeedRandom SeedMode = iota // every cell alive with probability 1/2
	SeedGlider                 // a single glider near the top-left corner
	SeedImage                  // an n×n pgm file named by Params.ImagePath
)

// RenderMode selects how generations are displayed while the simulation runs.
type RenderMode int

const (
	RenderOff      RenderMode = iota
	RenderGathered            // reassemble the whole grid and draw one frame per turn
	RenderLocal               // every worker draws its own tile
)

// Params provides the details of how to run the simulation.
type Params struct {
	Turns     int
	Workers   int           // must be a perfect square
	GridWidth int           // the torus is GridWidth×GridWidth, minimum 8
	Delay     time.Duration // pause per generation
	Seed      SeedMode
	ImagePath string // pgm source for SeedImage
	RandSeed  int64  // PRNG seed for SeedRandom; 0 means time-based
	Render    RenderMode
	Colour    bool // colour gathered frames by owning tile
}

// Validate reports the first fatal configuration error: a worker count
// that is not a perfect square, a grid that does not split into whole
// square tiles, or a grid below the minimum width. A simulation must not
// start any worker when Validate fails.
func (p Params) Validate() error {
	if p.GridWidth < 8 {
		return fmt.Errorf("grid width %d is below the minimum of 8", p.GridWidth)
	}
	if _, err := torus.TileEdge(p.GridWidth, p.Workers); err != nil {
		return err
	}
	if p.Turns < 0 {
		return fmt.Errorf("turn count %d is negative", p.Turns)
	}
	if p.Seed == SeedImage && p.ImagePath == "" {
		return fmt.Errorf("image seeding needs an image path")
	}
	return nil
}

// Run starts the processing of the simulation. It initialises the io
// goroutine and the per-tile workers, and returns once every event has
// been sent and the events channel closed. Params must validate; Run
// panics otherwise.
func Run(p Params, events chan<- Event, keyPresses <-chan rune) {
	if err := p.Validate(); err != nil {
		panic(err)
	}

	io := &ioState{
		params: p,
		cond:   sync.NewCond(new(sync.Mutex)),
	}
	io.cond.L.Lock()
	go startIo(io) // transfer ownership of lock to startIo

	distributorChannels := distributorChannels{
		events:     events,
		keyPresses: keyPresses,
	}
	distributor(p, io, distributorChannels)
}
