package gol

import (
	"fmt"
	"os"
	"sync"
	"time"

	"uk.ac.bris.cs/tilelife/render"
	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

type distributorChannels struct {
	events     chan<- Event
	keyPresses <-chan rune
}

type WorkerParams struct {
	p           Params
	tile        *torus.Tile       // Cells owned by this worker, carved from the shared slab
	nbrs        [8]int            // Torus neighbour ranks indexed by direction
	ex          *exchange         // Halo transport shared by all workers
	running     *bool             // Volatile variable to instruct routines to stop when set to false (read-write protected by condition variable)
	cond        *sync.Cond        // Condition variable for worker routines wait for distributor collecting results
	result_chan chan<- TurnResult // Result send to distributor after each turn
}

type TurnResult struct {
	count_diff int         // Difference in alive cell count
	flipped    []util.Cell // Cells flipped this turn in grid coordinates (worker-owned buffer, valid until next broadcast)
}

// distributor seeds the grid, divides it between workers and interacts
// with the other goroutines.
func distributor(p Params, io *ioState, c distributorChannels) {

	defer io.quit()

	n := p.GridWidth
	l, err := torus.TileEdge(n, p.Workers)
	if err != nil {
		panic(err)
	}
	per_row := n / l

	// Load initial state
	grid := seedGrid(p, io)
	count := 0
	{
		flipping_buffer := make([]util.Cell, 0, 1024)
		for i := 0; i != n; i++ {
			for j := 0; j != n; j++ {
				if grid[i*n+j] != torus.Dead {
					count++
					flipping_buffer = append(flipping_buffer, util.Cell{X: j, Y: i})
				}
			}
		}
		c.events <- CellsFlipped{0, flipping_buffer}
	} // This scope removes flipping_buffer reference to help garbage collection

	// Carve the tiled slab into one chunk per worker. Workers step their
	// chunks in place, so reassembling the slab is only safe while every
	// worker is parked at the barrier.
	slab := torus.ToTiled(grid, n, l)
	tiles := make([]*torus.Tile, p.Workers)
	for rank := 0; rank != p.Workers; rank++ {
		tiles[rank] = torus.NewTile(rank, l, per_row, slab[rank*l*l:(rank+1)*l*l])
	}

	// Create goroutines
	running_flag := true // Exit all routines when set to false
	pause_flag := false  // Skip cond.broadcast when set to true
	cond := sync.NewCond(new(sync.Mutex))
	result_chan := make(chan TurnResult)
	result_buffer := make([]TurnResult, p.Workers)
	ex := newExchange(p.Workers)
	for rank := 0; rank != p.Workers; rank++ {
		wp := WorkerParams{
			p:           p,
			tile:        tiles[rank],
			nbrs:        torus.Neighbours(rank, p.Workers),
			ex:          ex,
			running:     &running_flag,
			cond:        cond,
			result_chan: result_chan,
		}
		go worker(wp)
		<-result_chan // Make sure goroutine is ready
	}

	var term *render.Terminal
	if p.Render == RenderGathered {
		term = render.NewTerminal(os.Stdout, n, l, p.Colour)
	}

	// Write file function
	write := func(turn int) {
		filename := fmt.Sprintf("%dx%dx%d", n, n, turn)
		operation := &ioOperation{
			command:  ioOutput,
			filename: filename,
			data:     torus.FromTiled(slab, n, l),
		}
		io.sendIoRequest(operation)
		io.waitIoRequest() // Wait for last pending request completing
		c.events <- ImageOutputComplete{turn, filename}
	}

	// Alive timer
	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	// Evaluate each turn
	turn := 0
	c.events <- StateChange{turn, Executing}
	for turn != p.Turns {
		if term != nil {
			term.Frame(torus.FromTiled(slab, n, l), turn, p.Turns)
		}
		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
		// Broadcast as critical section to prevent any routine not in waiting state before broadcast
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
		// Get results for current turn
		for worker_index := 0; worker_index != p.Workers; worker_index++ {
			result_buffer[worker_index] = <-result_chan
		}
		// All routines completed current turn
		merged := make([]util.Cell, 0, 1024)
		for worker_index := 0; worker_index != p.Workers; worker_index++ {
			count += result_buffer[worker_index].count_diff
			merged = append(merged, result_buffer[worker_index].flipped...)
		}
		c.events <- CellsFlipped{turn, merged}
		// Turn completed
		turn++
		c.events <- TurnComplete{turn}
		// Handle events
	handle:
		select {
		case <-ticker.C:
			c.events <- AliveCellsCount{turn, count}
		case char := <-c.keyPresses:
			switch char {
			case 's':
				write(turn)
			case 'q', 'k':
				goto quit
			case 'p':
				pause_flag = !pause_flag
				if pause_flag {
					c.events <- StateChange{turn, Paused}
				} else {
					c.events <- StateChange{turn, Executing}
				}
			}
		default:
		}
		if pause_flag {
			goto handle
		}
	}

quit:
	// Set flag variable to exit all worker routines
	cond.L.Lock()
	running_flag = false
	cond.Broadcast()
	cond.L.Unlock()
	final := torus.FromTiled(slab, n, l)
	cells := make([]util.Cell, 0, count)
	for i := 0; i != n; i++ {
		for j := 0; j != n; j++ {
			if final[i*n+j] != torus.Dead {
				cells = append(cells, util.Cell{X: j, Y: i})
			}
		}
	}
	c.events <- FinalTurnComplete{turn, cells}

	// Write file
	write(turn)

	c.events <- StateChange{turn, Quitting}

	// Close the channel to stop the SDL goroutine gracefully. Removing may cause deadlock.
	close(c.events)
}

func worker(wp WorkerParams) {
	// Wait until distributor routine finishes initialisation
	rank := wp.tile.Rank()
	turn := 0
	wp.cond.L.Lock()
	wp.result_chan <- TurnResult{} // notify distributor that this routine is ready
	wp.cond.Wait()
	wp.cond.L.Unlock()
	// Work for each turn
	for *wp.running {
		if wp.p.Render == RenderLocal {
			render.TileFrame(os.Stdout, wp.tile, turn)
		}
		// Cut all outgoing pieces before stepping any cell
		in := wp.ex.exchangeHalos(rank, wp.nbrs, wp.tile.Outgoing())
		flipped, count_diff := wp.tile.Step(in)
		turn++
		// Send turn result to distributor
		wp.cond.L.Lock()
		wp.result_chan <- TurnResult{
			count_diff: count_diff,
			flipped:    flipped,
		}
		// Wait for other workers completing current turn
		wp.cond.Wait()
		wp.cond.L.Unlock()
	}
}
