package gol

import (
	"fmt"
	"log"
	"net/rpc"
	"os"
	"sync"
	"time"

	"uk.ac.bris.cs/tilelife/cluster"
	"uk.ac.bris.cs/tilelife/render"
	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

// RunRemote drives the simulation on a remote hub instead of in-process
// workers. The local side seeds the grid, mirrors it from the streamed
// flipped cells, and keeps the event and pgm semantics of Run. Params
// must validate; RunRemote panics otherwise.
func RunRemote(p Params, hubRPC, hubStream string, events chan<- Event, keyPresses <-chan rune) {
	if err := p.Validate(); err != nil {
		panic(err)
	}

	io := &ioState{
		params: p,
		cond:   sync.NewCond(new(sync.Mutex)),
	}
	io.cond.L.Lock()
	go startIo(io) // transfer ownership of lock to startIo

	remoteDistributor(p, io, hubRPC, hubStream, distributorChannels{
		events:     events,
		keyPresses: keyPresses,
	})
}

// remoteDistributor hands the simulation to the hub and relays its stream
// as events.
func remoteDistributor(p Params, io *ioState, hubRPC, hubStream string, c distributorChannels) {

	defer io.quit()

	// Create RPC client
	client, err := rpc.Dial("tcp", hubRPC)
	if err != nil {
		log.Panic(err.Error())
	}
	log.Printf("RPC server %s connected", hubRPC)

	n := p.GridWidth
	grid := seedGrid(p, io)

	// Establish connection for data streaming
	size_int := cluster.SizeOfInt(n)
	conn := NewConnection(hubStream, size_int)

	// Keep a local copy of the grid. The rows alias grid, so applying
	// flips through matrix keeps grid current.
	count := 0
	matrix := make([][]uint8, n)
	flipping_buffer := make([]util.Cell, 0, 1024)
	for y := 0; y != n; y++ {
		matrix[y] = grid[y*n : (y+1)*n]
		for x := 0; x != n; x++ {
			if matrix[y][x] != torus.Dead {
				count++
				flipping_buffer = append(flipping_buffer, util.Cell{X: x, Y: y})
			}
		}
	}

	// Prepare task
	var reply struct{}
	hp := cluster.HubParams{
		Turns:       p.Turns,
		Workers:     p.Workers,
		GridWidth:   n,
		Delay:       p.Delay,
		RenderLocal: p.Render == RenderLocal,
	}
	cluster.CompressGrid(&hp, grid, flipping_buffer)
	err = client.Call("Hub.Init", hp, &reply)
	if err != nil {
		log.Panic(err.Error())
	}
	log.Printf("Hub.Init: %dx%dx%d-%d", n, n, p.Turns, p.Workers)

	// Write file function
	write := func(turn int) {
		filename := fmt.Sprintf("%dx%dx%d", n, n, turn)
		operation := &ioOperation{
			command:  ioOutput,
			filename: filename,
			data:     grid,
		}
		io.sendIoRequest(operation)
		io.waitIoRequest() // Wait for last pending request completing
		c.events <- ImageOutputComplete{turn, filename}
	}

	var term *render.Terminal
	if p.Render == RenderGathered {
		l, _ := torus.TileEdge(n, p.Workers)
		term = render.NewTerminal(os.Stdout, n, l, p.Colour)
	}

	// Alive timer
	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	// Handle events
	turn := 0
	unconfirmed_count := count
	pause_flag := false
	c.events <- CellsFlipped{0, flipping_buffer}
	c.events <- StateChange{turn, Executing}
	if term != nil {
		term.Frame(grid, turn, p.Turns)
	}
	for turn != p.Turns {
		select {
		case <-ticker.C:
			c.events <- AliveCellsCount{turn, count}
		case char := <-c.keyPresses:
			switch char {
			case 's':
				err = client.Call("Hub.Save", struct{}{}, &struct{}{})
				if err != nil {
					log.Panic(err.Error())
				}
			case 'q':
				err = client.Call("Hub.Quit", struct{}{}, &struct{}{})
				if err != nil {
					log.Panic(err.Error())
				}
			case 'p':
				pause_flag = !pause_flag
				if pause_flag {
					err = client.Call("Hub.Pause", struct{}{}, &struct{}{})
					if err != nil {
						log.Panic(err.Error())
					}
				} else {
					err = client.Call("Hub.Resume", struct{}{}, &struct{}{})
					if err != nil {
						log.Panic(err.Error())
					}
				}
			case 'k':
				err = client.Call("Hub.Kill", struct{}{}, &struct{}{})
				if err != nil {
					log.Panic(err.Error())
				}
			}
		case flipped := <-conn.result_chan:
			for _, cell := range flipped {
				if matrix[cell.Y][cell.X] == torus.Dead {
					matrix[cell.Y][cell.X] = torus.Alive
					unconfirmed_count++
				} else {
					matrix[cell.Y][cell.X] = torus.Dead
					unconfirmed_count--
				}
			}
			c.events <- CellsFlipped{turn, flipped}
		case event := <-conn.event_chan:
			switch event {
			case cluster.EVENT_TURN_COMPLETE:
				count = unconfirmed_count
				turn++
				c.events <- TurnComplete{turn}
				if term != nil {
					term.Frame(grid, turn, p.Turns)
				}
				log.Printf("Turn result [%d] collected", turn)
			case cluster.EVENT_RESUME:
				c.events <- StateChange{turn, Executing}
				log.Print("Continuing")
			case cluster.EVENT_PAUSE:
				c.events <- StateChange{turn, Paused}
			case cluster.EVENT_SAVE:
				write(turn)
			case cluster.EVENT_KILL:
				log.Print("Remote system shutdowns")
				fallthrough
			case cluster.EVENT_QUIT:
				goto quit
			}
		}
	}

quit:
	cells := make([]util.Cell, 0, count)
	for i := 0; i != n; i++ {
		for j := 0; j != n; j++ {
			if grid[i*n+j] != torus.Dead {
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
