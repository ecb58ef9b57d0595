package cluster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"net/rpc"
	"os"
	"sync"
	"time"

	"uk.ac.bris.cs/tilelife/render"
	"uk.ac.bris.cs/tilelife/torus"
)

// Tile is the RPC service a node exposes. Each node serves exactly one
// tile of the torus; the hub owns the exchange, so Init and Step arrive
// strictly in turn order.
type Tile struct {
	np       NodeParams
	tile     *torus.Tile
	turn     int
	size_int int

	flag sync.WaitGroup
}

func NewTile() *Tile {
	tile := &Tile{}
	tile.flag.Add(1)
	return tile
}

// Init loads the node's chunk of the grid and returns the outgoing halo
// pieces for the first exchange.
func (t *Tile) Init(np NodeParams, reply *InitReply) error {

	log.Printf("Init: rank %d of %d (%dx%dx%d)",
		np.Rank, np.Workers, np.GridWidth, np.GridWidth, np.Turns)

	l, err := torus.TileEdge(np.GridWidth, np.Workers)
	if err != nil {
		return err
	}
	if len(np.Chunk) != l*l {
		return fmt.Errorf("chunk of %d cells does not fill a %dx%d tile", len(np.Chunk), l, l)
	}

	t.np = np
	t.turn = 0
	t.size_int = SizeOfInt(np.GridWidth)
	t.tile = torus.NewTile(np.Rank, l, np.GridWidth/l, np.Chunk)
	reply.Halos = t.tile.Outgoing()
	return nil
}

// Step advances the tile one generation from the routed halo pieces and
// returns the pieces cut from the new state.
func (t *Tile) Step(args StepArgs, reply *StepReply) error {

	if t.tile == nil {
		return errors.New("tile not initialised")
	}

	if t.np.RenderLocal {
		render.TileFrame(os.Stdout, t.tile, t.turn)
	}

	flipped, _ := t.tile.Step(args.Halos)
	t.turn++

	reply.Halos = t.tile.Outgoing()
	reply.Flipped = make([]byte, len(flipped)*t.size_int*2)
	CompressFlippedTo(flipped, reply.Flipped, t.size_int)
	return nil
}

func (t *Tile) Kill(struct{}, *struct{}) error {

	log.Print("Kill")
	t.flag.Done()
	return nil
}

// RunNode serves one tile on the given port (0 picks one) and keeps it
// registered with the hub until killed.
func RunNode(port int, hubRegister string) {

	tile := NewTile()

	// Register RPC service
	server := rpc.NewServer()
	if err := server.Register(tile); err != nil {
		log.Panic(err.Error())
	}

	// Start RPC handling service
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Panic(err.Error())
	}
	go server.Accept(listener)
	rpc_port := listener.Addr().(*net.TCPAddr).Port

	// Registering node to hub
	go func() {
		for {
			var conn net.Conn
			for {
				log.Print("Registering node to hub")
				conn, err = net.Dial("tcp", hubRegister)
				if err == nil {
					log.Print("Node registered")
					break
				}
				time.Sleep(time.Second * 1)
			}
			conn.(*net.TCPConn).SetKeepAlive(true)
			// Open with the port the RPC service listens on
			var port_bytes [8]byte
			binary.PutVarint(port_bytes[:], int64(rpc_port))
			if _, err = conn.Write(port_bytes[:]); err != nil {
				log.Panic(err.Error())
			}
			conn.SetReadDeadline(*new(time.Time))
			conn.Read(make([]byte, 1))
			log.Print("Hub disconnected")
			conn.Close()
		}
	}()

	tile.flag.Wait()
}
