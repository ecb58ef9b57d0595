package cluster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/rpc"
	"sort"
	"strconv"
	"sync"
	"time"

	"uk.ac.bris.cs/tilelife/torus"
)

// Node is a registered tile node.
type Node struct {
	addr   string
	conn   *net.TCPConn
	client *rpc.Client
}

// Hub owns the halo exchange: it assigns one tile to every node, routes
// the tagged pieces between generations, and streams flipped cells to the
// local controller. Collecting every node's reply is the generation
// barrier.
type Hub struct {
	cond       *sync.Cond
	local_conn *Connection
	event_chan chan byte
	hp         HubParams
	turn       int
	assigned   []Node       // node serving each rank
	outgoing   []torus.Halo // latest pieces cut by each rank

	nodes map[Node]struct{}
	mutex *sync.Mutex // synchronise access to available nodes

	flag sync.WaitGroup
}

func NewHub() *Hub {
	hub := &Hub{
		cond:  sync.NewCond(new(sync.Mutex)),
		nodes: make(map[Node]struct{}),
		mutex: new(sync.Mutex),
	}
	hub.flag.Add(1)
	return hub
}

// Init carves the grid into tiles, dispatches one to every registered
// node and starts the turn loop. The condition variable's lock is held
// from here until the loop ends, so a second controller blocks until the
// current run finishes.
func (hub *Hub) Init(hp HubParams, reply *struct{}) error {

	log.Printf("Init: %dx%dx%d-%d", hp.GridWidth, hp.GridWidth, hp.Turns, hp.Workers)

	// Wait for controller connection
	hub.cond.L.Lock()
	if hub.local_conn == nil {
		hub.cond.Wait()
	}

	// Reset hub instance status
	hub.hp = hp
	hub.turn = 0
	hub.event_chan = make(chan byte, 1)

	l, err := torus.TileEdge(hp.GridWidth, hp.Workers)
	if err != nil {
		hub.cond.L.Unlock()
		return err
	}

	// Every tile needs its own node
	nodes := hub.availableNodes()
	if len(nodes) != hp.Workers {
		hub.cond.L.Unlock()
		return fmt.Errorf("need exactly %d nodes, %d registered", hp.Workers, len(nodes))
	}
	hub.assigned = nodes

	// Decompress pixel data and carve it into per-tile chunks
	slab := torus.ToTiled(DecompressGrid(&hp), hp.GridWidth, l)

	// Dispatch tile data
	call_chan := make(chan *rpc.Call, hp.Workers)
	defer close(call_chan)
	replies := make([]InitReply, hp.Workers)
	for rank := 0; rank != hp.Workers; rank++ {
		np := NodeParams{
			Turns:       hp.Turns,
			Workers:     hp.Workers,
			GridWidth:   hp.GridWidth,
			Rank:        rank,
			Chunk:       slab[rank*l*l : (rank+1)*l*l],
			RenderLocal: hp.RenderLocal,
		}
		hub.assigned[rank].client.Go("Tile.Init", np, &replies[rank], call_chan)
	}

	// Check if all RPC calls succeeded. Drain every call so closing
	// call_chan cannot race a late reply.
	var init_err error
	for range hub.assigned {
		call := <-call_chan
		if call.Error != nil {
			init_err = call.Error
		}
	}
	if init_err != nil {
		hub.cond.L.Unlock()
		return init_err
	}

	// Collect the first outgoing pieces
	hub.outgoing = make([]torus.Halo, hp.Workers)
	for rank := 0; rank != hp.Workers; rank++ {
		hub.outgoing[rank] = replies[rank].Halos
	}

	// Create loop goroutine
	go hub.loop()

	return nil
}

func (hub *Hub) Resume(struct{}, *struct{}) error {

	log.Print("Resume")
	hub.event_chan <- EVENT_RESUME
	return nil
}

func (hub *Hub) Pause(struct{}, *struct{}) error {

	log.Print("Pause")
	hub.event_chan <- EVENT_PAUSE
	return nil
}

func (hub *Hub) Save(struct{}, *struct{}) error {

	log.Print("Save")
	hub.event_chan <- EVENT_SAVE
	return nil
}

func (hub *Hub) Quit(struct{}, *struct{}) error {

	log.Print("Quit")
	hub.event_chan <- EVENT_QUIT
	return nil
}

func (hub *Hub) Kill(struct{}, *struct{}) error {

	log.Print("Kill")
	hub.event_chan <- EVENT_KILL
	return nil
}

func (hub *Hub) loop() {

	defer hub.cond.L.Unlock()
	defer func() {
		if hub.local_conn != nil {
			hub.local_conn.conn.Close()
			log.Print("Connection closed: " + hub.local_conn.conn.RemoteAddr().String())
			hub.local_conn = nil
		}
	}()
	defer close(hub.event_chan)
	defer func() { recover() }()

	// Channels for asynchronous calls
	call_chan := make(chan *rpc.Call, hub.hp.Workers)
	defer close(call_chan)
	step_replies := make([]StepReply, hub.hp.Workers)

	// Evaluate all turns
	pause_flag := false
	for ; hub.turn != hub.hp.Turns; hub.turn++ {

		if hub.hp.Delay > 0 {
			time.Sleep(hub.hp.Delay)
		}

		// Route halo pieces: the piece rank nbrs[d] cut from its side
		// d.Opposite() fills slot d of this rank.
		for rank := 0; rank != hub.hp.Workers; rank++ {
			nbrs := torus.Neighbours(rank, hub.hp.Workers)
			args := StepArgs{}
			for d := torus.UpLeft; d <= torus.DownRight; d++ {
				args.Halos[d] = hub.outgoing[nbrs[d]][d.Opposite()]
			}
			step_replies[rank] = StepReply{}
			hub.assigned[rank].client.Go("Tile.Step", args, &step_replies[rank], call_chan)
		}

		// Check if all RPC calls succeeded. A lost node is fatal for the
		// whole run, but every call is drained first so closing
		// call_chan cannot race a late reply.
		successful := true
		for range hub.assigned {
			call := <-call_chan
			if call.Error != nil {
				log.Print(call.Error.Error())
				successful = false
			}
		}
		if !successful {
			log.Panic("node lost during the run")
		}

		// Apply results
		for rank := 0; rank != hub.hp.Workers; rank++ {
			hub.outgoing[rank] = step_replies[rank].Halos
			hub.local_conn.writeCompressedFlipped(step_replies[rank].Flipped)
		}
		hub.local_conn.writeEvent(EVENT_TURN_COMPLETE)

		// Handle events from local controller
		for {
			select {
			case event := <-hub.event_chan:
				hub.local_conn.writeEvent(event)
				switch event {
				case EVENT_PAUSE:
					pause_flag = true
				case EVENT_RESUME:
					pause_flag = false
				case EVENT_QUIT:
					return
				case EVENT_KILL:
					hub.flag.Done()
					return
				}
			default:
			}
			if !pause_flag {
				break
			}
		}
	}
}

// AcceptController accepts stream connections from local controllers.
func (hub *Hub) AcceptController(listener net.Listener) {

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Panic(err.Error())
		}
		hub.cond.L.Lock()
		hub.local_conn = &Connection{conn: conn.(*net.TCPConn), mutex: new(sync.Mutex)}
		log.Printf("Connection to %s established", conn.RemoteAddr().String())
		hub.cond.Signal()
		hub.cond.L.Unlock()
	}
}

// AcceptNodes accepts registration requests from tile nodes. A node opens
// with the port its RPC service listens on and holds the connection for
// as long as it is available.
func (hub *Hub) AcceptNodes(listener net.Listener) {

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Panic(err.Error())
		}
		var port_bytes [8]byte
		if _, err := io.ReadFull(conn, port_bytes[:]); err != nil {
			log.Print("Node rejected: " + err.Error())
			conn.Close()
			continue
		}
		port, _ := binary.Varint(port_bytes[:])
		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
		client, err := rpc.Dial("tcp", addr)
		if err != nil {
			log.Print("Node rejected: " + err.Error())
			conn.Close()
			continue
		}
		go func() {
			// Append to available node list
			hub.mutex.Lock()
			node := Node{
				addr:   addr,
				conn:   conn.(*net.TCPConn),
				client: client,
			}
			hub.nodes[node] = struct{}{}
			hub.mutex.Unlock()
			// Blocking read on connection until connection is reset
			conn.SetReadDeadline(*new(time.Time))
			conn.Read(make([]byte, 1))
			hub.mutex.Lock()
			delete(hub.nodes, node)
			hub.mutex.Unlock()
			log.Printf("Node %s disconnected", addr)
		}()
		log.Printf("Node %s registered", addr)
	}
}

// availableNodes snapshots the registered nodes, ordered by address so
// rank assignment is stable.
func (hub *Hub) availableNodes() []Node {

	hub.mutex.Lock()
	nodes := make([]Node, 0, len(hub.nodes))
	for node := range hub.nodes {
		nodes = append(nodes, node)
	}
	hub.mutex.Unlock()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].addr < nodes[j].addr })
	return nodes
}

// shutdownNodes sends shutdown commands to all available nodes.
func (hub *Hub) shutdownNodes() {

	hub.mutex.Lock()
	for node := range hub.nodes {
		err := node.client.Call("Tile.Kill", struct{}{}, &struct{}{})
		if err != nil {
			log.Panic(err)
		}
	}
	hub.mutex.Unlock()
}

// RunHub serves the hub until a controller kills it.
func RunHub(rpcAddr, streamAddr, registerAddr string) {

	hub := NewHub()

	// Register RPC service
	server := rpc.NewServer()
	if err := server.Register(hub); err != nil {
		log.Panic(err.Error())
	}

	// Start RPC handling service
	listener, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	go server.Accept(listener)

	// Accept connection requests from local controllers
	stream_listener, err := net.Listen("tcp", streamAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	go hub.AcceptController(stream_listener)

	// Accept registration requests from tile nodes
	register_listener, err := net.Listen("tcp", registerAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	go hub.AcceptNodes(register_listener)

	hub.flag.Wait()
	hub.cond.L.Lock()
	hub.cond.L.Unlock()

	hub.shutdownNodes()
}
