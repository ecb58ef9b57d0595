package cluster

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"net"
	"net/rpc"
	"os"
	"testing"
	"time"

	"uk.ac.bris.cs/tilelife/torus"
	"uk.ac.bris.cs/tilelife/util"
)

// Eat all incoming bytes
type null_writer struct{}

func (w null_writer) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func TestMain(m *testing.M) {
	log.SetOutput(null_writer{}) // Disable log
	os.Exit(m.Run())
}

// startHub assembles a hub on ephemeral loopback ports.
func startHub(t *testing.T) (hub *Hub, rpc_addr, stream_addr, register_addr string) {
	t.Helper()
	hub = NewHub()
	server := rpc.NewServer()
	if err := server.Register(hub); err != nil {
		t.Fatal(err)
	}
	rpc_listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go server.Accept(rpc_listener)
	stream_listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go hub.AcceptController(stream_listener)
	register_listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go hub.AcceptNodes(register_listener)
	t.Cleanup(func() {
		rpc_listener.Close()
		stream_listener.Close()
		register_listener.Close()
	})
	return hub, rpc_listener.Addr().String(), stream_listener.Addr().String(), register_listener.Addr().String()
}

// startNode serves one tile on an ephemeral port and registers it with
// the hub.
func startNode(t *testing.T, register_addr string) {
	t.Helper()
	tile := NewTile()
	server := rpc.NewServer()
	if err := server.Register(tile); err != nil {
		t.Fatal(err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go server.Accept(listener)
	conn, err := net.Dial("tcp", register_addr)
	if err != nil {
		t.Fatal(err)
	}
	var port_bytes [8]byte
	binary.PutVarint(port_bytes[:], int64(listener.Addr().(*net.TCPAddr).Port))
	if _, err := conn.Write(port_bytes[:]); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		listener.Close()
	})
}

func waitForNodes(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(hub.availableNodes()) != want {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d nodes registered", len(hub.availableNodes()), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func gliderGrid(n int) ([]uint8, []util.Cell) {
	cells := []util.Cell{{X: 3, Y: 1}, {X: 1, Y: 2}, {X: 3, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}}
	grid := make([]uint8, n*n)
	for _, c := range cells {
		grid[c.Y*n+c.X] = torus.Alive
	}
	return grid, cells
}

func stepReference(grid []uint8, n int) []uint8 {
	next := make([]uint8, n*n)
	for y := 0; y != n; y++ {
		for x := 0; x != n; x++ {
			sum := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dy == 0 && dx == 0 {
						continue
					}
					if grid[((y+dy+n)%n)*n+(x+dx+n)%n] != torus.Dead {
						sum++
					}
				}
			}
			if sum == 3 || (sum == 2 && grid[y*n+x] != torus.Dead) {
				next[y*n+x] = torus.Alive
			}
		}
	}
	return next
}

func TestHubRunsTiledSimulation(t *testing.T) {
	hub, rpc_addr, stream_addr, register_addr := startHub(t)
	for i := 0; i != 4; i++ {
		startNode(t, register_addr)
	}
	waitForNodes(t, hub, 4)

	client, err := rpc.Dial("tcp", rpc_addr)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := net.Dial("tcp", stream_addr)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	const n, turns = 8, 8
	grid, cells := gliderGrid(n)
	hp := HubParams{Turns: turns, Workers: 4, GridWidth: n}
	CompressGrid(&hp, grid, cells)
	if err := client.Call("Hub.Init", hp, &struct{}{}); err != nil {
		t.Fatal(err)
	}

	// Mirror the stream the way the controller does
	mirror := append([]uint8(nil), grid...)
	buffer := bufio.NewReader(stream)
	for completed := 0; completed != turns; {
		message, err := buffer.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		switch message {
		case EVENT_FLIPPED:
			var length_bytes [8]byte
			if _, err := io.ReadFull(buffer, length_bytes[:]); err != nil {
				t.Fatal(err)
			}
			length, _ := binary.Varint(length_bytes[:])
			data := make([]byte, length)
			if _, err := io.ReadFull(buffer, data); err != nil {
				t.Fatal(err)
			}
			for _, cell := range DecompressFlipped(data, hp.SizeInt) {
				i := cell.Y*n + cell.X
				if mirror[i] == torus.Dead {
					mirror[i] = torus.Alive
				} else {
					mirror[i] = torus.Dead
				}
			}
		case EVENT_TURN_COMPLETE:
			completed++
		default:
			t.Fatalf("unexpected message %d", message)
		}
	}

	want := grid
	for i := 0; i != turns; i++ {
		want = stepReference(want, n)
	}
	for i := range want {
		if mirror[i] != want[i] {
			t.Errorf("cell (%d, %d): got %d, want %d", i%n, i/n, mirror[i], want[i])
		}
	}
}

func TestHubChecksNodeCount(t *testing.T) {
	hub, rpc_addr, stream_addr, register_addr := startHub(t)
	startNode(t, register_addr)
	waitForNodes(t, hub, 1)

	client, err := rpc.Dial("tcp", rpc_addr)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := net.Dial("tcp", stream_addr)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	grid, cells := gliderGrid(8)
	hp := HubParams{Turns: 2, Workers: 4, GridWidth: 8}
	CompressGrid(&hp, grid, cells)
	if err := client.Call("Hub.Init", hp, &struct{}{}); err == nil {
		t.Fatal("Init should fail when the node count does not match the worker count")
	}
}

func TestHubChecksGeometry(t *testing.T) {
	_, rpc_addr, stream_addr, _ := startHub(t)

	client, err := rpc.Dial("tcp", rpc_addr)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := net.Dial("tcp", stream_addr)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	grid, cells := gliderGrid(9)
	hp := HubParams{Turns: 2, Workers: 4, GridWidth: 9}
	CompressGrid(&hp, grid, cells)
	if err := client.Call("Hub.Init", hp, &struct{}{}); err == nil {
		t.Fatal("Init should fail when the grid does not divide into square tiles")
	}
}
