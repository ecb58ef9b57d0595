package cluster

import (
	"encoding/binary"
	"log"
	"net"
	"sync"
)

// Connection is the hub's stream to the local controller.
type Connection struct {
	conn  *net.TCPConn
	mutex *sync.Mutex // synchronise writing functions
}

// writeCompressedFlipped streams one node's flipped cells for the turn.
// Empty turns send nothing.
func (conn *Connection) writeCompressedFlipped(flipped_data []byte) {

	if len(flipped_data) == 0 {
		return
	}

	conn.mutex.Lock()
	defer conn.mutex.Unlock()

	// Write type of message
	_, err := conn.conn.Write([]byte{EVENT_FLIPPED})
	if err != nil {
		log.Panic(err.Error())
	}

	// Write length of cell slice
	var length_bytes [8]byte
	binary.PutVarint(length_bytes[:], int64(len(flipped_data)))
	_, err = conn.conn.Write(length_bytes[:])
	if err != nil {
		log.Panic(err.Error())
	}

	// Write cell slice
	_, err = conn.conn.Write(flipped_data)
	if err != nil {
		log.Panic(err.Error())
	}
}

func (conn *Connection) writeEvent(event byte) {

	conn.mutex.Lock()
	defer conn.mutex.Unlock()

	// Write type of message
	_, err := conn.conn.Write([]byte{event})
	if err != nil {
		log.Panic(err.Error())
	}
}
