package gol

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"net"
	"time"

	"uk.ac.bris.cs/tilelife/cluster"
	"uk.ac.bris.cs/tilelife/util"
)

// Connection is the controller's stream from the hub.
type Connection struct {
	conn        *net.TCPConn
	result_chan chan []util.Cell
	event_chan  chan byte
}

// NewConnection establishes the stream to the hub and starts decoding it.
func NewConnection(addr string, size_int int) *Connection {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Panic(err)
	}
	conn_obj := &Connection{
		conn:        conn.(*net.TCPConn),
		result_chan: make(chan []util.Cell),
		event_chan:  make(chan byte),
	}
	log.Printf("Connection to %s established", addr)
	go conn_obj.Monitor(size_int)
	return conn_obj
}

// Monitor repeatedly reads data from the connection until closed by the
// hub.
func (conn *Connection) Monitor(size_int int) {

	defer func() {
		conn.conn.Close()
		log.Printf("Connection to %s closed", conn.conn.RemoteAddr().String())
		close(conn.result_chan)
		close(conn.event_chan)
	}()

	conn.conn.SetReadDeadline(*new(time.Time))
	buffer := bufio.NewReader(conn.conn)

	for {
		message, err := buffer.ReadByte()
		if err != nil {
			if err == io.EOF {
				return
			}
			log.Panic(err)
		}
		switch message {
		case cluster.EVENT_FLIPPED:
			// Reading flipping data
			var length_bytes [8]byte
			_, err := io.ReadFull(buffer, length_bytes[:])
			if err != nil {
				log.Panic(err)
			}
			data_length, _ := binary.Varint(length_bytes[:])
			if data_length == 0 {
				conn.result_chan <- []util.Cell{}
			} else {
				flipped_data := make([]byte, data_length)
				_, err = io.ReadFull(buffer, flipped_data)
				if err != nil {
					log.Panic(err)
				}
				flipped := cluster.DecompressFlipped(flipped_data, size_int)
				conn.result_chan <- flipped
			}
		case cluster.EVENT_TURN_COMPLETE:
			fallthrough
		case cluster.EVENT_PAUSE:
			fallthrough
		case cluster.EVENT_RESUME:
			fallthrough
		case cluster.EVENT_SAVE:
			fallthrough
		case cluster.EVENT_QUIT:
			fallthrough
		case cluster.EVENT_KILL:
			conn.event_chan <- message
		default:
			log.Panic("unknown message type")
		}
	}
}
