package gol

import "uk.ac.bris.cs/tilelife/torus"

// exchange is the in-process halo transport: one mailbox per worker with
// one buffered slot per direction tag. A slot holds at most one piece per
// generation and the barrier guarantees it was drained before its sender
// runs again, so the eight sends of a generation complete without
// blocking and the send-all-then-receive-all ordering cannot deadlock.
type exchange struct {
	boxes [][8]chan []uint8
}

func newExchange(workers int) *exchange {
	ex := &exchange{boxes: make([][8]chan []uint8, workers)}
	for rank := range ex.boxes {
		for slot := range ex.boxes[rank] {
			ex.boxes[rank][slot] = make(chan []uint8, 1)
		}
	}
	return ex
}

// send delivers a piece into the named slot of worker dst.
func (ex *exchange) send(dst int, slot torus.Dir, piece []uint8) {
	ex.boxes[dst][slot] <- piece
}

// recv blocks until the named slot of this worker holds a piece.
func (ex *exchange) recv(rank int, slot torus.Dir) []uint8 {
	return <-ex.boxes[rank][slot]
}

// exchangeHalos runs one generation of the protocol for one worker: issue
// all eight sends, then collect all eight slots. The piece cut from side
// d goes to the neighbour in direction d and fills that worker's opposite
// slot; the slot tag alone identifies each received piece, so no receive
// needs to know which rank sent it.
func (ex *exchange) exchangeHalos(rank int, nbrs [8]int, out torus.Halo) torus.Halo {
	for d := torus.UpLeft; d <= torus.DownRight; d++ {
		ex.send(nbrs[d], d.Opposite(), out[d])
	}
	var in torus.Halo
	for d := torus.UpLeft; d <= torus.DownRight; d++ {
		in[d] = ex.recv(rank, d)
	}
	return in
}
