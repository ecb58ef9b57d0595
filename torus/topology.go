// Package torus models the fixed toroidal worker grid: the 8-neighbour
// topology between tile owners, the row-major to tile-blocked layout
// transform, and the bordered stencil update a tile runs once its halo
// has arrived.
package torus

import "math"

// Dir identifies one of the eight halo directions. The value doubles as
// the message tag: a halo piece is always tagged with the slot it fills
// at the receiver, so Dir also names the slot of a bordered working copy.
type Dir int

// Directions in neighbour-table order. The order makes opposite pairs
// mirror images around the centre, which Opposite relies on.
const (
	UpLeft Dir = iota
	Up
	UpRight
	Left
	Right
	DownLeft
	Down
	DownRight
)

var dirNames = [8]string{
	"up-left", "up", "up-right", "left",
	"right", "down-left", "down", "down-right",
}

func (d Dir) String() string {
	if d < 0 || d > 7 {
		return "invalid"
	}
	return dirNames[d]
}

// Opposite returns the direction pointing back at the sender: the slot a
// piece sent towards d fills at the worker on that side.
func (d Dir) Opposite() Dir {
	return 7 - d
}

// Side returns the edge length of the worker torus and whether workers
// is a perfect square.
func Side(workers int) (int, bool) {
	if workers < 1 {
		return 0, false
	}
	side := int(math.Sqrt(float64(workers)))
	for side*side < workers {
		side++
	}
	return side, side*side == workers
}

// Neighbours returns the ranks of the eight workers surrounding rank on
// a √workers×√workers torus, indexed by Dir. Workers must be a perfect
// square. On small tori the same rank can occupy several directions
// (all eight are the caller itself when workers is 1); the tag-addressed
// exchange keeps those messages apart.
func Neighbours(rank, workers int) [8]int {
	side, ok := Side(workers)
	if !ok {
		panic("torus: worker count is not a perfect square")
	}
	row, col := rank/side, rank%side
	up := (row - 1 + side) % side
	down := (row + 1) % side
	left := (col - 1 + side) % side
	right := (col + 1) % side
	return [8]int{
		UpLeft:    up*side + left,
		Up:        up*side + col,
		UpRight:   up*side + right,
		Left:      row*side + left,
		Right:     row*side + right,
		DownLeft:  down*side + left,
		Down:      down*side + col,
		DownRight: down*side + right,
	}
}
