package torus

import (
	"fmt"

	"uk.ac.bris.cs/tilelife/util"
)

// Alive and Dead are the two cell values. Alive is 255 so tiles, pgm
// snapshots and window textures share one representation.
const (
	Alive uint8 = 255
	Dead  uint8 = 0
)

// Halo holds the eight pieces exchanged each generation, indexed by Dir:
// four single-cell corners and four length-l border strips. An incoming
// halo is indexed by the slot it fills; an outgoing halo by the side of
// the tile it was cut from.
type Halo [8][]uint8

// NewHalo allocates the slot buffers for a tile of edge l.
func NewHalo(l int) Halo {
	var h Halo
	for d := UpLeft; d <= DownRight; d++ {
		if d == Up || d == Down || d == Left || d == Right {
			h[d] = make([]uint8, l)
		} else {
			h[d] = make([]uint8, 1)
		}
	}
	return h
}

// Tile is the l×l block of cells one worker owns exclusively. Its rows are
// carved from the chunk passed to NewTile, so an orchestrator that keeps
// the whole tile-blocked slab sees every update in place.
type Tile struct {
	rank     int
	edge     int
	originX  int // global column of cells[0][0]
	originY  int // global row of cells[0][0]
	cells    [][]uint8
	bordered [][]uint8 // (l+2)² working copy, rebuilt every Step
	out      Halo      // outgoing buffers, refilled every Outgoing
	flipped  []util.Cell
}

// NewTile carves an l×l tile over chunk (which must hold exactly l² cells)
// for the worker at the given rank on a perRow×perRow tile grid.
func NewTile(rank, l, perRow int, chunk []uint8) *Tile {
	if len(chunk) != l*l {
		panic("torus: tile chunk length does not match tile edge")
	}
	t := &Tile{
		rank:    rank,
		edge:    l,
		originX: (rank % perRow) * l,
		originY: (rank / perRow) * l,
		cells:   make([][]uint8, l),
		out:     NewHalo(l),
		flipped: make([]util.Cell, 0, 1024),
	}
	for y := 0; y != l; y++ {
		t.cells[y] = chunk[y*l : (y+1)*l]
	}
	scratch := make([]uint8, (l+2)*(l+2))
	t.bordered = make([][]uint8, l+2)
	for y := 0; y != l+2; y++ {
		t.bordered[y] = scratch[y*(l+2) : (y+1)*(l+2)]
	}
	return t
}

// Rank returns the owning worker's identifier.
func (t *Tile) Rank() int { return t.rank }

// Edge returns the tile edge length l.
func (t *Tile) Edge() int { return t.edge }

// Row exposes one row of the tile for rendering. The slice aliases the
// tile's cells and must not be written.
func (t *Tile) Row(y int) []uint8 { return t.cells[y] }

// Outgoing cuts the tile's own corners and border strips into the halo
// buffers and returns them, indexed by the side they came from. The piece
// on side d is destined for the neighbour in direction d, where it fills
// slot d.Opposite(). The buffers stay valid until the next Outgoing call;
// receivers consume them within the same generation, which the barrier
// guarantees.
func (t *Tile) Outgoing() Halo {
	l := t.edge
	t.out[UpLeft][0] = t.cells[0][0]
	t.out[UpRight][0] = t.cells[0][l-1]
	t.out[DownLeft][0] = t.cells[l-1][0]
	t.out[DownRight][0] = t.cells[l-1][l-1]
	copy(t.out[Up], t.cells[0])
	copy(t.out[Down], t.cells[l-1])
	for y := 0; y != l; y++ {
		t.out[Left][y] = t.cells[y][0]
		t.out[Right][y] = t.cells[y][l-1]
	}
	return t.out
}

// border rebuilds the (l+2)² working copy: the received halo around a
// snapshot of the tile's own cells. A halo slot of the wrong length is a
// protocol fault and panics rather than corrupting the border.
func (t *Tile) border(in Halo) {
	l := t.edge
	for d := UpLeft; d <= DownRight; d++ {
		want := 1
		if d == Up || d == Down || d == Left || d == Right {
			want = l
		}
		if len(in[d]) != want {
			panic(fmt.Sprintf("torus: halo slot %v holds %d cells, want %d", d, len(in[d]), want))
		}
	}
	b := t.bordered
	b[0][0] = in[UpLeft][0]
	b[0][l+1] = in[UpRight][0]
	b[l+1][0] = in[DownLeft][0]
	b[l+1][l+1] = in[DownRight][0]
	copy(b[0][1:l+1], in[Up])
	copy(b[l+1][1:l+1], in[Down])
	for y := 1; y != l+1; y++ {
		b[y][0] = in[Left][y-1]
		b[y][l+1] = in[Right][y-1]
		copy(b[y][1:l+1], t.cells[y-1])
	}
}

// Step advances the tile one generation using the received halo. Every
// new state is computed from the bordered snapshot, never from cells
// already updated this generation. It returns the cells that changed, in
// global coordinates, and the alive-count difference; the returned slice
// is reused by the next Step.
func (t *Tile) Step(in Halo) ([]util.Cell, int) {
	t.border(in)
	l := t.edge
	b := t.bordered
	t.flipped = t.flipped[:0]
	diff := 0
	for y := 1; y != l+1; y++ {
		for x := 1; x != l+1; x++ {
			sum := 0
			for _, v := range [8]uint8{
				b[y-1][x-1], b[y-1][x], b[y-1][x+1],
				b[y][x-1], b[y][x+1],
				b[y+1][x-1], b[y+1][x], b[y+1][x+1],
			} {
				if v != Dead {
					sum++
				}
			}
			next := Dead
			if sum == 3 || (sum == 2 && b[y][x] != Dead) {
				next = Alive
			}
			if next != b[y][x] {
				t.flipped = append(t.flipped, util.Cell{X: t.originX + x - 1, Y: t.originY + y - 1})
				if next == Alive {
					diff++
				} else {
					diff--
				}
			}
			t.cells[y-1][x-1] = next
		}
	}
	return t.flipped, diff
}
