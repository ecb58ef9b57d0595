// Package render draws generations as ANSI terminal frames: either the
// reassembled grid at the coordinating point, or a single worker's own
// tile.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"uk.ac.bris.cs/tilelife/torus"
)

const (
	cursorHome  = "\033[H"
	resetColour = "\033[0;39m"
	blackBack   = "\033[0;40m"
	whiteBack   = "\033[0;47m"
)

// Background colours cycled over tiles when per-tile colouring is on.
var tileColours = [...]string{
	"\033[48;5;1m",   // red
	"\033[48;5;2m",   // green
	"\033[48;5;3m",   // yellow
	"\033[48;5;4m",   // blue
	"\033[48;5;5m",   // pink
	"\033[48;5;6m",   // turquoise
	"\033[48;5;9m",   // orange
	"\033[48;5;87m",  // cyan
	"\033[48;5;218m", // rose
}

// Terminal renders full-grid frames. Every frame starts with a
// cursor-home escape so generations overdraw each other in place.
type Terminal struct {
	w      io.Writer
	n      int
	l      int
	colour bool
	buf    strings.Builder
}

// NewTerminal returns a renderer for an n×n grid split into l×l tiles.
func NewTerminal(w io.Writer, n, l int, colour bool) *Terminal {
	return &Terminal{w: w, n: n, l: l, colour: colour}
}

// Frame draws one generation: two spaces per cell, alive cells on a black
// background, dead cells on white or on the owning tile's colour.
func (t *Terminal) Frame(grid []uint8, turn, lastTurn int) {
	t.buf.Reset()
	t.buf.WriteString(cursorHome)
	for y := 0; y != t.n; y++ {
		for x := 0; x != t.n; x++ {
			back := whiteBack
			if t.colour {
				tile := (y/t.l)*(t.n/t.l) + x/t.l
				back = tileColours[tile%len(tileColours)]
			}
			if grid[y*t.n+x] != torus.Dead {
				t.buf.WriteString(blackBack)
			} else {
				t.buf.WriteString(back)
			}
			t.buf.WriteString("  ")
			t.buf.WriteString(back)
		}
		t.buf.WriteByte('\n')
	}
	t.buf.WriteString(resetColour)
	fmt.Fprintf(&t.buf, "Generation: %d|%d\n", turn, lastTurn)
	_, _ = io.WriteString(t.w, t.buf.String())
}

var tileFrameMutex sync.Mutex

// TileFrame prints one worker's own tile, uncoloured. Frames from
// concurrent workers interleave frame by frame, never inside one.
func TileFrame(w io.Writer, tile *torus.Tile, turn int) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "[tile %d] generation %d\n", tile.Rank(), turn)
	for y := 0; y != tile.Edge(); y++ {
		for _, v := range tile.Row(y) {
			if v != torus.Dead {
				buf.WriteByte('1')
			} else {
				buf.WriteByte('0')
			}
		}
		buf.WriteByte('\n')
	}
	tileFrameMutex.Lock()
	_, _ = io.WriteString(w, buf.String())
	tileFrameMutex.Unlock()
}
