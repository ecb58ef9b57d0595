package sdl

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"uk.ac.bris.cs/tilelife/gol"
)

// Run owns the window until the simulation's event channel closes.
// Flipped cells drive the texture and keyboard input is forwarded as
// control runes. SDL requires the main goroutine, locked to its OS
// thread; keyPresses should be buffered so key forwarding never stalls
// the loop.
func Run(p gol.Params, events <-chan gol.Event, keyPresses chan<- rune) {
	w := NewWindow(int32(p.GridWidth))
	defer w.Destroy()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ticker.C:
			for event := w.PollEvent(); event != nil; event = w.PollEvent() {
				switch e := event.(type) {
				case *sdl.QuitEvent:
					keyPresses <- 'q'
				case *sdl.KeyboardEvent:
					if e.Type == sdl.KEYDOWN {
						switch e.Keysym.Sym {
						case sdl.K_s:
							keyPresses <- 's'
						case sdl.K_q:
							keyPresses <- 'q'
						case sdl.K_p:
							keyPresses <- 'p'
						case sdl.K_k:
							keyPresses <- 'k'
						}
					}
				}
			}
			if dirty {
				w.RenderFrame()
				dirty = false
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			switch e := event.(type) {
			case gol.CellsFlipped:
				for _, cell := range e.Cells {
					w.FlipPixel(cell)
				}
				dirty = true
			case gol.CellFlipped:
				w.FlipPixel(e.Cell)
				dirty = true
			case gol.FinalTurnComplete:
				w.RenderFrame()
				dirty = false
			case gol.StateChange:
				fmt.Println(e)
			case gol.AliveCellsCount:
				fmt.Println(e)
			case gol.ImageOutputComplete:
				fmt.Println(e)
			}
		}
	}
}
