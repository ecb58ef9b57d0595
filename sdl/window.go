// Package sdl shows the running grid in a window, one texture pixel per
// cell.
package sdl

import (
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"uk.ac.bris.cs/tilelife/util"
)

const pixelScale = 4

type Window struct {
	width    int32
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   []byte
}

func NewWindow(width int32) *Window {
	err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS)
	util.Check(err)

	window, err := sdl.CreateWindow(
		"Tile Life",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width*pixelScale,
		width*pixelScale,
		sdl.WINDOW_SHOWN,
	)
	util.Check(err)

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	util.Check(err)

	err = renderer.SetLogicalSize(width, width)
	util.Check(err)

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, width, width)
	util.Check(err)

	return &Window{
		width:    width,
		window:   window,
		renderer: renderer,
		texture:  texture,
		pixels:   make([]byte, width*width*4),
	}
}

func (w *Window) Destroy() {
	_ = w.texture.Destroy()
	_ = w.renderer.Destroy()
	_ = w.window.Destroy()
	sdl.Quit()
}

// RenderFrame uploads the pixel buffer and presents it.
func (w *Window) RenderFrame() {
	err := w.texture.Update(nil, unsafe.Pointer(&w.pixels[0]), int(w.width)*4)
	util.Check(err)
	err = w.renderer.Copy(w.texture, nil, nil)
	util.Check(err)
	w.renderer.Present()
}

// FlipPixel toggles the cell at the given grid position.
func (w *Window) FlipPixel(cell util.Cell) {
	i := (cell.Y*int(w.width) + cell.X) * 4
	w.pixels[i] = ^w.pixels[i]
	w.pixels[i+1] = ^w.pixels[i+1]
	w.pixels[i+2] = ^w.pixels[i+2]
	w.pixels[i+3] = 0xFF
}

// PollEvent returns the next pending window event, nil if there is none.
func (w *Window) PollEvent() sdl.Event {
	return sdl.PollEvent()
}
