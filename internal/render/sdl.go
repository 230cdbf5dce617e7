//go:build sdl

package render

import (
	"errors"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/guidoenr/micshift/internal/broadcast"
)

// ErrWindowClosed reports the user closed the SDL window.
var ErrWindowClosed = errors.New("render: window closed")

// SDLView draws the spectrum bars into a real window instead of the
// terminal. Enabled with -tags sdl.
type SDLView struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	width    int
	height   int
	inner    *Renderer
}

// NewSDLView opens a window sized width x height pixels.
func NewSDLView(width, height int, maxFreq float64) (*SDLView, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	window, err := sdl.CreateWindow(
		"micshift",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, err
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, err
	}
	v := &SDLView{
		window:   window,
		renderer: renderer,
		width:    width,
		height:   height,
		inner:    New(width/8, height, maxFreq, false),
	}
	return v, nil
}

// Draw renders one message and presents it. Returns ErrWindowClosed when
// the user quits the window.
func (v *SDLView) Draw(msg broadcast.Message) error {
	v.inner.ensureColumns(msg.SampleRate, msg.FFTSize)
	levels := v.inner.columnLevels(msg.OutputSpectrum, msg.SampleRate, msg.FFTSize)

	frameMax := 1e-6
	for _, l := range levels {
		if l > frameMax {
			frameMax = l
		}
	}
	v.inner.peak *= 0.98
	if frameMax > v.inner.peak {
		v.inner.peak = frameMax
	}

	if err := v.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := v.renderer.Clear(); err != nil {
		return err
	}

	cols := len(levels)
	colW := int32(v.width / max(1, cols))
	for x, level := range levels {
		h := int32(clamp01(level/v.inner.peak) * float64(v.height))
		rr, gg, bb := bandRGB(v.inner.colFreqs[x])
		_ = v.renderer.SetDrawColor(rr, gg, bb, 255)
		rect := sdl.Rect{
			X: int32(x) * colW,
			Y: int32(v.height) - h,
			W: colW - 1,
			H: h,
		}
		_ = v.renderer.FillRect(&rect)
	}
	v.renderer.Present()

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if _, ok := event.(*sdl.QuitEvent); ok {
			return ErrWindowClosed
		}
	}
	return nil
}

// Close destroys the window and SDL state.
func (v *SDLView) Close() error {
	if v.renderer != nil {
		v.renderer.Destroy()
		v.renderer = nil
	}
	if v.window != nil {
		v.window.Destroy()
		v.window = nil
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return true }

func bandRGB(freqHz float64) (uint8, uint8, uint8) {
	switch bandColor(freqHz) {
	case 33:
		return 40, 120, 255
	case 51:
		return 60, 220, 230
	case 46:
		return 60, 220, 80
	case 226:
		return 240, 220, 50
	default:
		return 240, 60, 50
	}
}
