//go:build !sdl

package render

import (
	"errors"

	"github.com/guidoenr/micshift/internal/broadcast"
)

// ErrWindowClosed reports the user closed the SDL window.
var ErrWindowClosed = errors.New("render: window closed")

var errNoSDL = errors.New("render: built without sdl support, rebuild with -tags sdl")

// SDLView is unavailable without the sdl build tag.
type SDLView struct{}

func NewSDLView(width, height int, maxFreq float64) (*SDLView, error) {
	return nil, errNoSDL
}

func (v *SDLView) Draw(msg broadcast.Message) error { return errNoSDL }

func (v *SDLView) Close() error { return nil }

// SupportsSDL reports whether the binary was built with the sdl tag.
func SupportsSDL() bool { return false }
