package control

import (
	"context"
	"math"
	"sync"

	"github.com/eiannone/keyboard"
	"github.com/sirupsen/logrus"

	"github.com/guidoenr/micshift/internal/params"
)

// Event is a non-parameter command surfaced to the application.
type Event int

const (
	EventNone Event = iota
	EventQuit
	EventToggleVisualizer
	EventShowSettings
)

// field identifies the parameter currently selected for adjustment.
type field int

const (
	fieldNone field = iota
	fieldVolume
	fieldGateThreshold
	fieldAttack
	fieldRelease
	fieldSmoothing
	fieldFreqShift
	fieldBufferSize
)

func (f field) String() string {
	switch f {
	case fieldVolume:
		return "volume"
	case fieldGateThreshold:
		return "gate threshold"
	case fieldAttack:
		return "attack time"
	case fieldRelease:
		return "release time"
	case fieldSmoothing:
		return "smoothing"
	case fieldFreqShift:
		return "freq shift"
	case fieldBufferSize:
		return "buffer size"
	}
	return "none"
}

// Controller turns single-key commands into parameter store mutations.
// A letter selects a parameter, +/- (or the arrow keys) step it, Enter or
// Esc deselects. Mode switches and shutdown surface as Events.
//
// The controller runs on its own goroutine and may block freely on keyboard
// reads; it touches shared state only through the store's publish API.
type Controller struct {
	store    *params.Store
	log      *logrus.Entry
	events   chan Event
	selected field
}

// NewController creates a controller bound to the store.
func NewController(store *params.Store, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		store:  store,
		log:    log.WithField("component", "control"),
		events: make(chan Event, 4),
	}
}

// Events exposes quit/mode commands to the application loop.
func (c *Controller) Events() <-chan Event { return c.events }

// Run reads keys until the context is cancelled or quit is requested.
func (c *Controller) Run(ctx context.Context) error {
	if err := keyboard.Open(); err != nil {
		return err
	}

	closeOnce := &sync.Once{}
	closeKeyboard := func() {
		closeOnce.Do(func() { _ = keyboard.Close() })
	}
	defer closeKeyboard()

	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	for {
		char, key, err := keyboard.GetKey()
		if err != nil {
			// keyboard closed by shutdown
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if ev := c.HandleKey(char, key); ev != EventNone {
			select {
			case c.events <- ev:
			default:
			}
			if ev == EventQuit {
				return nil
			}
		}
	}
}

// HandleKey processes one key press and returns any resulting event.
// Exported so the mapping is testable without a terminal.
func (c *Controller) HandleKey(char rune, key keyboard.Key) Event {
	switch {
	case key == keyboard.KeyEsc && c.selected != fieldNone:
		c.selected = fieldNone
		return EventNone
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return EventQuit
	case key == keyboard.KeyEnter:
		c.selected = fieldNone
		return EventNone
	case key == keyboard.KeyArrowUp || char == '+' || char == '=':
		c.step(1)
		return EventNone
	case key == keyboard.KeyArrowDown || char == '-' || char == '_':
		c.step(-1)
		return EventNone
	}

	switch char {
	case 'q', 'Q':
		return EventQuit
	case 'v', 'V':
		c.selected = fieldVolume
	case 'n', 'N':
		c.selected = fieldGateThreshold
	case 'a', 'A':
		c.selected = fieldAttack
	case 'r', 'R':
		c.selected = fieldRelease
	case 's', 'S':
		c.selected = fieldSmoothing
	case 'f', 'F':
		c.selected = fieldFreqShift
	case 'b', 'B':
		c.selected = fieldBufferSize
	case 'd', 'D':
		c.store.Reset()
		c.selected = fieldNone
		c.log.Info("parameters reset to defaults")
		return EventShowSettings
	case 'i', 'I':
		return EventShowSettings
	case 't', 'T':
		return EventToggleVisualizer
	}
	return EventNone
}

// Selected returns a label for the parameter being adjusted, or "" when none
// is selected.
func (c *Controller) Selected() string {
	if c.selected == fieldNone {
		return ""
	}
	return c.selected.String()
}

// step nudges the selected parameter by one increment in the given
// direction. Every accepted step is exactly one validated store mutation.
func (c *Controller) step(dir float64) {
	p := c.store.Get()
	var changed bool
	switch c.selected {
	case fieldVolume:
		changed = c.store.SetVolume(stepped(p.Volume, dir*0.05))
	case fieldGateThreshold:
		changed = c.store.SetGateThreshold(stepped(p.GateThreshold, dir*0.005))
	case fieldAttack:
		changed = c.store.SetAttackTime(stepped(p.AttackTime, dir*0.005))
	case fieldRelease:
		changed = c.store.SetReleaseTime(stepped(p.ReleaseTime, dir*0.025))
	case fieldSmoothing:
		changed = c.store.SetSmoothing(stepped(p.Smoothing, dir*0.05))
	case fieldFreqShift:
		changed = c.store.SetFreqShiftHz(stepped(p.FreqShiftHz, dir*1))
	case fieldBufferSize:
		if dir > 0 {
			changed = c.store.SetBufferSize(p.BufferSize * 2)
		} else {
			changed = c.store.SetBufferSize(p.BufferSize / 2)
		}
	default:
		return
	}
	if changed {
		c.log.WithField("param", c.selected.String()).Debug("parameter adjusted")
	}
}

// stepped rounds an incremented value to milli precision so repeated steps
// land exactly on the range edges instead of accumulating float error.
func stepped(v, delta float64) float64 {
	return math.Round((v+delta)*1000) / 1000
}
