package control

import (
	"testing"

	"github.com/eiannone/keyboard"
	"github.com/stretchr/testify/assert"

	"github.com/guidoenr/micshift/internal/params"
)

func newTestController() (*Controller, *params.Store) {
	store := params.NewStore()
	return NewController(store, nil), store
}

func TestQuitKeys(t *testing.T) {
	c, _ := newTestController()
	assert.Equal(t, EventQuit, c.HandleKey('q', 0))
	assert.Equal(t, EventQuit, c.HandleKey(0, keyboard.KeyEsc))
	assert.Equal(t, EventQuit, c.HandleKey(0, keyboard.KeyCtrlC))
}

func TestEscDeselectsBeforeQuitting(t *testing.T) {
	c, _ := newTestController()
	c.HandleKey('v', 0)
	assert.Equal(t, "volume", c.Selected())

	assert.Equal(t, EventNone, c.HandleKey(0, keyboard.KeyEsc))
	assert.Equal(t, "", c.Selected())
	assert.Equal(t, EventQuit, c.HandleKey(0, keyboard.KeyEsc))
}

func TestFieldSelectionKeys(t *testing.T) {
	c, _ := newTestController()
	cases := map[rune]string{
		'v': "volume",
		'n': "gate threshold",
		'a': "attack time",
		'r': "release time",
		's': "smoothing",
		'f': "freq shift",
		'b': "buffer size",
	}
	for key, want := range cases {
		c.HandleKey(key, 0)
		assert.Equal(t, want, c.Selected(), "key %q", key)
	}
}

func TestStepAdjustsSelectedParameter(t *testing.T) {
	c, store := newTestController()

	c.HandleKey('v', 0)
	c.HandleKey('+', 0)
	assert.InDelta(t, 0.85, store.Get().Volume, 1e-9)
	c.HandleKey('-', 0)
	assert.InDelta(t, 0.8, store.Get().Volume, 1e-9)

	c.HandleKey('f', 0)
	c.HandleKey(0, keyboard.KeyArrowUp)
	assert.InDelta(t, 6, store.Get().FreqShiftHz, 1e-9)
	c.HandleKey(0, keyboard.KeyArrowDown)
	c.HandleKey(0, keyboard.KeyArrowDown)
	assert.InDelta(t, 4, store.Get().FreqShiftHz, 1e-9)
}

func TestBufferSizeStepsInPowersOfTwo(t *testing.T) {
	c, store := newTestController()

	c.HandleKey('b', 0)
	c.HandleKey('+', 0)
	assert.Equal(t, 1024, store.Get().BufferSize)
	c.HandleKey('-', 0)
	c.HandleKey('-', 0)
	assert.Equal(t, 256, store.Get().BufferSize)
}

func TestStepStopsAtRangeEdge(t *testing.T) {
	c, store := newTestController()

	c.HandleKey('v', 0)
	for i := 0; i < 10; i++ {
		c.HandleKey('+', 0)
	}
	assert.InDelta(t, 1.0, store.Get().Volume, 1e-9)

	before := store.Get().Version
	c.HandleKey('+', 0)
	assert.Equal(t, before, store.Get().Version, "out-of-range step must not publish")
}

func TestStepWithoutSelectionIsIgnored(t *testing.T) {
	c, store := newTestController()
	before := store.Get()
	c.HandleKey('+', 0)
	c.HandleKey('-', 0)
	assert.Equal(t, before, store.Get())
}

func TestResetKeyRestoresDefaultsAndShowsSettings(t *testing.T) {
	c, store := newTestController()

	c.HandleKey('v', 0)
	c.HandleKey('+', 0)

	ev := c.HandleKey('d', 0)
	assert.Equal(t, EventShowSettings, ev)
	assert.Equal(t, params.Defaults().Volume, store.Get().Volume)
	assert.Equal(t, "", c.Selected())
}

func TestInfoAndToggleKeys(t *testing.T) {
	c, _ := newTestController()
	assert.Equal(t, EventShowSettings, c.HandleKey('i', 0))
	assert.Equal(t, EventToggleVisualizer, c.HandleKey('t', 0))
}

func TestEnterDeselects(t *testing.T) {
	c, _ := newTestController()
	c.HandleKey('s', 0)
	c.HandleKey(0, keyboard.KeyEnter)
	assert.Equal(t, "", c.Selected())
}
