package dsp

import "github.com/guidoenr/micshift/internal/params"

// Chain is the per-callback processing path: noise gate, frequency shift,
// volume, hard clip. It also taps copies of the raw input and final output
// for the spectral analyzer.
//
// Process is designed for the real-time audio callback: it performs no
// allocation, acquires no locks, and does no I/O. Parameters arrive through
// an atomic snapshot of the store, so a control-side update becomes audible
// within one buffer.
type Chain struct {
	store   *params.Store
	gate    *NoiseGate
	shifter *FrequencyShifter
	tap     *Tap
}

// NewChain builds a chain for one audio session. frameLen fixes the tap
// buffer size for the session; tapDepth bounds the analysis queue.
func NewChain(store *params.Store, sampleRate float64, frameLen, tapDepth int) *Chain {
	return &Chain{
		store:   store,
		gate:    NewNoiseGate(sampleRate),
		shifter: NewFrequencyShifter(sampleRate),
		tap:     NewTap(frameLen, tapDepth),
	}
}

// Process fills out with the corrected version of in. len(out) samples are
// always written; if in is shorter the tail is silence.
func (c *Chain) Process(in, out []float32) {
	p := c.store.Get()
	c.gate.Configure(p.GateThreshold, p.AttackTime, p.ReleaseTime, p.Smoothing)
	c.shifter.SetShiftHz(p.FreqShiftHz)

	c.tap.Push(SourceInput, in)

	n := len(in)
	if n > len(out) {
		n = len(out)
	}
	vol := float32(p.Volume)
	for i := 0; i < n; i++ {
		y := c.gate.ProcessSample(in[i])
		y = c.shifter.ProcessSample(y)
		y *= vol
		if y > 1 {
			y = 1
		} else if y < -1 {
			y = -1
		}
		out[i] = y
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}

	c.tap.Push(SourceOutput, out)
}

// Silence writes a silent frame to out and taps it, keeping the analyzer's
// output stream continuous through an underrun.
func (c *Chain) Silence(out []float32) {
	for i := range out {
		out[i] = 0
	}
	c.tap.Push(SourceOutput, out)
}

// Tap returns the analysis queue fed by Process.
func (c *Chain) Tap() *Tap { return c.tap }

// GatePhase reports the gate state. Only meaningful from the audio thread or
// after the stream has stopped.
func (c *Chain) GatePhase() GatePhase { return c.gate.Phase() }

// Reset clears gate and shifter state between sessions.
func (c *Chain) Reset() {
	c.gate.Reset()
	c.shifter.Reset()
}
