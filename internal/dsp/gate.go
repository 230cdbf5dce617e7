package dsp

import "math"

// GatePhase identifies the noise gate state machine position.
type GatePhase int

const (
	GateClosed GatePhase = iota
	GateOpening
	GateOpen
	GateClosing
)

func (p GatePhase) String() string {
	switch p {
	case GateClosed:
		return "closed"
	case GateOpening:
		return "opening"
	case GateOpen:
		return "open"
	case GateClosing:
		return "closing"
	}
	return "unknown"
}

// peakFallTime is the time constant of the peak follower's exponential decay.
const peakFallTime = 0.05 // seconds

// NoiseGate is a per-sample envelope gate. The envelope tracks the rectified
// peak of the signal; crossing the threshold moves the gate through
// Closed -> Opening -> Open and back through Closing, ramping the gain
// linearly over the configured attack and release times. A reversal mid-ramp
// continues from the current gain, so the gain never jumps.
//
// The gate owns all its state and must only be used from the audio thread.
// It never errors: the worst it can produce is silence.
type NoiseGate struct {
	sampleRate float64

	threshold float64
	attack    float64
	release   float64
	smoothing float64

	peakDecay   float64
	attackStep  float64
	releaseStep float64

	phase GatePhase
	peak  float64
	env   float64
	gain  float64
}

// NewNoiseGate creates a closed gate for the given sample rate.
func NewNoiseGate(sampleRate float64) *NoiseGate {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	g := &NoiseGate{
		sampleRate: sampleRate,
		peakDecay:  math.Exp(-1 / (peakFallTime * sampleRate)),
		attack:     -1,
		release:    -1,
	}
	g.Configure(0.01, 0.01, 0.1, 0.7)
	return g
}

// Configure applies a parameter snapshot. It allocates nothing and only
// recomputes ramp steps for values that actually changed, so the audio
// callback can call it every buffer.
func (g *NoiseGate) Configure(threshold, attack, release, smoothing float64) {
	g.threshold = threshold
	g.smoothing = smoothing
	if attack != g.attack {
		g.attack = attack
		g.attackStep = rampStep(attack, g.sampleRate)
	}
	if release != g.release {
		g.release = release
		g.releaseStep = rampStep(release, g.sampleRate)
	}
}

// rampStep converts a ramp duration into per-sample gain delta. A zero
// duration completes the ramp in a single sample.
func rampStep(seconds, rate float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return 1 / (seconds * rate)
}

// ProcessSample gates one sample, advancing the envelope and the state
// machine, and returns the attenuated sample.
func (g *NoiseGate) ProcessSample(x float32) float32 {
	ax := float64(x)
	if ax < 0 {
		ax = -ax
	}

	g.peak *= g.peakDecay
	if ax > g.peak {
		g.peak = ax
	}
	g.env = g.env*g.smoothing + g.peak*(1-g.smoothing)

	above := g.env > g.threshold
	switch g.phase {
	case GateClosed:
		if above {
			g.phase = GateOpening
		}
	case GateOpening:
		if !above {
			g.phase = GateClosing
		}
	case GateOpen:
		if !above {
			g.phase = GateClosing
		}
	case GateClosing:
		if above {
			g.phase = GateOpening
		}
	}

	switch g.phase {
	case GateOpening:
		g.gain += g.attackStep
		if g.gain >= 1 {
			g.gain = 1
			g.phase = GateOpen
		}
	case GateClosing:
		g.gain -= g.releaseStep
		if g.gain <= 0 {
			g.gain = 0
			g.phase = GateClosed
		}
	case GateOpen:
		g.gain = 1
	case GateClosed:
		g.gain = 0
	}

	return x * float32(g.gain)
}

// ProcessInPlace gates buf in place.
func (g *NoiseGate) ProcessInPlace(buf []float32) {
	for i := range buf {
		buf[i] = g.ProcessSample(buf[i])
	}
}

// Phase returns the current state machine position.
func (g *NoiseGate) Phase() GatePhase { return g.phase }

// Gain returns the current gain multiplier in [0, 1].
func (g *NoiseGate) Gain() float64 { return g.gain }

// Envelope returns the smoothed envelope level.
func (g *NoiseGate) Envelope() float64 { return g.env }

// Reset returns the gate to Closed with a cleared envelope.
func (g *NoiseGate) Reset() {
	g.phase = GateClosed
	g.peak = 0
	g.env = 0
	g.gain = 0
}
