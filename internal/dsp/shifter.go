package dsp

import "math"

// FrequencyShifter detunes a signal by a small fixed offset using
// single-sideband modulation: the allpass Hilbert pair supplies an analytic
// signal which is multiplied by a rotating phasor, and the real part is kept.
// Unlike a pitch shifter this moves every component by the same number of
// Hz, which is exactly what breaks a microphone-to-speaker feedback loop.
//
// Phase and filter memory carry across blocks. A zero shift bypasses the
// Hilbert path entirely so the shifter is a bit-exact identity.
type FrequencyShifter struct {
	sampleRate float64
	shiftHz    float64
	phase      float64
	phaseInc   float64
	hilbert    *hilbertPair
}

// NewFrequencyShifter creates a shifter at rest (zero shift).
func NewFrequencyShifter(sampleRate float64) *FrequencyShifter {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &FrequencyShifter{
		sampleRate: sampleRate,
		hilbert:    newHilbertPair(),
	}
}

// SetShiftHz updates the shift amount. Positive shifts up, negative down.
// Cheap enough to call once per buffer from the audio callback.
func (f *FrequencyShifter) SetShiftHz(hz float64) {
	if hz == f.shiftHz {
		return
	}
	f.shiftHz = hz
	f.phaseInc = 2 * math.Pi * hz / f.sampleRate
}

// ShiftHz returns the configured shift.
func (f *FrequencyShifter) ShiftHz() float64 { return f.shiftHz }

// ProcessSample shifts one sample.
func (f *FrequencyShifter) ProcessSample(x float32) float32 {
	if f.shiftHz == 0 {
		return x
	}

	re, im := f.hilbert.processSample(float64(x))
	sinOsc, cosOsc := math.Sincos(f.phase)
	out := re*cosOsc - im*sinOsc

	f.phase += f.phaseInc
	if f.phase >= 2*math.Pi {
		f.phase -= 2 * math.Pi
	} else if f.phase < 0 {
		f.phase += 2 * math.Pi
	}

	return float32(out)
}

// ProcessInPlace shifts buf in place.
func (f *FrequencyShifter) ProcessInPlace(buf []float32) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// Reset clears the phasor and all filter memory.
func (f *FrequencyShifter) Reset() {
	f.phase = 0
	f.hilbert.reset()
}
