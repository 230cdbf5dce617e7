package audio

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Synthetic drives a Processor with generated microphone-like blocks so the
// whole pipeline can run on machines without a usable sound card.
type Synthetic struct {
	sampleRate float64
	bufferSize int
	proc       Processor
	rng        *rand.Rand
	phaseLow   float64
	phaseHigh  float64
}

// NewSynthetic creates a generator at the given rate and block size.
func NewSynthetic(sampleRate float64, bufferSize int, proc Processor) *Synthetic {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Synthetic{
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		proc:       proc,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SampleRate returns the generator sample rate.
func (s *Synthetic) SampleRate() float64 {
	return s.sampleRate
}

// BufferSize returns the frames per generated block.
func (s *Synthetic) BufferSize() int {
	return s.bufferSize
}

// Run generates blocks at real-time pace until ctx is cancelled.
func (s *Synthetic) Run(ctx context.Context) {
	in := make([]float32, s.bufferSize)
	out := make([]float32, s.bufferSize)

	interval := time.Duration(float64(s.bufferSize) / s.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lowInc := 2 * math.Pi * 220 / s.sampleRate
	highInc := 2 * math.Pi * 1760 / s.sampleRate

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range in {
				v := 0.4*math.Sin(s.phaseLow) + 0.15*math.Sin(s.phaseHigh)
				v += (s.rng.Float64() - 0.5) * 0.02
				in[i] = float32(v)
				s.phaseLow += lowInc
				s.phaseHigh += highInc
			}
			s.phaseLow = math.Mod(s.phaseLow, 2*math.Pi)
			s.phaseHigh = math.Mod(s.phaseHigh, 2*math.Pi)
			s.proc.Process(in, out)
		}
	}
}
