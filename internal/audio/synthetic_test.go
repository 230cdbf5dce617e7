package audio

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	calls    atomic.Int64
	lastLen  atomic.Int64
	sawSound atomic.Bool
}

func (p *countingProcessor) Process(in, out []float32) {
	p.calls.Add(1)
	p.lastLen.Store(int64(len(in)))
	for _, s := range in {
		if s != 0 {
			p.sawSound.Store(true)
			break
		}
	}
	copy(out, in)
}

func (p *countingProcessor) Silence(out []float32) {
	for i := range out {
		out[i] = 0
	}
}

func TestSyntheticDrivesProcessorAtBlockSize(t *testing.T) {
	proc := &countingProcessor{}
	s := NewSynthetic(8000, 64, proc)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	if proc.calls.Load() < 2 {
		t.Fatalf("calls=%d want at least 2", proc.calls.Load())
	}
	if proc.lastLen.Load() != 64 {
		t.Fatalf("block len=%d want 64", proc.lastLen.Load())
	}
	if !proc.sawSound.Load() {
		t.Fatal("generator produced only silence")
	}
}

func TestSyntheticDefaultsWhenUnconfigured(t *testing.T) {
	s := NewSynthetic(0, 0, &countingProcessor{})
	if s.SampleRate() != 48000 {
		t.Fatalf("sample rate=%f want 48000", s.SampleRate())
	}
	if s.BufferSize() != 512 {
		t.Fatalf("buffer size=%d want 512", s.BufferSize())
	}
}
