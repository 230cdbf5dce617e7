package dsp

import (
	"testing"

	"github.com/guidoenr/micshift/internal/params"
)

func passthroughStore(t *testing.T) *params.Store {
	t.Helper()
	s := params.NewStore()
	if !s.SetVolume(1) {
		t.Fatal("set volume")
	}
	s.SetGateThreshold(0)
	s.SetAttackTime(0)
	s.SetFreqShiftHz(0)
	return s
}

func TestChainPassesSignalThroughWhenNeutral(t *testing.T) {
	store := passthroughStore(t)
	c := NewChain(store, 1000, 8, 4)

	in := []float32{0.1, -0.2, 0.3, -0.4, 0.5, -0.6, 0.7, -0.8}
	out := make([]float32, len(in))
	c.Process(in, out)

	// zero threshold with instant attack opens the gate on the first sample
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: %f != %f", i, out[i], in[i])
		}
	}
	if c.GatePhase() != GateOpen {
		t.Fatalf("phase=%s want open", c.GatePhase())
	}
}

func TestChainAppliesVolume(t *testing.T) {
	store := passthroughStore(t)
	store.SetVolume(0.5)
	c := NewChain(store, 1000, 4, 4)

	in := []float32{0.8, -0.8, 0.4, -0.4}
	out := make([]float32, len(in))
	c.Process(in, out)

	for i := range in {
		if want := in[i] * 0.5; out[i] != want {
			t.Fatalf("sample %d: %f want %f", i, out[i], want)
		}
	}
}

func TestChainClipsToUnitRange(t *testing.T) {
	store := passthroughStore(t)
	c := NewChain(store, 1000, 4, 4)

	in := []float32{2, -2, 1.5, -1.5}
	out := make([]float32, len(in))
	c.Process(in, out)

	for i, y := range out {
		if y > 1 || y < -1 {
			t.Fatalf("sample %d: %f outside [-1, 1]", i, y)
		}
	}
}

func TestChainZeroPadsShortInput(t *testing.T) {
	store := passthroughStore(t)
	c := NewChain(store, 1000, 8, 4)

	in := []float32{0.5, 0.5}
	out := []float32{9, 9, 9, 9}
	c.Process(in, out)

	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d: %f want 0", i, out[i])
		}
	}
}

func TestChainTapsInputAndOutput(t *testing.T) {
	store := passthroughStore(t)
	c := NewChain(store, 1000, 4, 4)

	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := make([]float32, 4)
	c.Process(in, out)

	f1 := <-c.Tap().Frames()
	f2 := <-c.Tap().Frames()
	if f1.Source != SourceInput || f2.Source != SourceOutput {
		t.Fatalf("sources=%s,%s want input,output", f1.Source, f2.Source)
	}
	if f1.Samples[0] != 0.1 {
		t.Fatalf("input tap=%v", f1.Samples)
	}
	c.Tap().Release(f1)
	c.Tap().Release(f2)
}

func TestChainSilenceTapsOutputStream(t *testing.T) {
	store := params.NewStore()
	c := NewChain(store, 1000, 4, 4)

	out := []float32{1, 1, 1, 1}
	c.Silence(out)

	for i, y := range out {
		if y != 0 {
			t.Fatalf("sample %d: %f want 0", i, y)
		}
	}
	f := <-c.Tap().Frames()
	if f.Source != SourceOutput {
		t.Fatalf("source=%s want output", f.Source)
	}
	c.Tap().Release(f)
}

func TestChainMutesWhenGateClosed(t *testing.T) {
	store := params.NewStore()
	store.SetGateThreshold(0.1)
	c := NewChain(store, 1000, 8, 4)

	// below the threshold the gate stays closed and output is silence
	in := []float32{0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01}
	out := make([]float32, len(in))
	c.Process(in, out)

	for i, y := range out {
		if y != 0 {
			t.Fatalf("sample %d: %f want 0", i, y)
		}
	}
	if c.GatePhase() != GateClosed {
		t.Fatalf("phase=%s want closed", c.GatePhase())
	}
}
