package dsp

import (
	"math"
	"testing"
)

const gateTestRate = 1000.0

func feedGate(g *NoiseGate, level float32, n int) {
	for i := 0; i < n; i++ {
		g.ProcessSample(level)
	}
}

func TestGateStaysClosedOnSilence(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	for i := 0; i < 500; i++ {
		if out := g.ProcessSample(0); out != 0 {
			t.Fatalf("sample %d: expected silence, got %f", i, out)
		}
	}
	if g.Phase() != GateClosed {
		t.Fatalf("phase=%s want closed", g.Phase())
	}
}

func TestGateOpensWithinAttackTime(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0.01, 0.1, 0.7)

	// attack of 10 ms at 1 kHz is a 10 sample ramp
	feedGate(g, 0.5, 11)
	if g.Phase() != GateOpen {
		t.Fatalf("phase=%s want open", g.Phase())
	}
	if g.Gain() != 1 {
		t.Fatalf("gain=%f want 1", g.Gain())
	}
}

func TestGateGainRampsMonotonicallyWhileOpening(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0.05, 0.1, 0.7)

	prev := g.Gain()
	for i := 0; i < 60; i++ {
		g.ProcessSample(0.5)
		if g.Gain() < prev {
			t.Fatalf("sample %d: gain decreased %f -> %f while signal loud", i, prev, g.Gain())
		}
		prev = g.Gain()
	}
}

func TestGateClosesAfterSignalStops(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0.01, 0.1, 0.7)

	feedGate(g, 0.5, 50)
	if g.Phase() != GateOpen {
		t.Fatalf("setup: phase=%s want open", g.Phase())
	}

	// envelope decay plus the 100 ms release ramp
	feedGate(g, 0, 2000)
	if g.Phase() != GateClosed {
		t.Fatalf("phase=%s want closed", g.Phase())
	}
	if g.Gain() != 0 {
		t.Fatalf("gain=%f want 0", g.Gain())
	}
}

func TestGateReversalContinuesFromCurrentGain(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0.01, 0.5, 0.7)

	feedGate(g, 0.5, 50)

	// let it fall partway through the 500 sample release ramp
	for g.Phase() != GateClosing {
		g.ProcessSample(0)
	}
	feedGate(g, 0, 100)
	if g.Phase() != GateClosing {
		t.Fatalf("setup: phase=%s want closing", g.Phase())
	}
	mid := g.Gain()
	if mid <= 0 || mid >= 1 {
		t.Fatalf("setup: gain=%f want mid-ramp", mid)
	}

	g.ProcessSample(0.5)
	attackStep := 1 / (0.01 * gateTestRate)
	if g.Gain() < mid {
		t.Fatalf("gain jumped down on reversal: %f -> %f", mid, g.Gain())
	}
	if g.Gain() > mid+attackStep+1e-9 {
		t.Fatalf("gain jumped up on reversal: %f -> %f", mid, g.Gain())
	}
}

func TestGateZeroAttackOpensImmediately(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0, 0.1, 0.7)

	g.ProcessSample(0.5)
	if g.Phase() != GateOpen {
		t.Fatalf("phase=%s want open", g.Phase())
	}
	if g.Gain() != 1 {
		t.Fatalf("gain=%f want 1", g.Gain())
	}
}

func TestGateEnvelopeTracksLevel(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	g.Configure(0.01, 0.01, 0.1, 0.7)

	feedGate(g, 0.5, 200)
	if math.Abs(g.Envelope()-0.5) > 0.05 {
		t.Fatalf("envelope=%f want ~0.5", g.Envelope())
	}
}

func TestGateResetClearsState(t *testing.T) {
	g := NewNoiseGate(gateTestRate)
	feedGate(g, 0.5, 50)

	g.Reset()
	if g.Phase() != GateClosed || g.Gain() != 0 || g.Envelope() != 0 {
		t.Fatalf("reset left phase=%s gain=%f env=%f", g.Phase(), g.Gain(), g.Envelope())
	}
}
