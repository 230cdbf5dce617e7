package dsp

import "testing"

func TestTapRoundTrip(t *testing.T) {
	tap := NewTap(4, 4)
	tap.Push(SourceInput, []float32{1, 2, 3, 4})

	select {
	case f := <-tap.Frames():
		if f.Source != SourceInput {
			t.Fatalf("source=%s want input", f.Source)
		}
		if len(f.Samples) != 4 || f.Samples[0] != 1 || f.Samples[3] != 4 {
			t.Fatalf("samples=%v", f.Samples)
		}
		tap.Release(f)
	default:
		t.Fatal("expected a queued frame")
	}
}

func TestTapCopiesSamples(t *testing.T) {
	tap := NewTap(2, 4)
	src := []float32{1, 2}
	tap.Push(SourceInput, src)
	src[0] = 99

	f := <-tap.Frames()
	if f.Samples[0] != 1 {
		t.Fatalf("tap aliased the caller's buffer: %v", f.Samples)
	}
	tap.Release(f)
}

func TestTapDropsOldestUnderPressure(t *testing.T) {
	tap := NewTap(1, 2)

	// depth 2 queue plus 2 spare buffers: five pushes force recycling
	for i := 0; i < 5; i++ {
		tap.Push(SourceInput, []float32{float32(i)})
	}

	if tap.Dropped() == 0 {
		t.Fatal("expected drops under pressure")
	}

	// the survivors are the newest frames
	f := <-tap.Frames()
	if f.Samples[0] != 3 {
		t.Fatalf("oldest surviving frame=%v want [3]", f.Samples)
	}
	tap.Release(f)
	f = <-tap.Frames()
	if f.Samples[0] != 4 {
		t.Fatalf("newest surviving frame=%v want [4]", f.Samples)
	}
	tap.Release(f)
}

func TestTapNeverBlocks(t *testing.T) {
	tap := NewTap(8, 2)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			tap.Push(SourceOutput, make([]float32, 8))
		}
		close(done)
	}()
	<-done
}

func TestTapRejectsOversizeFrames(t *testing.T) {
	tap := NewTap(4, 2)
	tap.Push(SourceInput, make([]float32, 8))

	if tap.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", tap.Dropped())
	}
	select {
	case f := <-tap.Frames():
		t.Fatalf("unexpected frame queued: %v", f.Samples)
	default:
	}
}

func TestTapShortFramesKeepTheirLength(t *testing.T) {
	tap := NewTap(8, 2)
	tap.Push(SourceInput, []float32{1, 2})

	f := <-tap.Frames()
	if len(f.Samples) != 2 {
		t.Fatalf("len=%d want 2", len(f.Samples))
	}
	tap.Release(f)
}
