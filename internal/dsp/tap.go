package dsp

import "sync/atomic"

// Source tags which side of the processing chain a frame was copied from.
type Source int

const (
	SourceInput Source = iota
	SourceOutput
)

func (s Source) String() string {
	if s == SourceOutput {
		return "output"
	}
	return "input"
}

// Frame is a copy of one audio buffer handed to the analysis side.
type Frame struct {
	Source  Source
	Samples []float32
}

// Tap is the bounded queue between the audio callback and the spectral
// analyzer. All buffers are allocated up front; Push borrows one from the
// free list, copies into it, and enqueues. When no buffer is free the oldest
// queued frame is recycled (drop-oldest), so the producer has a bounded,
// allocation-free worst case and never blocks.
type Tap struct {
	frames   chan Frame
	free     chan []float32
	frameLen int
	dropped  atomic.Uint64
}

// NewTap preallocates depth queue slots plus enough spare buffers that the
// producer and consumer never contend for the same one.
func NewTap(frameLen, depth int) *Tap {
	if depth < 2 {
		depth = 2
	}
	t := &Tap{
		frames:   make(chan Frame, depth),
		free:     make(chan []float32, depth+2),
		frameLen: frameLen,
	}
	for i := 0; i < depth+2; i++ {
		t.free <- make([]float32, frameLen)
	}
	return t
}

// Push copies samples into the queue. Never blocks and never allocates;
// frames that cannot be accommodated are counted as dropped.
func (t *Tap) Push(src Source, samples []float32) {
	var buf []float32
	select {
	case buf = <-t.free:
	default:
		// No free buffer: steal the oldest queued frame.
		select {
		case old := <-t.frames:
			buf = old.Samples
			t.dropped.Add(1)
		default:
			t.dropped.Add(1)
			return
		}
	}

	if len(samples) > cap(buf) {
		// Frame longer than the configured session length; cannot copy
		// without allocating.
		t.dropped.Add(1)
		t.recycle(buf)
		return
	}

	buf = buf[:len(samples)]
	copy(buf, samples)

	f := Frame{Source: src, Samples: buf}
	select {
	case t.frames <- f:
		return
	default:
	}

	// Queue full: evict the oldest frame to make room for the newest.
	select {
	case old := <-t.frames:
		t.dropped.Add(1)
		t.recycle(old.Samples)
	default:
	}
	select {
	case t.frames <- f:
	default:
		t.dropped.Add(1)
		t.recycle(buf)
	}
}

// Frames exposes the consumer side of the queue.
func (t *Tap) Frames() <-chan Frame { return t.frames }

// Release returns a consumed frame's buffer to the free list. Consumers must
// call it for every frame they receive.
func (t *Tap) Release(f Frame) {
	t.recycle(f.Samples)
}

// Dropped returns how many frames were discarded under pressure.
func (t *Tap) Dropped() uint64 { return t.dropped.Load() }

// FrameLen returns the configured session frame length.
func (t *Tap) FrameLen() int { return t.frameLen }

func (t *Tap) recycle(buf []float32) {
	select {
	case t.free <- buf[:cap(buf)]:
	default:
	}
}
