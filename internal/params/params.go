package params

import (
	"math"
	"sync"
	"sync/atomic"
)

// Set is one immutable snapshot of every runtime-tunable parameter. A Set is
// published as a whole, so readers never observe a partially-updated mix of
// fields. Version increases by one per successful mutation.
type Set struct {
	Volume        float64 // output gain, 0..1
	GateThreshold float64 // noise gate envelope threshold, 0..0.1
	AttackTime    float64 // gate opening ramp, seconds, 0..0.1
	ReleaseTime   float64 // gate closing ramp, seconds, 0..0.5
	Smoothing     float64 // envelope smoothing factor, 0..1
	FreqShiftHz   float64 // feedback-prevention detune, -20..20 Hz
	BufferSize    int     // frames per audio callback, 64..8192
	Version       uint64
}

// Defaults is the tuning the app starts with.
func Defaults() Set {
	return Set{
		Volume:        0.8,
		GateThreshold: 0.01,
		AttackTime:    0.01,
		ReleaseTime:   0.1,
		Smoothing:     0.7,
		FreqShiftHz:   5,
		BufferSize:    512,
	}
}

// Store holds the live parameter set. Reads are a single atomic pointer load
// so the audio callback can snapshot parameters without ever waiting on a
// writer. Writers serialize on a mutex and publish a fresh copy.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Set]
}

// NewStore creates a Store seeded with Defaults.
func NewStore() *Store {
	s := &Store{}
	def := Defaults()
	s.cur.Store(&def)
	return s
}

// Get returns the current snapshot. Safe to call from any goroutine,
// including the real-time audio callback.
func (s *Store) Get() Set {
	return *s.cur.Load()
}

// Reset restores Defaults in a single publish.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Defaults()
	next.Version = s.cur.Load().Version + 1
	s.cur.Store(&next)
}

// publish copies the current set, applies mutate, and swaps the pointer.
// mutate reports whether it changed anything; unchanged sets are not
// republished.
func (s *Store) publish(mutate func(*Set) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.cur.Load()
	if !mutate(&next) {
		return false
	}
	next.Version++
	s.cur.Store(&next)
	return true
}

// SetVolume updates the output gain. Out-of-range or non-finite values are
// rejected and the previous value kept. Reports whether the stored value
// changed.
func (s *Store) SetVolume(v float64) bool {
	if !inRange(v, 0, 1) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.Volume == v {
			return false
		}
		p.Volume = v
		return true
	})
}

// SetGateThreshold updates the noise gate threshold.
func (s *Store) SetGateThreshold(v float64) bool {
	if !inRange(v, 0, 0.1) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.GateThreshold == v {
			return false
		}
		p.GateThreshold = v
		return true
	})
}

// SetAttackTime updates the gate opening ramp duration in seconds.
func (s *Store) SetAttackTime(v float64) bool {
	if !inRange(v, 0, 0.1) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.AttackTime == v {
			return false
		}
		p.AttackTime = v
		return true
	})
}

// SetReleaseTime updates the gate closing ramp duration in seconds.
func (s *Store) SetReleaseTime(v float64) bool {
	if !inRange(v, 0, 0.5) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.ReleaseTime == v {
			return false
		}
		p.ReleaseTime = v
		return true
	})
}

// SetSmoothing updates the envelope smoothing factor.
func (s *Store) SetSmoothing(v float64) bool {
	if !inRange(v, 0, 1) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.Smoothing == v {
			return false
		}
		p.Smoothing = v
		return true
	})
}

// SetFreqShiftHz updates the frequency detune. Negative values shift down.
func (s *Store) SetFreqShiftHz(v float64) bool {
	if !inRange(v, -20, 20) {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.FreqShiftHz == v {
			return false
		}
		p.FreqShiftHz = v
		return true
	})
}

// SetBufferSize updates the per-callback frame count. The new size takes
// effect when a stream is next opened; an active session keeps its length.
func (s *Store) SetBufferSize(n int) bool {
	if n < 64 || n > 8192 {
		return false
	}
	return s.publish(func(p *Set) bool {
		if p.BufferSize == n {
			return false
		}
		p.BufferSize = n
		return true
	})
}

func inRange(v, lo, hi float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= lo && v <= hi
}
