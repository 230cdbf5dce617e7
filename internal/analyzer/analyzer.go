package analyzer

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/sirupsen/logrus"

	"github.com/guidoenr/micshift/internal/dsp"
)

// FFTSize is the analysis window length in samples. Spectra always carry
// FFTSize/2 magnitude bins regardless of the audio buffer size.
const FFTSize = 1024

// DefaultInterval is the analysis cadence (~10 spectra per second).
const DefaultInterval = 100 * time.Millisecond

// SpectrumFrame is one immutable magnitude spectrum for a single stream.
type SpectrumFrame struct {
	Bins       []float64
	SampleRate float64
	FFTSize    int
	Source     dsp.Source
}

// Pair carries the input and output spectra produced in one analysis cycle.
type Pair struct {
	Input  SpectrumFrame
	Output SpectrumFrame
}

// Config controls Analyzer construction.
type Config struct {
	Tap        *dsp.Tap
	SampleRate float64
	Interval   time.Duration
	Log        *logrus.Logger
}

// Analyzer keeps one sliding FFTSize-sample window per stream and emits a
// windowed magnitude spectrum pair at a fixed cadence, decoupled from the
// audio callback rate. It owns all FFT allocation and runs entirely off the
// real-time thread.
type Analyzer struct {
	tap        *dsp.Tap
	sampleRate float64
	interval   time.Duration
	log        *logrus.Entry

	winInput  []float32
	winOutput []float32
	hann      []float64
	scratch   []float64

	out     chan Pair
	skipped atomic.Uint64
}

// New creates an Analyzer reading from cfg.Tap.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	return &Analyzer{
		tap:        cfg.Tap,
		sampleRate: cfg.SampleRate,
		interval:   cfg.Interval,
		log:        cfg.Log.WithField("component", "analyzer"),
		winInput:   make([]float32, FFTSize),
		winOutput:  make([]float32, FFTSize),
		hann:       window.Hann(FFTSize),
		scratch:    make([]float64, FFTSize),
		out:        make(chan Pair, 4),
	}
}

// Frames exposes the stream of spectrum pairs. Pairs are dropped, not
// queued, when the consumer cannot keep up.
func (a *Analyzer) Frames() <-chan Pair { return a.out }

// Skipped reports how many malformed tap frames were discarded.
func (a *Analyzer) Skipped() uint64 { return a.skipped.Load() }

// Run drains the tap and emits one spectrum pair per interval until the
// context is cancelled.
func (a *Analyzer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-a.tap.Frames():
			a.ingest(f)
			a.tap.Release(f)
		case <-ticker.C:
			a.emit()
		}
	}
}

// ingest slides a tap frame into the matching stream window. Frames longer
// than the window contribute only their newest FFTSize samples; this is
// where excess history is decimated instead of queued.
func (a *Analyzer) ingest(f dsp.Frame) {
	if len(f.Samples) == 0 {
		a.skipped.Add(1)
		return
	}

	win := a.winInput
	if f.Source == dsp.SourceOutput {
		win = a.winOutput
	}

	s := f.Samples
	if len(s) >= len(win) {
		copy(win, s[len(s)-len(win):])
		return
	}
	copy(win, win[len(s):])
	copy(win[len(win)-len(s):], s)
}

func (a *Analyzer) emit() {
	pair := Pair{
		Input:  a.analyze(a.winInput, dsp.SourceInput),
		Output: a.analyze(a.winOutput, dsp.SourceOutput),
	}
	select {
	case a.out <- pair:
	default:
		// consumer behind; newest pair wins next cycle
	}
}

// analyze windows one stream and returns its magnitude spectrum.
func (a *Analyzer) analyze(win []float32, src dsp.Source) SpectrumFrame {
	for i, s := range win {
		a.scratch[i] = float64(s) * a.hann[i]
	}

	spec := fft.FFTReal(a.scratch)

	bins := make([]float64, FFTSize/2)
	for i := range bins {
		c := spec[i]
		bins[i] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}

	return SpectrumFrame{
		Bins:       bins,
		SampleRate: a.sampleRate,
		FFTSize:    FFTSize,
		Source:     src,
	}
}

// PeakFrequency returns the frequency of the largest-magnitude bin, skipping
// DC. Used by the visualizer status line.
func (f SpectrumFrame) PeakFrequency() float64 {
	best := 1
	for i := 2; i < len(f.Bins); i++ {
		if f.Bins[i] > f.Bins[best] {
			best = i
		}
	}
	if len(f.Bins) < 2 {
		return 0
	}
	return float64(best) * f.SampleRate / float64(f.FFTSize)
}

// BinFrequency returns the center frequency of bin i.
func (f SpectrumFrame) BinFrequency(i int) float64 {
	return float64(i) * f.SampleRate / float64(f.FFTSize)
}
