package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/guidoenr/micshift/internal/broadcast"
	"github.com/guidoenr/micshift/internal/params"
)

// Renderer converts spectrum messages into terminal frames: one column of
// bar per character cell, color-coded by frequency band. It is refreshed at
// the analysis cadence (~10 fps).
type Renderer struct {
	width   int
	height  int
	useANSI bool

	minFreq float64
	maxFreq float64

	// running peak for auto-scaling bar heights
	peak float64

	colFreqs []float64
	heights  []int
	inputTop []int
}

// Frame contains the rendered lines and a status string.
type Frame struct {
	Lines  []string
	Status string
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

// New creates a Renderer. maxFreq is usually sampleRate/2.
func New(width, height int, maxFreq float64, useANSI bool) *Renderer {
	r := &Renderer{
		useANSI: useANSI,
		minFreq: 30,
		maxFreq: maxFreq,
		peak:    1e-6,
	}
	r.Resize(width, height)
	return r
}

// Resize updates the frame dimensions and invalidates the column cache.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width == r.width && height == r.height {
		return
	}
	r.width = width
	r.height = height
	r.colFreqs = nil
}

// Render draws the output spectrum as full bars and marks the raw input
// spectrum's level per column with a dim tick, so gating and shifting are
// visible at a glance.
func (r *Renderer) Render(msg broadcast.Message) Frame {
	if r.width <= 0 || r.height <= 0 {
		return Frame{}
	}
	r.ensureColumns(msg.SampleRate, msg.FFTSize)

	outLevels := r.columnLevels(msg.OutputSpectrum, msg.SampleRate, msg.FFTSize)
	inLevels := r.columnLevels(msg.InputSpectrum, msg.SampleRate, msg.FFTSize)

	// auto-gain follows the loudest column with a slow falloff
	frameMax := 1e-6
	for _, v := range outLevels {
		if v > frameMax {
			frameMax = v
		}
	}
	for _, v := range inLevels {
		if v > frameMax {
			frameMax = v
		}
	}
	r.peak *= 0.98
	if frameMax > r.peak {
		r.peak = frameMax
	}

	cells := float64(r.height * (len(barGlyphs) - 1))
	for x := 0; x < r.width; x++ {
		r.heights[x] = int(clamp01(outLevels[x]/r.peak) * cells)
		r.inputTop[x] = r.height - 1 - int(clamp01(inLevels[x]/r.peak)*float64(r.height-1))
	}

	lines := make([]string, r.height)
	for y := 0; y < r.height; y++ {
		var b strings.Builder
		b.Grow(r.width * 8)
		lastColor := -1
		rowBase := (r.height - 1 - y) * (len(barGlyphs) - 1)
		for x := 0; x < r.width; x++ {
			glyph := ' '
			color := 240 // dim gray for input ticks
			if fill := r.heights[x] - rowBase; fill > 0 {
				if fill >= len(barGlyphs)-1 {
					fill = len(barGlyphs) - 1
				}
				glyph = barGlyphs[fill]
				color = bandColor(r.colFreqs[x])
			} else if y == r.inputTop[x] {
				glyph = '·'
			}
			if r.useANSI && glyph != ' ' && color != lastColor {
				b.WriteString(colorCode(color))
				lastColor = color
			}
			b.WriteRune(glyph)
		}
		if r.useANSI {
			b.WriteString(resetANSI)
		}
		lines[y] = b.String()
	}

	return Frame{Lines: lines, Status: r.buildStatus(msg)}
}

// ensureColumns recomputes the log-spaced column center frequencies.
func (r *Renderer) ensureColumns(sampleRate, fftSize int) {
	if len(r.colFreqs) == r.width {
		return
	}
	r.colFreqs = make([]float64, r.width)
	r.heights = make([]int, r.width)
	r.inputTop = make([]int, r.width)

	maxF := r.maxFreq
	if sampleRate > 0 {
		maxF = float64(sampleRate) / 2
	}
	logMin := math.Log(r.minFreq)
	logMax := math.Log(maxF)
	for x := range r.colFreqs {
		t := float64(x) / math.Max(1, float64(r.width-1))
		r.colFreqs[x] = math.Exp(logMin + t*(logMax-logMin))
	}
}

// columnLevels folds FFT bins into per-column magnitudes, taking the peak
// bin inside each column's frequency span.
func (r *Renderer) columnLevels(bins []float64, sampleRate, fftSize int) []float64 {
	levels := make([]float64, r.width)
	if len(bins) == 0 || sampleRate <= 0 || fftSize <= 0 {
		return levels
	}
	binHz := float64(sampleRate) / float64(fftSize)
	for x := 0; x < r.width; x++ {
		lo := r.colFreqs[x]
		hi := r.maxFreq
		if x+1 < r.width {
			hi = r.colFreqs[x+1]
		}
		loBin := int(lo / binHz)
		hiBin := int(math.Ceil(hi / binHz))
		if hiBin <= loBin {
			hiBin = loBin + 1
		}
		if hiBin > len(bins) {
			hiBin = len(bins)
		}
		for i := loBin; i < hiBin && i < len(bins); i++ {
			if bins[i] > levels[x] {
				levels[x] = bins[i]
			}
		}
	}
	return levels
}

func (r *Renderer) buildStatus(msg broadcast.Message) string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString("in ")
	appendHz(&b, peakFrequency(msg.InputSpectrum, msg.SampleRate, msg.FFTSize))
	b.WriteString(" | out ")
	appendHz(&b, peakFrequency(msg.OutputSpectrum, msg.SampleRate, msg.FFTSize))
	b.WriteString(" | t=settings q=quit")
	return b.String()
}

func peakFrequency(bins []float64, sampleRate, fftSize int) float64 {
	if len(bins) < 2 || fftSize <= 0 {
		return 0
	}
	best := 1
	for i := 2; i < len(bins); i++ {
		if bins[i] > bins[best] {
			best = i
		}
	}
	return float64(best) * float64(sampleRate) / float64(fftSize)
}

func appendHz(b *strings.Builder, hz float64) {
	var buf [24]byte
	b.Write(strconv.AppendFloat(buf[:0], hz, 'f', 0, 64))
	b.WriteString(" Hz")
}

// SettingsLines renders the live parameter panel, one value bar per line,
// scaled to each parameter's documented range.
func SettingsLines(p params.Set, width int) []string {
	barWidth := 20
	if width > 0 && width < 60 {
		barWidth = 10
	}
	return []string{
		"================== Current Settings ==================",
		settingLine("Volume (0.0 - 1.0)......", p.Volume, 0, 1, 2, barWidth),
		settingLine("Noise Gate (0.0 - 0.1)..", p.GateThreshold, 0, 0.1, 3, barWidth),
		settingLine("Attack Time (0.0 - 0.1).", p.AttackTime, 0, 0.1, 3, barWidth),
		settingLine("Release Time (0.0 - 0.5)", p.ReleaseTime, 0, 0.5, 3, barWidth),
		settingLine("Smoothing (0.0 - 1.0)...", p.Smoothing, 0, 1, 2, barWidth),
		settingLine("Freq Shift (-20 - 20 Hz)", p.FreqShiftHz, -20, 20, 1, barWidth),
		settingLine("Buffer (64 - 8192)......", float64(p.BufferSize), 64, 8192, 0, barWidth),
		"======================================================",
	}
}

func settingLine(label string, v, lo, hi float64, precision, barWidth int) string {
	var b strings.Builder
	b.WriteString(label)
	b.WriteString(": ")
	var buf [24]byte
	b.Write(strconv.AppendFloat(buf[:0], v, 'f', precision, 64))
	b.WriteString(" ")
	b.WriteString(valueBar(v, lo, hi, barWidth))
	return b.String()
}

// valueBar renders a [███░░░] progress bar for a value within its range.
func valueBar(v, lo, hi float64, width int) string {
	t := clamp01((v - lo) / (hi - lo))
	filled := int(t * float64(width))
	var b strings.Builder
	b.Grow(width*3 + 2)
	b.WriteByte('[')
	for i := 0; i < filled; i++ {
		b.WriteRune('█')
	}
	for i := filled; i < width; i++ {
		b.WriteRune('░')
	}
	b.WriteByte(']')
	return b.String()
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
