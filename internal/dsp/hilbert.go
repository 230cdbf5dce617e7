package dsp

// IIR allpass approximation of the analytic signal. Two parallel cascades of
// second-order allpass sections, one fed the input directly and one fed the
// input delayed by a sample, stay 90 degrees apart across the audio band.
// The section coefficients are Niemitalo's published quadrature design; each
// section realizes y[n] = c*(x[n] + y[n-2]) - x[n-2] with c = a*a.

var (
	// direct path: in-phase output
	hilbertReCoeffs = [4]float64{
		0.4021921162426,
		0.8561710882420,
		0.9722909545651,
		0.9952884791278,
	}
	// delayed path: quadrature output
	hilbertImCoeffs = [4]float64{
		0.6923878,
		0.9360654322959,
		0.9882295226860,
		0.9987488452737,
	}
)

type allpass2 struct {
	c  float64
	x1 float64
	x2 float64
	y1 float64
	y2 float64
}

func (a *allpass2) process(x float64) float64 {
	y := a.c*(x+a.y2) - a.x2
	a.x2, a.x1 = a.x1, x
	a.y2, a.y1 = a.y1, y
	return y
}

// hilbertPair produces an in-phase / quadrature sample pair. State persists
// across blocks, so consecutive buffers splice without discontinuity.
type hilbertPair struct {
	re   [4]allpass2
	im   [4]allpass2
	prev float64
}

func newHilbertPair() *hilbertPair {
	h := &hilbertPair{}
	for i := range h.re {
		h.re[i].c = hilbertReCoeffs[i] * hilbertReCoeffs[i]
		h.im[i].c = hilbertImCoeffs[i] * hilbertImCoeffs[i]
	}
	return h
}

// processSample returns (re, im) where im approximates the Hilbert transform
// of re.
func (h *hilbertPair) processSample(x float64) (re, im float64) {
	re = x
	for i := range h.re {
		re = h.re[i].process(re)
	}

	im = h.prev
	h.prev = x
	for i := range h.im {
		im = h.im[i].process(im)
	}

	return re, im
}

func (h *hilbertPair) reset() {
	for i := range h.re {
		h.re[i] = allpass2{c: h.re[i].c}
		h.im[i] = allpass2{c: h.im[i].c}
	}
	h.prev = 0
}
