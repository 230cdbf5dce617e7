package render

// Partial-height cells for the top of each bar, dimmest to brightest.
var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// Band boundaries for color coding, in Hz. Matches what the browser
// visualizer draws so both views read the same.
var bandEdges = []float64{250, 500, 2000, 6000}

// ANSI 256-color codes per band: low blue, low-mid cyan, mid green,
// high-mid yellow, high red.
var bandColors = []int{33, 51, 46, 226, 196}

// bandColor returns the ANSI color index for a frequency.
func bandColor(freqHz float64) int {
	for i, edge := range bandEdges {
		if freqHz < edge {
			return bandColors[i]
		}
	}
	return bandColors[len(bandColors)-1]
}
