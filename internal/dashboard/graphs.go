package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 and sets one bit per dot.
const brailleBase = '⠀'

// brailleDots maps [row][col] to the dot's bit offset.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// GraphScale selects how values map to dot height.
type GraphScale int

const (
	// ScalePercent plots on a fixed 0-100 range and colors columns by load.
	ScalePercent GraphScale = iota
	// ScaleAuto plots from zero to the largest visible value in one color.
	ScaleAuto
)

// RenderGraph draws data as a braille area graph of width characters by
// height rows. Each character holds two samples; short series are
// right-aligned so the newest sample is always at the right edge.
func RenderGraph(data []float64, width, height int, scale GraphScale, color lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	points := width * 2
	data = downsample(data, points)

	top := 100.0
	if scale == ScaleAuto {
		top = 0
		for _, v := range data {
			top = max(top, v)
		}
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colMax := make([]float64, width)

	totalDots := height * 4
	offset := points - len(data)
	for i, v := range data {
		col := (i + offset) / 2
		sub := (i + offset) % 2
		colMax[col] = max(colMax[col], v)

		dots := 0
		if top > 0 {
			dots = int(v / top * float64(totalDots))
			dots = max(0, min(totalDots, dots))
		}
		for d := 0; d < dots; d++ {
			row := height - 1 - d/4
			grid[row][col] |= rune(1) << brailleDots[3-d%4][sub]
		}
	}

	lines := make([]string, height)
	for r, row := range grid {
		var b strings.Builder
		for c, ch := range row {
			fg := color
			if scale == ScalePercent {
				fg = MetricColor(colMax[c])
			}
			b.WriteString(lipgloss.NewStyle().Foreground(fg).Render(string(ch)))
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}

// downsample shrinks data to at most size points, keeping the maximum of
// each bucket so short spikes stay visible.
func downsample(data []float64, size int) []float64 {
	if len(data) <= size {
		return data
	}

	out := make([]float64, size)
	bucket := float64(len(data)) / float64(size)
	for i := range out {
		start := int(float64(i) * bucket)
		end := min(len(data), int(float64(i+1)*bucket))
		if start >= end {
			start = end - 1
		}
		peak := data[start]
		for _, v := range data[start+1 : end] {
			peak = max(peak, v)
		}
		out[i] = peak
	}
	return out
}
