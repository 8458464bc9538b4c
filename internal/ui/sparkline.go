package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the most recent width points scaled to their own
// min/max range, colored by the last value's load threshold. Use it for
// unbounded series such as byte rates.
func RenderSparkline(data []float64, width int) string {
	data = tail(data, width)
	if len(data) == 0 {
		return ""
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return renderLevels(data, lo, hi, lipgloss.NewStyle().Foreground(ColorInfo))
}

// RenderPercentSparkline draws percentages on a fixed 0-100 scale so a flat
// line at 5% reads differently from a flat line at 95%.
func RenderPercentSparkline(data []float64, width int) string {
	data = tail(data, width)
	if len(data) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(ThresholdColor(data[len(data)-1]))
	return renderLevels(data, 0, 100, style)
}

func tail(data []float64, width int) []float64 {
	if width <= 0 {
		return nil
	}
	if len(data) > width {
		return data[len(data)-width:]
	}
	return data
}

func renderLevels(data []float64, lo, hi float64, style lipgloss.Style) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)

	top := len(sparklineBlocks) - 1
	span := hi - lo
	for _, v := range data {
		level := top / 2
		if span > 0 {
			level = int((v - lo) / span * float64(top))
			level = max(0, min(top, level))
		}
		sb.WriteRune(sparklineBlocks[level])
	}
	return style.Render(sb.String())
}
