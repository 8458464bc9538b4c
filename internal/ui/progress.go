package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	barFilled = '█'
	barEmpty  = '░'
)

// RenderBar draws a usage bar followed by the percentage.
// percent is clamped to 0-100. Output format: ████████░░░░  67%
func RenderBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))

	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat(string(barFilled), filled) + strings.Repeat(string(barEmpty), width-filled)

	style := lipgloss.NewStyle().Foreground(ThresholdColor(percent))
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}
