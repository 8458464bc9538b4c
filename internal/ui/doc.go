// Package ui provides the terminal styling shared by procmon's CLI output and
// its dashboard.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - healthy load, successful actions
//	ColorError     (red)    - critical load, failures
//	ColorWarning   (yellow) - elevated load, warnings
//	ColorInfo      (cyan)   - byte-rate graphs
//	ColorMuted     (gray)   - secondary text
//
// ThresholdColor maps a percentage onto green/yellow/red using WarnThreshold
// and CriticalThreshold. Use DisableColors() for --no-color.
//
// # Graphs
//
//	ui.RenderBar(67.5, 20)                 // ████████████░░░░░░░░  68%
//	ui.RenderPercentSparkline(cpu, 40)     // fixed 0-100 scale
//	ui.RenderSparkline(rates, 40)          // scaled to the visible window
//
// # Tables
//
// NewTable and RenderSimpleTable wrap the Bubbles table component with the
// shared styles. The dashboard uses the model directly; CLI commands render
// a static string.
package ui
