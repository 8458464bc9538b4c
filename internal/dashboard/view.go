package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/procmon/internal/ui"
)

// chromeHeight is the number of lines around the tab content: header, tab
// bar, status line, footer and the blank lines between them.
const chromeHeight = 9

const defaultWidth = 100

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.tab {
	case TabProcesses:
		b.WriteString(m.renderProcesses())
	case TabPerformance:
		b.WriteString(m.renderPerformance())
	case TabSystem:
		b.WriteString(m.renderSystem())
	case TabHistory:
		b.WriteString(m.renderHistory())
	case TabLog:
		b.WriteString(m.renderLog())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title bar with summary stats.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render("procmon")

	parts := []string{fmt.Sprintf("%d processes", len(m.all))}
	if m.hasSample {
		parts = append(parts,
			"CPU "+MetricStyle(m.sample.CPUPercent).Render(fmt.Sprintf("%.0f%%", m.sample.CPUPercent)),
			"MEM "+MetricStyle(m.sample.MemoryPercent).Render(fmt.Sprintf("%.0f%%", m.sample.MemoryPercent)))
	}
	parts = append(parts, "updated "+m.updatedText())

	stats := LabelStyle.Render(" | " + strings.Join(parts, " | "))
	header := HeaderStyle.Render(title + stats)
	if m.paused {
		header += " " + PausedStyle.Render(ui.SymbolPaused+" PAUSED")
	}
	return header
}

func (m Model) updatedText() string {
	if m.lastUpdate.IsZero() {
		return "never"
	}
	secs := int(time.Since(m.lastUpdate).Seconds())
	switch secs {
	case 0:
		return "just now"
	default:
		return fmt.Sprintf("%ds ago", secs)
	}
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.tab {
			tabs[i] = TabActiveStyle.Render(label)
		} else {
			tabs[i] = TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderProcesses() string {
	var search string
	switch {
	case m.filtering:
		search = m.search.View() + "\n"
	case m.filter != "":
		search = MutedStyle.Render(fmt.Sprintf("filter: %s (%d of %d, / to edit, esc to clear)",
			m.filter, len(m.processes), len(m.all))) + "\n"
	}

	if len(m.processes) == 0 {
		switch {
		case len(m.all) > 0:
			return search + LabelStyle.Render(fmt.Sprintf("No processes match '%s'.", m.filter))
		case m.paused:
			return search + LabelStyle.Render("Monitoring is paused. Press p to resume.")
		}
		return search + LabelStyle.Render("Waiting for the first process list...")
	}
	return search + m.table.View() + "\n" + MutedStyle.Render("sorted by "+m.sortKey.String())
}

func (m Model) panelWidth() int {
	if m.width == 0 {
		return defaultWidth
	}
	return max(40, m.width-2)
}

func (m Model) graphHeight() int {
	if m.height > 0 && m.height < 40 {
		return 2
	}
	return 4
}

func (m Model) renderPerformance() string {
	if !m.hasSample {
		return LabelStyle.Render("Waiting for the first sample...")
	}

	s := m.sample
	w := m.panelWidth()
	inner := w - 4
	hist := s.History

	var sections []string
	sections = append(sections, panel("CPU", fmt.Sprintf("%.1f%%", s.CPUPercent), w,
		RenderGraph(hist.CPU, inner, m.graphHeight(), ScalePercent, ColorGraph)))

	memValue := fmt.Sprintf("%.1f%%  %s / %s", s.MemoryPercent,
		humanize.IBytes(s.MemoryUsed), humanize.IBytes(s.MemoryTotal))
	sections = append(sections, panel("Memory", memValue, w,
		RenderGraph(hist.Memory, inner, m.graphHeight(), ScalePercent, ColorGraph)))

	if !s.RatesValid {
		sections = append(sections, panel("Disk / Network", "collecting", w,
			LabelStyle.Render("Rates appear after the second sample.")))
		return strings.Join(sections, "\n")
	}

	reads, writes := make([]float64, len(hist.Disk)), make([]float64, len(hist.Disk))
	for i, d := range hist.Disk {
		reads[i], writes[i] = d.Read, d.Write
	}
	sent, recv := make([]float64, len(hist.Network)), make([]float64, len(hist.Network))
	for i, n := range hist.Network {
		sent[i], recv[i] = n.Sent, n.Recv
	}

	sparkWidth := max(10, inner-16)
	sections = append(sections,
		panel("Disk", "R "+FormatRate(s.Disk.Read)+"  W "+FormatRate(s.Disk.Write), w,
			rateLine("read", reads, sparkWidth)+"\n"+rateLine("write", writes, sparkWidth)),
		panel("Network", "↑ "+FormatRate(s.Network.Sent)+"  ↓ "+FormatRate(s.Network.Recv), w,
			rateLine("sent", sent, sparkWidth)+"\n"+rateLine("received", recv, sparkWidth)))
	return strings.Join(sections, "\n")
}

func rateLine(label string, data []float64, width int) string {
	return LabelStyle.Render(fmt.Sprintf("%-10s", label)) + ui.RenderSparkline(data, width)
}

// panel wraps multi-line body in a titled section box.
func panel(title, value string, width int, body string) string {
	lines := []string{SectionHeader(title, value, width)}
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, SectionContentLine(line, width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

func (m Model) renderSystem() string {
	if m.opts.Info == nil {
		return LabelStyle.Render("System information is unavailable.")
	}
	if !m.infoLoaded {
		return LabelStyle.Render("Collecting system information...")
	}
	if m.infoErr != nil {
		return StatusErrorStyle.Render("Couldn't read system information: " + errorSummary(m.infoErr))
	}

	info := m.info
	kv := func(k, v string) string {
		return LabelStyle.Render(fmt.Sprintf("%-12s", k)) + ValueStyle.Render(v)
	}
	lines := []string{
		kv("Host", info.Hostname),
		kv("OS", strings.TrimSpace(fmt.Sprintf("%s %s %s", info.OS, info.Platform, info.PlatformVer))),
		kv("Kernel", info.Kernel+" ("+info.Arch+")"),
		kv("Uptime", FormatUptime(info.Uptime)+", booted "+humanize.Time(info.BootTime)),
		kv("CPU", fmt.Sprintf("%s, %d cores / %d threads @ %.0f MHz",
			info.CPU.Model, info.CPU.PhysicalCore, info.CPU.LogicalCore, info.CPU.MHz)),
		kv("Memory", humanize.IBytes(info.MemoryTotal)+" RAM, "+humanize.IBytes(info.SwapTotal)+" swap"),
	}

	if len(info.Disks) > 0 {
		lines = append(lines, "", LabelStyle.Render("Disks"))
		for _, d := range info.Disks {
			lines = append(lines, fmt.Sprintf("  %-20s %-6s %s %s / %s",
				truncate(d.Mountpoint, 20), d.FSType, ProgressBar(20, d.UsedPct),
				humanize.IBytes(d.Used), humanize.IBytes(d.Total)))
		}
	}

	if len(info.Interfaces) > 0 {
		lines = append(lines, "", LabelStyle.Render("Network"))
		for _, iface := range info.Interfaces {
			state := StatusErrorStyle.Render("down")
			if iface.Up {
				state = StatusInfoStyle.Render("up  ")
			}
			lines = append(lines, fmt.Sprintf("  %-12s %s %s", truncate(iface.Name, 12), state,
				MutedStyle.Render(strings.Join(iface.Addresses, ", "))))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	if m.opts.History == nil {
		return LabelStyle.Render("Termination history is disabled (storage.enabled: false).")
	}
	if !m.historyLoaded {
		return LabelStyle.Render("Loading history...")
	}
	if m.historyErr != nil {
		return StatusErrorStyle.Render("Couldn't load history: " + errorSummary(m.historyErr))
	}
	if len(m.history) == 0 {
		return LabelStyle.Render("No processes terminated yet.")
	}

	rows := make([][]string, len(m.history))
	for i, r := range m.history {
		by := r.TerminatedBy
		if r.Elevated {
			by += " (elevated)"
		}
		rows[i] = []string{
			humanize.Time(r.Time),
			truncate(r.Name, 24),
			fmt.Sprint(r.PID),
			fmt.Sprintf("%.1f MB", r.MemoryMB),
			by,
		}
	}
	return ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "WHEN", Width: 16},
		{Title: "NAME", Width: 24},
		{Title: "PID", Width: 8},
		{Title: "MEMORY", Width: 12},
		{Title: "BY", Width: 16},
	}, rows)
}

func (m Model) renderLog() string {
	if m.opts.Feed == nil {
		return LabelStyle.Render("Log feed is unavailable.")
	}
	lines := m.opts.Feed.Lines()
	if len(lines) == 0 {
		return LabelStyle.Render("Nothing logged yet.")
	}

	visible := 20
	if m.height > 0 {
		visible = max(1, m.height-chromeHeight)
	}
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		style := ValueStyle
		switch l.Level {
		case "WARN", "WARNING":
			style = lipgloss.NewStyle().Foreground(ColorWarning)
		case "ERROR", "FATAL", "PANIC":
			style = StatusErrorStyle
		case "DEBUG", "TRACE":
			style = MutedStyle
		}
		out[i] = style.Render(l.String())
	}
	return strings.Join(out, "\n")
}

func (m Model) renderStatus() string {
	if m.confirm != nil {
		return ConfirmStyle.Render(fmt.Sprintf("Terminate %s (pid %d)? y/n", m.confirm.name, m.confirm.pid))
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return StatusErrorStyle.Render(ui.SymbolFail + " " + m.status)
	}
	return StatusInfoStyle.Render(ui.SymbolSuccess + " " + m.status)
}

// renderFooter renders the keyboard hints for the current tab.
func (m Model) renderFooter() string {
	hints := []string{"q quit", "tab switch", "p pause", "? help"}
	switch m.tab {
	case TabProcesses:
		hints = append(hints, "↑↓ select", "s sort", "/ filter", "x terminate")
		if m.escalate != nil {
			hints = append(hints, "e elevate")
		}
	case TabSystem, TabHistory:
		hints = append(hints, "r reload")
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// FormatRate formats a bytes-per-second rate.
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// FormatUptime renders a duration as "3d 4h 12m".
func FormatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
