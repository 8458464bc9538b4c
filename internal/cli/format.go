package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/procmon/internal/dashboard"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/rileyhilliard/procmon/internal/ui"
)

var errStorageDisabled = errors.New(errors.ErrStore,
	"Storage is disabled",
	"Set storage.enabled: true in your procmon config to keep termination history and logs")

// errorSummary returns the one-line message of a structured error.
func errorSummary(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// configLabel describes where the config came from for log lines.
func configLabel(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return path
}

// parseDurationWithDays parses a duration, also accepting a day suffix ("7d").
func parseDurationWithDays(s string) (time.Duration, error) {
	if len(s) > 0 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// parseSince turns a --since flag into an absolute lower bound. Empty means
// no bound.
func parseSince(flag string, now time.Time) (time.Time, error) {
	if flag == "" {
		return time.Time{}, nil
	}
	d, err := parseDurationWithDays(flag)
	if err != nil || d < 0 {
		return time.Time{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid duration", flag),
			"Try something like 30m, 24h, or 7d.")
	}
	return now.Add(-d), nil
}

// parsePID validates a process ID argument.
func parsePID(arg string) (int32, error) {
	pid, err := strconv.ParseInt(arg, 10, 32)
	if err != nil || pid <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' is not a process ID", arg),
			"Pass the numeric PID shown by 'procmon ps'")
	}
	return int32(pid), nil
}

var processColumns = []ui.TableColumn{
	{Title: "PID", Width: 8},
	{Title: "NAME", Width: 28},
	{Title: "MEMORY", Width: 12},
	{Title: "CPU", Width: 8},
	{Title: "STATUS", Width: 10},
}

// renderProcessTable writes processes as a table.
func renderProcessTable(w io.Writer, procs []provider.ProcessRecord) {
	rows := make([][]string, len(procs))
	for i, p := range procs {
		rows[i] = []string{
			strconv.Itoa(int(p.PID)),
			truncate(p.Name, 28),
			fmt.Sprintf("%.1f MB", p.MemoryMB),
			fmt.Sprintf("%.1f%%", p.CPUPercent),
			p.Status,
		}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(processColumns, rows))
}

var historyColumns = []ui.TableColumn{
	{Title: "WHEN", Width: 20},
	{Title: "NAME", Width: 24},
	{Title: "PID", Width: 8},
	{Title: "MEMORY", Width: 12},
	{Title: "BY", Width: 16},
}

// renderHistoryTable writes terminations as a table, newest first.
func renderHistoryTable(w io.Writer, recs []store.TerminatedProcess) {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		by := r.TerminatedBy
		if r.Elevated {
			by += " (elevated)"
		}
		rows[i] = []string{
			r.Time.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Name, 24),
			strconv.Itoa(int(r.PID)),
			fmt.Sprintf("%.1f MB", r.MemoryMB),
			by,
		}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(historyColumns, rows))
}

// renderLogEntries writes one line per entry, oldest first.
func renderLogEntries(w io.Writer, entries []store.LogEntry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		line := fmt.Sprintf("%s %-5s [%s] %s", e.Time.Local().Format("2006-01-02 15:04:05"), e.Level, e.Source, e.Message)
		switch strings.ToUpper(e.Level) {
		case "ERROR", "FATAL", "PANIC":
			line = ui.ErrorStyle.Render(line)
		case "WARN", "WARNING":
			line = ui.WarnStyle.Render(line)
		case "DEBUG", "TRACE":
			line = ui.MutedStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

// renderSystemInfo writes the host summary as aligned key/value lines.
func renderSystemInfo(w io.Writer, info provider.SystemInfo) {
	kv := func(k, v string) {
		fmt.Fprintf(w, "%s %s\n", ui.MutedStyle.Render(fmt.Sprintf("%-10s", k)), v)
	}
	kv("Host", info.Hostname)
	kv("OS", strings.TrimSpace(fmt.Sprintf("%s %s %s", info.OS, info.Platform, info.PlatformVer)))
	kv("Kernel", fmt.Sprintf("%s (%s)", info.Kernel, info.Arch))
	kv("Uptime", fmt.Sprintf("%s (booted %s)", dashboard.FormatUptime(info.Uptime), humanize.Time(info.BootTime)))
	kv("CPU", fmt.Sprintf("%s, %d cores / %d threads", info.CPU.Model, info.CPU.PhysicalCore, info.CPU.LogicalCore))
	kv("Memory", fmt.Sprintf("%s RAM, %s swap", humanize.IBytes(info.MemoryTotal), humanize.IBytes(info.SwapTotal)))

	if len(info.Disks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.BoldStyle.Render("Disks"))
		for _, d := range info.Disks {
			fmt.Fprintf(w, "  %-20s %-6s %s  %s / %s\n", truncate(d.Mountpoint, 20), d.FSType,
				ui.RenderBar(d.UsedPct, 20), humanize.IBytes(d.Used), humanize.IBytes(d.Total))
		}
	}
	if len(info.Interfaces) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.BoldStyle.Render("Network"))
		for _, iface := range info.Interfaces {
			state := ui.ErrorStyle.Render("down")
			if iface.Up {
				state = ui.SuccessStyle.Render("up  ")
			}
			fmt.Fprintf(w, "  %-12s %s %s\n", truncate(iface.Name, 12), state, strings.Join(iface.Addresses, ", "))
		}
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
