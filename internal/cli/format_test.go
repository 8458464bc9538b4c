package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestParseDurationWithDays(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "7d", want: 7 * 24 * time.Hour},
		{input: "1d", want: 24 * time.Hour},
		{input: "24h", want: 24 * time.Hour},
		{input: "90m", want: 90 * time.Minute},
		{input: "xd", wantErr: true},
		{input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDurationWithDays(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseSince("2h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), got)

	got, err = parseSince("1d", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got)

	_, err = parseSince("-5m", now)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	_, err = parseSince("yesterday", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't look like a valid duration")
}

func TestParsePID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int32
		wantErr bool
	}{
		{arg: "4242", want: 4242},
		{arg: "1", want: 1},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "firefox", wantErr: true},
		{arg: "99999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parsePID(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigLabel(t *testing.T) {
	assert.Equal(t, "built-in defaults", configLabel(""))
	assert.Equal(t, "/etc/procmon.yaml", configLabel("/etc/procmon.yaml"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "com.apple.…", truncate("com.apple.WebKit", 11))
	assert.Equal(t, "a", truncate("abc", 1))
}

func TestRenderProcessTable(t *testing.T) {
	var buf bytes.Buffer
	renderProcessTable(&buf, []provider.ProcessRecord{
		{Name: "postgres", PID: 812, MemoryMB: 256.5, CPUPercent: 3.31, Status: "sleep"},
		{Name: "nginx", PID: 90, MemoryMB: 12, Status: "running"},
	})

	out := stripANSI(buf.String())
	assert.Contains(t, out, "PID")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "256.5 MB")
	assert.Contains(t, out, "3.3%")
	assert.Less(t, strings.Index(out, "postgres"), strings.Index(out, "nginx"), "input order is kept")
}

func TestRenderHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	renderHistoryTable(&buf, []store.TerminatedProcess{
		{Time: time.Now(), Name: "chrome", PID: 31, MemoryMB: 900, TerminatedBy: "user", Elevated: true},
		{Time: time.Now(), Name: "node", PID: 32, MemoryMB: 80, TerminatedBy: "user"},
	})

	out := stripANSI(buf.String())
	assert.Contains(t, out, "chrome")
	assert.Contains(t, out, "user (elevated)")
	assert.Contains(t, out, "900.0 MB")
}

func TestRenderLogEntries_OldestFirst(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	// The store returns newest first.
	renderLogEntries(&buf, []store.LogEntry{
		{Time: now, Level: "ERROR", Source: "store", Message: "second"},
		{Time: now.Add(-time.Minute), Level: "INFO", Source: "cli", Message: "first"},
	})

	lines := strings.Split(strings.TrimSpace(stripANSI(buf.String())), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[cli] first")
	assert.Contains(t, lines[1], "ERROR [store] second")
}

func TestRenderSystemInfo(t *testing.T) {
	var buf bytes.Buffer
	renderSystemInfo(&buf, provider.SystemInfo{
		Hostname:    "testbox",
		OS:          "linux",
		Platform:    "ubuntu",
		PlatformVer: "24.04",
		Kernel:      "6.8.0",
		Arch:        "x86_64",
		BootTime:    time.Now().Add(-26 * time.Hour),
		Uptime:      26 * time.Hour,
		CPU:         provider.CPUInfo{Model: "Xeon", PhysicalCore: 4, LogicalCore: 8},
		MemoryTotal: 16 << 30,
		Disks:       []provider.DiskInfo{{Mountpoint: "/", FSType: "ext4", Total: 100 << 30, Used: 40 << 30, UsedPct: 40}},
		Interfaces:  []provider.InterfaceInfo{{Name: "eth0", Up: true, Addresses: []string{"10.0.0.2/24"}}},
	})

	out := stripANSI(buf.String())
	assert.Contains(t, out, "testbox")
	assert.Contains(t, out, "linux ubuntu 24.04")
	assert.Contains(t, out, "6.8.0 (x86_64)")
	assert.Contains(t, out, "1d 2h 0m")
	assert.Contains(t, out, "4 cores / 8 threads")
	assert.Contains(t, out, "16 GiB RAM")
	assert.Contains(t, out, "Disks")
	assert.Contains(t, out, "40 GiB / 100 GiB")
	assert.Contains(t, out, "eth0")
	assert.Contains(t, out, "10.0.0.2/24")
}
