package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSysBlock(t *testing.T, devices ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range devices {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	}
	return dir
}

func TestSumDiskCounters(t *testing.T) {
	blockDir := fakeSysBlock(t, "sda", "nvme0n1", "loop0", "dm-0", "md0", "cciss!c0d0")

	stats := map[string]disk.IOCountersStat{
		"sda":        {ReadBytes: 1000, WriteBytes: 500},
		"sda1":       {ReadBytes: 600, WriteBytes: 300},
		"sda2":       {ReadBytes: 400, WriteBytes: 200},
		"nvme0n1":    {ReadBytes: 70, WriteBytes: 7},
		"nvme0n1p1":  {ReadBytes: 70, WriteBytes: 7},
		"loop0":      {ReadBytes: 9000, WriteBytes: 9000},
		"dm-0":       {ReadBytes: 900, WriteBytes: 450},
		"md0":        {ReadBytes: 5, WriteBytes: 5},
		"cciss/c0d0": {ReadBytes: 3, WriteBytes: 1},
	}

	tests := []struct {
		name      string
		goos      string
		wantRead  uint64
		wantWrite uint64
	}{
		{name: "linux keeps whole disks", goos: "linux", wantRead: 1073, wantWrite: 508},
		{name: "darwin keeps everything", goos: "darwin", wantRead: 12048, wantWrite: 10470},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read, write := sumDiskCounters(stats, wholeDiskFilter(tt.goos, blockDir))
			assert.Equal(t, tt.wantRead, read)
			assert.Equal(t, tt.wantWrite, write)
		})
	}
}

func TestWholeDiskFilter_Linux(t *testing.T) {
	keep := wholeDiskFilter("linux", fakeSysBlock(t, "sda", "vda", "loop3"))

	tests := []struct {
		name string
		want bool
	}{
		{"sda", true},
		{"vda", true},
		{"sda1", false},
		{"vda2", false},
		{"loop3", false},
		{"dm-1", false},
		{"sr0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keep(tt.name))
		})
	}
}
