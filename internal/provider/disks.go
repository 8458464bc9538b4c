package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// sysBlockDir lists whole block devices on Linux. Partitions only appear
// nested under their parent disk.
const sysBlockDir = "/sys/block"

// Virtual devices whose I/O is already counted on the disks beneath them.
var stackedDevicePrefixes = []string{"loop", "ram", "zram", "dm-", "md"}

// diskFilter reports whether a device's counters belong in the system total.
type diskFilter func(name string) bool

// wholeDiskFilter keeps physical whole disks. On Linux the kernel reports
// partitions next to their disk and adds their I/O into the disk's counters,
// so summing every entry would count the same bytes twice. Other platforms
// only report whole drives.
func wholeDiskFilter(goos, blockDir string) diskFilter {
	if goos != "linux" {
		return func(string) bool { return true }
	}
	return func(name string) bool {
		for _, prefix := range stackedDevicePrefixes {
			if strings.HasPrefix(name, prefix) {
				return false
			}
		}
		// Names like cciss/c0d0 use '!' in sysfs.
		_, err := os.Stat(filepath.Join(blockDir, strings.ReplaceAll(name, "/", "!")))
		return err == nil
	}
}

// sumDiskCounters totals read and write bytes over the devices keep accepts.
func sumDiskCounters(stats map[string]disk.IOCountersStat, keep diskFilter) (read, write uint64) {
	for name, d := range stats {
		if !keep(name) {
			continue
		}
		read += d.ReadBytes
		write += d.WriteBytes
	}
	return read, write
}
