// Package provider is the boundary between procmon and the operating system.
//
// The monitors only see the Provider interface: a process listing, one batch
// of resource counters, and two kill primitives. The gopsutil-backed
// implementation lives in this package; package testing has a scripted fake.
package provider

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Kill and KillElevated. Implementations wrap
// them so callers can classify failures with errors.Is.
var (
	ErrNoSuchProcess = errors.New("no such process")
	ErrPermission    = errors.New("permission denied")
)

// ProcessRecord is a point-in-time view of one process.
// Lists are regenerated wholesale every poll; nothing is tracked per PID.
type ProcessRecord struct {
	Name       string  `json:"name"`
	PID        int32   `json:"pid"`
	MemoryMB   float64 `json:"memory_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Status     string  `json:"status"`
}

// Counters is one batch of system-wide resource readings. Disk and network
// values are monotonically increasing byte counters, not rates.
type Counters struct {
	Time           time.Time
	CPUPercent     float64
	MemoryPercent  float64
	MemoryUsed     uint64
	MemoryTotal    uint64
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	NetSentBytes   uint64
	NetRecvBytes   uint64
}

// Provider is the metrics source consumed by the monitors.
type Provider interface {
	// ListProcesses returns every visible process. Processes that exit or
	// deny access while being inspected are skipped, not reported as errors.
	ListProcesses(ctx context.Context) ([]ProcessRecord, error)

	// SampleCounters returns the current system-wide counters.
	SampleCounters(ctx context.Context) (Counters, error)

	// Kill asks the process to terminate.
	Kill(ctx context.Context, pid int32) error

	// KillElevated force-kills the process with elevated privileges.
	// It never prompts for a password.
	KillElevated(ctx context.Context, pid int32) error
}

// InfoSource reports static host information.
type InfoSource interface {
	SystemInfo(ctx context.Context) (SystemInfo, error)
}

// SystemInfo is static information about the host.
type SystemInfo struct {
	Hostname    string          `json:"hostname"`
	OS          string          `json:"os"`
	Platform    string          `json:"platform"`
	PlatformVer string          `json:"platform_version"`
	Kernel      string          `json:"kernel"`
	Arch        string          `json:"arch"`
	BootTime    time.Time       `json:"boot_time"`
	Uptime      time.Duration   `json:"uptime"`
	CPU         CPUInfo         `json:"cpu"`
	MemoryTotal uint64          `json:"memory_total"`
	SwapTotal   uint64          `json:"swap_total"`
	Disks       []DiskInfo      `json:"disks"`
	Interfaces  []InterfaceInfo `json:"interfaces"`
	CollectedAt time.Time       `json:"collected_at"`
}

// CPUInfo describes the processor.
type CPUInfo struct {
	Model        string  `json:"model"`
	PhysicalCore int     `json:"physical_cores"`
	LogicalCore  int     `json:"logical_cores"`
	MHz          float64 `json:"mhz"`
}

// DiskInfo describes one mounted partition.
type DiskInfo struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	FSType     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	UsedPct    float64 `json:"used_percent"`
}

// InterfaceInfo describes one network interface.
type InterfaceInfo struct {
	Name      string   `json:"name"`
	MAC       string   `json:"mac"`
	Addresses []string `json:"addresses"`
	Up        bool     `json:"up"`
}
