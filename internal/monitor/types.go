package monitor

import (
	"context"
	"time"

	"github.com/rileyhilliard/procmon/internal/provider"
)

// DiskRate is disk throughput in bytes per second.
type DiskRate struct {
	Read  float64 `json:"read"`
	Write float64 `json:"write"`
}

// NetRate is network throughput in bytes per second.
type NetRate struct {
	Sent float64 `json:"sent"`
	Recv float64 `json:"recv"`
}

// History holds the retained samples of each performance metric, oldest first.
type History struct {
	CPU     []float64  `json:"cpu"`
	Memory  []float64  `json:"memory"`
	Disk    []DiskRate `json:"disk"`
	Network []NetRate  `json:"network"`
}

func (h History) clone() History {
	return History{
		CPU:     append([]float64(nil), h.CPU...),
		Memory:  append([]float64(nil), h.Memory...),
		Disk:    append([]DiskRate(nil), h.Disk...),
		Network: append([]NetRate(nil), h.Network...),
	}
}

// PerformanceSample is what PerformanceMonitor delivers to consumers each tick.
type PerformanceSample struct {
	Time          time.Time `json:"time"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used"`
	MemoryTotal   uint64    `json:"memory_total"`
	Disk          DiskRate  `json:"disk"`
	Network       NetRate   `json:"network"`
	// RatesValid is false until two counter readings exist. Disk and Network
	// are zero and absent from History until then.
	RatesValid bool    `json:"rates_valid"`
	History    History `json:"history"`
}

// Termination describes a successfully terminated process.
type Termination struct {
	Time         time.Time
	Process      provider.ProcessRecord
	TerminatedBy string
	Elevated     bool
}

// Recorder persists terminations. Errors are logged by the caller and never
// change the outcome of a termination.
type Recorder interface {
	RecordTermination(ctx context.Context, t Termination) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, t Termination) error

// RecordTermination calls f.
func (f RecorderFunc) RecordTermination(ctx context.Context, t Termination) error {
	return f(ctx, t)
}

func cloneProcesses(in []provider.ProcessRecord) []provider.ProcessRecord {
	if in == nil {
		return nil
	}
	out := make([]provider.ProcessRecord, len(in))
	copy(out, in)
	return out
}
