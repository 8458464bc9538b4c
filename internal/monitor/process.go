package monitor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/provider"
)

// ProcessMonitor defaults.
const (
	DefaultProcessInterval  = 2 * time.Second
	DefaultProcessLimit     = 50
	DefaultTerminateTimeout = 5 * time.Second
	recordTimeout           = 2 * time.Second
)

// ProcessOptions configures a ProcessMonitor.
type ProcessOptions struct {
	// Interval between process listings. Zero uses DefaultProcessInterval.
	Interval time.Duration
	// Limit keeps the N processes using the most memory. 0 keeps all of them.
	Limit int
	// Backoff and StopTimeout are passed to the poller.
	Backoff     time.Duration
	StopTimeout time.Duration
	// TerminateTimeout bounds a single kill attempt. Zero uses DefaultTerminateTimeout.
	TerminateTimeout time.Duration
	// AllowElevated enables TerminateElevated.
	AllowElevated bool
	// TerminatedBy is stored with each termination record.
	TerminatedBy string
	// Recorder receives successful terminations. Optional.
	Recorder Recorder
}

// DefaultProcessOptions returns the options used when nothing is configured.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		Interval:         DefaultProcessInterval,
		Limit:            DefaultProcessLimit,
		TerminateTimeout: DefaultTerminateTimeout,
		TerminatedBy:     "user",
	}
}

// ProcessMonitor polls the process list in the background and hands each new
// list to registered consumers through its callback queue.
type ProcessMonitor struct {
	fanout[[]provider.ProcessRecord]

	provider provider.Provider
	poller   *Poller
	opts     ProcessOptions
	log      logger.Logger
	now      func() time.Time

	mu      sync.RWMutex
	latest  []provider.ProcessRecord
	updated time.Time
}

// NewProcessMonitor creates a stopped process monitor.
func NewProcessMonitor(p provider.Provider, opts ProcessOptions, log logger.Logger) *ProcessMonitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultProcessInterval
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	if opts.TerminateTimeout <= 0 {
		opts.TerminateTimeout = DefaultTerminateTimeout
	}
	if log == nil {
		log = logger.Noop()
	}

	m := &ProcessMonitor{
		fanout:   newFanout(cloneProcesses, log),
		provider: p,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
	m.poller = NewPoller("process-monitor", m.tick, PollerOptions{
		Interval:    opts.Interval,
		Backoff:     opts.Backoff,
		StopTimeout: opts.StopTimeout,
	}, log)
	return m
}

// Start begins background polling. It returns false if already running.
func (m *ProcessMonitor) Start() bool {
	return m.poller.Start()
}

// Stop ends background polling. See Poller.Stop.
func (m *ProcessMonitor) Stop() error {
	return m.poller.Stop()
}

// Running reports whether the monitor is polling.
func (m *ProcessMonitor) Running() bool {
	return m.poller.Running()
}

// ActiveLoops returns the number of live poll goroutines.
func (m *ProcessMonitor) ActiveLoops() int {
	return m.poller.ActiveLoops()
}

// Interval returns the polling interval.
func (m *ProcessMonitor) Interval() time.Duration {
	return m.opts.Interval
}

// Snapshot returns a copy of the most recent process list, or nil if no
// listing has succeeded yet.
func (m *ProcessMonitor) Snapshot() []provider.ProcessRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneProcesses(m.latest)
}

// UpdatedAt returns when the snapshot was last refreshed.
func (m *ProcessMonitor) UpdatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// Refresh lists processes synchronously, stores the result as the snapshot
// and returns a copy. Consumers are not notified. A listing that returns after
// ctx is done is dropped.
func (m *ProcessMonitor) Refresh(ctx context.Context) ([]provider.ProcessRecord, error) {
	list, err := m.provider.ListProcesses(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProvider,
			"Couldn't list processes",
			"Check that procmon can read the process table")
	}

	SortProcesses(list, SortByMemory)
	if m.opts.Limit > 0 && len(list) > m.opts.Limit {
		list = list[:m.opts.Limit]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrMonitor,
			"Process listing finished after it was cancelled", "")
	}
	m.latest = list
	m.updated = m.now()

	return cloneProcesses(list), nil
}

func (m *ProcessMonitor) tick(ctx context.Context) error {
	list, err := m.Refresh(ctx)
	if err != nil {
		return err
	}
	m.publish(ctx, list)
	return nil
}

// Terminate asks the process to exit. It waits at most TerminateTimeout and
// does not retry. Failures are structured errors; use IsNotFound,
// IsPermissionDenied and IsTimeout to tell them apart.
func (m *ProcessMonitor) Terminate(ctx context.Context, pid int32) error {
	return m.terminate(ctx, pid, false)
}

// TerminateElevated force-kills the process with elevated privileges. It is
// the explicit second step after Terminate fails with a permission error.
func (m *ProcessMonitor) TerminateElevated(ctx context.Context, pid int32) error {
	if !m.opts.AllowElevated {
		return errors.New(errors.ErrTerminate,
			"Elevated termination is disabled",
			"Set terminate.escalate: true in your procmon config to allow it")
	}
	return m.terminate(ctx, pid, true)
}

func (m *ProcessMonitor) terminate(ctx context.Context, pid int32, elevated bool) error {
	if pid <= 0 {
		return errors.New(errors.ErrTerminate,
			fmt.Sprintf("Invalid process ID %d", pid),
			"Process IDs are positive integers")
	}

	kill := m.provider.Kill
	if elevated {
		kill = m.provider.KillElevated
	}

	killCtx, cancel := context.WithTimeout(ctx, m.opts.TerminateTimeout)
	defer cancel()

	// The kill runs on its own goroutine so a provider that ignores ctx
	// still cannot hold the caller past the timeout.
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("panic during kill: %v", r)
			}
		}()
		result <- kill(killCtx, pid)
	}()

	var err error
	select {
	case err = <-result:
	case <-killCtx.Done():
		err = killCtx.Err()
	}
	if err != nil {
		m.log.Warn("terminate pid %d failed: %v", pid, err)
		return classifyKillError(pid, err, elevated)
	}

	rec := m.lookup(pid)
	if elevated {
		m.log.Info("terminated %s (pid %d) with elevated privileges", rec.Name, pid)
	} else {
		m.log.Info("terminated %s (pid %d)", rec.Name, pid)
	}
	m.record(ctx, Termination{
		Time:         m.now(),
		Process:      rec,
		TerminatedBy: m.opts.TerminatedBy,
		Elevated:     elevated,
	})
	return nil
}

// lookup returns the last known record for pid, or a record with only the
// PID set when the process is not in the snapshot.
func (m *ProcessMonitor) lookup(pid int32) provider.ProcessRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.latest {
		if p.PID == pid {
			return p
		}
	}
	return provider.ProcessRecord{PID: pid, Name: "unknown"}
}

func (m *ProcessMonitor) record(ctx context.Context, t Termination) {
	if m.opts.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := m.opts.Recorder.RecordTermination(ctx, t); err != nil {
		m.log.Error("failed to record termination of pid %d: %v", t.Process.PID, err)
	}
}

func classifyKillError(pid int32, err error, elevated bool) *errors.Error {
	switch {
	case errors.Is(err, provider.ErrNoSuchProcess):
		return errors.WrapWithCode(err, errors.ErrTerminate,
			fmt.Sprintf("Process %d not found", pid),
			"It may have already exited. Refresh the process list")
	case errors.Is(err, provider.ErrPermission):
		suggestion := "Retry with elevated privileges"
		if elevated {
			suggestion = "Elevation failed too. Run procmon as an administrator or configure passwordless sudo for kill"
		}
		return errors.WrapWithCode(err, errors.ErrTerminate,
			fmt.Sprintf("Not allowed to terminate process %d", pid),
			suggestion)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.WrapWithCode(err, errors.ErrTerminate,
			fmt.Sprintf("Timed out terminating process %d", pid),
			"The process may be stuck. Try again or use a force kill")
	default:
		return errors.WrapWithCode(err, errors.ErrTerminate,
			fmt.Sprintf("Couldn't terminate process %d", pid),
			"")
	}
}

// IsNotFound reports whether a termination failed because the process no
// longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, provider.ErrNoSuchProcess)
}

// IsPermissionDenied reports whether a termination failed for lack of
// privileges. Callers may follow up with TerminateElevated.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, provider.ErrPermission)
}

// IsTimeout reports whether a termination did not finish in time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// SortKey selects the ordering of a process list.
type SortKey int

// Sort orders. Memory and CPU sort descending, Name and PID ascending.
const (
	SortByMemory SortKey = iota
	SortByCPU
	SortByName
	SortByPID
)

var sortKeyNames = []string{"memory", "cpu", "name", "pid"}

// String returns the key's name.
func (k SortKey) String() string {
	if k < 0 || int(k) >= len(sortKeyNames) {
		return "unknown"
	}
	return sortKeyNames[k]
}

// Next cycles to the following sort key.
func (k SortKey) Next() SortKey {
	return (k + 1) % SortKey(len(sortKeyNames))
}

// ParseSortKey converts a name such as "cpu" into a SortKey.
func ParseSortKey(name string) (SortKey, error) {
	for i, n := range sortKeyNames {
		if strings.EqualFold(name, n) {
			return SortKey(i), nil
		}
	}
	return SortByMemory, fmt.Errorf("unknown sort key %q (want one of %s)", name, strings.Join(sortKeyNames, ", "))
}

// SortProcesses orders list in place. Ties are broken by PID.
func SortProcesses(list []provider.ProcessRecord, key SortKey) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch key {
		case SortByCPU:
			if a.CPUPercent != b.CPUPercent {
				return a.CPUPercent > b.CPUPercent
			}
		case SortByName:
			if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
				return an < bn
			}
		case SortByPID:
		default:
			if a.MemoryMB != b.MemoryMB {
				return a.MemoryMB > b.MemoryMB
			}
		}
		return a.PID < b.PID
	})
}

// FilterProcesses returns the processes whose name, PID, memory, CPU or
// status contains query, ignoring case. Memory and CPU match the way they are
// displayed ("412.3 MB", "7.5%"). An empty query returns a copy of list.
func FilterProcesses(list []provider.ProcessRecord, query string) []provider.ProcessRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return cloneProcesses(list)
	}

	out := make([]provider.ProcessRecord, 0, len(list))
	for _, p := range list {
		fields := []string{
			p.Name,
			strconv.Itoa(int(p.PID)),
			fmt.Sprintf("%.1f MB", p.MemoryMB),
			fmt.Sprintf("%.1f%%", p.CPUPercent),
			p.Status,
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), query) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
