package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// DefaultInfoTTL is how long static system info is cached.
const DefaultInfoTTL = 5 * time.Minute

const bytesPerMB = 1024 * 1024

// Gopsutil reads metrics from the local host through gopsutil.
type Gopsutil struct {
	log      logger.Logger
	info     *ttlcache.Cache[string, SystemInfo]
	run      commandRunner
	keepDisk diskFilter

	// handles keeps each process's handle between listings so CPU percent
	// covers the time since the previous listing. Guarded by handlesMu,
	// which also serializes ListProcesses.
	handlesMu sync.Mutex
	handles   map[handleKey]*process.Process
}

// handleKey tells a reused PID apart from the process that held it before.
type handleKey struct {
	pid     int32
	created int64
}

// Option customizes a Gopsutil provider.
type Option func(*Gopsutil)

// WithInfoTTL sets how long SystemInfo results are reused.
func WithInfoTTL(ttl time.Duration) Option {
	return func(g *Gopsutil) {
		g.info = ttlcache.New(ttlcache.WithTTL[string, SystemInfo](ttl))
	}
}

// withCommandRunner replaces the runner used for elevated kills.
func withCommandRunner(run commandRunner) Option {
	return func(g *Gopsutil) {
		g.run = run
	}
}

// NewGopsutil creates a provider for the local host.
func NewGopsutil(log logger.Logger, opts ...Option) *Gopsutil {
	if log == nil {
		log = logger.Noop()
	}
	g := &Gopsutil{
		log:      log,
		info:     ttlcache.New(ttlcache.WithTTL[string, SystemInfo](DefaultInfoTTL)),
		run:      runCommand,
		keepDisk: wholeDiskFilter(runtime.GOOS, sysBlockDir),
		handles:  make(map[handleKey]*process.Process),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListProcesses implements Provider.
func (g *Gopsutil) ListProcesses(ctx context.Context) ([]ProcessRecord, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	g.handlesMu.Lock()
	defer g.handlesMu.Unlock()

	records := make([]ProcessRecord, 0, len(procs))
	seen := make(map[handleKey]*process.Process, len(procs))
	skipped := 0
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if p == nil || p.Pid <= 0 {
			skipped++
			continue
		}

		h, prev := p, false
		created, err := p.CreateTimeWithContext(ctx)
		if err == nil {
			key := handleKey{pid: p.Pid, created: created}
			if cached, ok := g.handles[key]; ok {
				h, prev = cached, true
			}
			seen[key] = h
		}

		rec, ok := g.inspect(ctx, h, prev)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	// Handles of exited processes are dropped here.
	g.handles = seen

	if skipped > 0 {
		g.log.Debug("skipped %d processes that exited or denied access", skipped)
	}
	return records, nil
}

// inspect reads one process. It returns false when the process vanished or
// its basic fields can't be read. prev is set when p was read by the previous
// listing, so its CPU percent can cover just the time since then.
func (g *Gopsutil) inspect(ctx context.Context, p *process.Process, prev bool) (ProcessRecord, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil || name == "" {
		return ProcessRecord{}, false
	}
	memInfo, err := p.MemoryInfoWithContext(ctx)
	if err != nil || memInfo == nil {
		return ProcessRecord{}, false
	}

	// CPU and status are best effort; some platforms deny them for
	// processes owned by other users. A process seen for the first time
	// reports its lifetime average while Percent records the baseline for
	// the next listing.
	cpuPct, err := p.PercentWithContext(ctx, 0)
	if !prev {
		cpuPct, err = p.CPUPercentWithContext(ctx)
	}
	if err != nil {
		cpuPct = 0
	}
	status := "unknown"
	if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
		status = st[0]
	}

	return ProcessRecord{
		Name:       name,
		PID:        p.Pid,
		MemoryMB:   float64(memInfo.RSS) / bytesPerMB,
		CPUPercent: cpuPct,
		Status:     status,
	}, true
}

// SampleCounters implements Provider.
func (g *Gopsutil) SampleCounters(ctx context.Context) (Counters, error) {
	c := Counters{Time: time.Now()}

	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Counters{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pcts) > 0 {
		c.CPUPercent = pcts[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Counters{}, fmt.Errorf("virtual memory: %w", err)
	}
	c.MemoryPercent = vm.UsedPercent
	c.MemoryUsed = vm.Used
	c.MemoryTotal = vm.Total

	diskIO, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return Counters{}, fmt.Errorf("disk counters: %w", err)
	}
	c.DiskReadBytes, c.DiskWriteBytes = sumDiskCounters(diskIO, g.keepDisk)

	netIO, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return Counters{}, fmt.Errorf("network counters: %w", err)
	}
	if len(netIO) > 0 {
		c.NetSentBytes = netIO[0].BytesSent
		c.NetRecvBytes = netIO[0].BytesRecv
	}

	return c, nil
}

// Kill implements Provider. It sends a graceful termination request.
func (g *Gopsutil) Kill(ctx context.Context, pid int32) error {
	p, err := g.find(ctx, pid)
	if err != nil {
		return err
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return g.classify(ctx, pid, err)
	}
	return nil
}

// KillElevated implements Provider. It runs a non-interactive privileged
// force kill and never prompts for a password.
func (g *Gopsutil) KillElevated(ctx context.Context, pid int32) error {
	if _, err := g.find(ctx, pid); err != nil {
		return err
	}
	return killElevated(ctx, g.run, pid)
}

func (g *Gopsutil) find(ctx context.Context, pid int32) (*process.Process, error) {
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("look up pid %d: %w", pid, err)
	}
	if !exists {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrNoSuchProcess)
	}
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("pid %d: %w", pid, ErrNoSuchProcess)
		}
		return nil, fmt.Errorf("open pid %d: %w", pid, err)
	}
	return p, nil
}

// classify maps an OS kill error onto the package sentinels.
func (g *Gopsutil) classify(ctx context.Context, pid int32, err error) error {
	if errors.Is(err, os.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "access is denied") {
		return fmt.Errorf("pid %d: %v: %w", pid, err, ErrPermission)
	}
	if exists, lookupErr := process.PidExistsWithContext(ctx, pid); lookupErr == nil && !exists {
		return fmt.Errorf("pid %d: %v: %w", pid, err, ErrNoSuchProcess)
	}
	return fmt.Errorf("terminate pid %d: %w", pid, err)
}

var (
	_ Provider   = (*Gopsutil)(nil)
	_ InfoSource = (*Gopsutil)(nil)
)
