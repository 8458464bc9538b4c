package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/ring"
)

// DefaultPerformanceInterval is how often system counters are sampled.
const DefaultPerformanceInterval = time.Second

// PerformanceOptions configures a PerformanceMonitor.
type PerformanceOptions struct {
	// Interval between samples. Zero uses DefaultPerformanceInterval.
	Interval time.Duration
	// History is the number of samples kept per metric. Zero uses ring.DefaultCapacity.
	History int
	// Backoff and StopTimeout are passed to the poller.
	Backoff     time.Duration
	StopTimeout time.Duration
}

// PerformanceMonitor samples CPU, memory, disk and network usage in the
// background, keeps a bounded history of each, and hands every new sample to
// registered consumers through its callback queue.
type PerformanceMonitor struct {
	fanout[PerformanceSample]

	provider provider.Provider
	poller   *Poller
	opts     PerformanceOptions
	log      logger.Logger

	cpu     *ring.Ring[float64]
	memory  *ring.Ring[float64]
	disk    *ring.Ring[DiskRate]
	network *ring.Ring[NetRate]

	diskRead  RateCounter
	diskWrite RateCounter
	netSent   RateCounter
	netRecv   RateCounter

	// sampleMu serializes sampling so rate baselines and rings move together.
	sampleMu sync.Mutex

	mu        sync.RWMutex
	latest    PerformanceSample
	hasLatest bool
}

// NewPerformanceMonitor creates a stopped performance monitor.
func NewPerformanceMonitor(p provider.Provider, opts PerformanceOptions, log logger.Logger) *PerformanceMonitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPerformanceInterval
	}
	if opts.History <= 0 {
		opts.History = ring.DefaultCapacity
	}
	if log == nil {
		log = logger.Noop()
	}

	m := &PerformanceMonitor{
		fanout:   newFanout(clonePerformanceSample, log),
		provider: p,
		opts:     opts,
		log:      log,
		cpu:      ring.New[float64](opts.History),
		memory:   ring.New[float64](opts.History),
		disk:     ring.New[DiskRate](opts.History),
		network:  ring.New[NetRate](opts.History),
	}
	m.poller = NewPoller("performance-monitor", m.tick, PollerOptions{
		Interval:    opts.Interval,
		Backoff:     opts.Backoff,
		StopTimeout: opts.StopTimeout,
		OnStart:     m.resetRates,
	}, log)
	return m
}

// Start begins background sampling. It returns false if already running.
// Rate baselines are reset so the first sample after a restart never spans
// the stopped period.
func (m *PerformanceMonitor) Start() bool {
	return m.poller.Start()
}

// Stop ends background sampling. See Poller.Stop.
func (m *PerformanceMonitor) Stop() error {
	return m.poller.Stop()
}

// Running reports whether the monitor is sampling.
func (m *PerformanceMonitor) Running() bool {
	return m.poller.Running()
}

// ActiveLoops returns the number of live poll goroutines.
func (m *PerformanceMonitor) ActiveLoops() int {
	return m.poller.ActiveLoops()
}

// Interval returns the sampling interval.
func (m *PerformanceMonitor) Interval() time.Duration {
	return m.opts.Interval
}

// Snapshot returns copies of the current histories. It does not require the
// monitor to be running.
func (m *PerformanceMonitor) Snapshot() History {
	return History{
		CPU:     m.cpu.Snapshot(),
		Memory:  m.memory.Snapshot(),
		Disk:    m.disk.Snapshot(),
		Network: m.network.Snapshot(),
	}
}

// Latest returns the most recent sample, if any.
func (m *PerformanceMonitor) Latest() (PerformanceSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasLatest {
		return PerformanceSample{}, false
	}
	return clonePerformanceSample(m.latest), true
}

// Sample takes one reading synchronously, updates the histories and returns
// the new sample. Consumers are not notified. A reading that returns after ctx
// is done leaves the histories untouched.
func (m *PerformanceMonitor) Sample(ctx context.Context) (PerformanceSample, error) {
	m.sampleMu.Lock()
	defer m.sampleMu.Unlock()

	c, err := m.provider.SampleCounters(ctx)
	if err != nil {
		return PerformanceSample{}, errors.WrapWithCode(err, errors.ErrProvider,
			"Couldn't sample system counters", "")
	}
	// A reading that outlived its context belongs to a stopped loop.
	if err := ctx.Err(); err != nil {
		return PerformanceSample{}, errors.WrapWithCode(err, errors.ErrMonitor,
			"Counter sample finished after it was cancelled", "")
	}
	at := c.Time
	if at.IsZero() {
		at = time.Now()
	}

	// Every counter is observed before anything else can fail, so baselines
	// always advance together.
	read, okRead := m.diskRead.Observe(c.DiskReadBytes, at)
	write, okWrite := m.diskWrite.Observe(c.DiskWriteBytes, at)
	sent, okSent := m.netSent.Observe(c.NetSentBytes, at)
	recv, okRecv := m.netRecv.Observe(c.NetRecvBytes, at)
	valid := okRead && okWrite && okSent && okRecv

	m.cpu.Push(c.CPUPercent)
	m.memory.Push(c.MemoryPercent)

	s := PerformanceSample{
		Time:          at,
		CPUPercent:    c.CPUPercent,
		MemoryPercent: c.MemoryPercent,
		MemoryUsed:    c.MemoryUsed,
		MemoryTotal:   c.MemoryTotal,
		RatesValid:    valid,
	}
	if valid {
		s.Disk = DiskRate{Read: read, Write: write}
		s.Network = NetRate{Sent: sent, Recv: recv}
		m.disk.Push(s.Disk)
		m.network.Push(s.Network)
	}
	s.History = m.Snapshot()

	m.mu.Lock()
	m.latest = s
	m.hasLatest = true
	m.mu.Unlock()

	return clonePerformanceSample(s), nil
}

func (m *PerformanceMonitor) tick(ctx context.Context) error {
	s, err := m.Sample(ctx)
	if err != nil {
		return err
	}
	m.publish(ctx, s)
	return nil
}

func (m *PerformanceMonitor) resetRates() {
	m.diskRead.Reset()
	m.diskWrite.Reset()
	m.netSent.Reset()
	m.netRecv.Reset()
}

func clonePerformanceSample(s PerformanceSample) PerformanceSample {
	s.History = s.History.clone()
	return s
}
