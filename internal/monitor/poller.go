package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
)

// Poller defaults.
const (
	DefaultBackoff     = time.Second
	DefaultStopTimeout = time.Second
	DefaultTickTimeout = 10 * time.Second
)

// TickFunc does one round of sampling. The context is cancelled when the
// poller stops and carries the per-tick timeout.
type TickFunc func(ctx context.Context) error

// PollerOptions configures a Poller. Zero durations use the defaults.
type PollerOptions struct {
	// Interval between the start of consecutive ticks.
	Interval time.Duration
	// Backoff is the pause after a failed tick.
	Backoff time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration
	// TickTimeout bounds a single tick.
	TickTimeout time.Duration
	// OnStart runs synchronously in Start before the loop is launched.
	OnStart func()
}

// Poller runs a TickFunc on its own goroutine at a fixed interval.
//
// States are stopped and running. Start on a running poller and Stop on a
// stopped one are no-ops. Tick errors and panics are logged and followed by a
// backoff; they never end the loop.
type Poller struct {
	name string
	tick TickFunc
	opts PollerOptions
	log  logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	active   atomic.Int32
	ticks    atomic.Int64
	failures atomic.Int64
}

// NewPoller creates a stopped poller.
func NewPoller(name string, tick TickFunc, opts PollerOptions, log logger.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = DefaultTickTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Poller{name: name, tick: tick, opts: opts, log: log}
}

// Start launches the loop. It returns false if the poller was already
// running, or if a loop left behind by a timed-out Stop has not exited yet.
func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Debug("%s: start ignored, already running", p.name)
		return false
	}
	if p.active.Load() > 0 {
		p.log.Warn("%s: start refused, previous loop still finishing a tick", p.name)
		return false
	}
	if p.opts.OnStart != nil {
		p.opts.OnStart()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.running = true
	p.cancel = cancel
	p.done = done

	p.active.Add(1)
	go p.loop(ctx, done)

	p.log.Debug("%s: started (interval %s)", p.name, p.opts.Interval)
	return true
}

// Stop cancels the loop and waits up to StopTimeout for it to exit. If the
// loop is still inside a tick when the timeout expires, Stop returns an error
// and leaves the goroutine to finish on its own. Its context is cancelled, so
// the result of that tick is dropped, and Start refuses until it exits.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.log.Debug("%s: stop ignored, not running", p.name)
		return nil
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()

	timer := time.NewTimer(p.opts.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		p.log.Debug("%s: stopped", p.name)
		return nil
	case <-timer.C:
		p.log.Warn("%s: loop did not exit within %s, leaving it to finish", p.name, p.opts.StopTimeout)
		return errors.New(errors.ErrMonitor,
			fmt.Sprintf("%s did not stop within %s", p.name, p.opts.StopTimeout),
			"A sampling call is still in flight; its result is dropped and the monitor can be started again once it returns")
	}
}

// Running reports whether the poller is in the running state.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ActiveLoops returns the number of loop goroutines that have not exited.
// It is 1 while running and 0 after a clean stop.
func (p *Poller) ActiveLoops() int {
	return int(p.active.Load())
}

// Ticks returns how many ticks have completed, successful or not.
func (p *Poller) Ticks() int64 {
	return p.ticks.Load()
}

// Failures returns how many ticks returned an error or panicked.
func (p *Poller) Failures() int64 {
	return p.failures.Load()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.active.Add(-1)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		started := time.Now()
		err := p.runTick(ctx)
		p.ticks.Add(1)
		if ctx.Err() != nil {
			return
		}

		wait := p.opts.Interval - time.Since(started)
		if err != nil {
			p.failures.Add(1)
			p.log.Warn("%s: tick failed: %v", p.name, err)
			wait = p.opts.Backoff
		}
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (p *Poller) runTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in tick: %v", r)
		}
	}()

	tickCtx, cancel := context.WithTimeout(ctx, p.opts.TickTimeout)
	defer cancel()
	return p.tick(tickCtx)
}
