// Package testing provides test doubles for the provider package.
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/procmon/internal/provider"
)

// KillCall records a call to Kill or KillElevated.
type KillCall struct {
	PID      int32
	Elevated bool
}

// FakeProvider is a scripted provider.Provider and provider.InfoSource.
// Zero values succeed with empty results. All fields may be changed between
// calls while holding no locks; use the setters when a poller is running.
type FakeProvider struct {
	mu sync.Mutex

	// Process listing
	Processes []provider.ProcessRecord
	ListErr   error
	ListPanic any

	// Counters are returned in order; the last one repeats once exhausted.
	Counters    []provider.Counters
	CountersErr error

	// Kill behaviour, keyed by PID. A PID absent from KillErrs succeeds.
	KillErrs         map[int32]error
	KillElevatedErrs map[int32]error

	// Block, when non-nil, makes every call wait until it is closed or the
	// context is done. IgnoreContext makes the wait ignore the context.
	Block         chan struct{}
	IgnoreContext bool

	Info    provider.SystemInfo
	InfoErr error

	// Call tracking
	ListCalls     int
	CounterCalls  int
	KillCalls     []KillCall
	InfoCalls     int
	counterCursor int
}

// NewFakeProvider creates a fake that returns the given processes.
func NewFakeProvider(processes ...provider.ProcessRecord) *FakeProvider {
	return &FakeProvider{Processes: processes}
}

// SetProcesses replaces the process list.
func (f *FakeProvider) SetProcesses(processes ...provider.ProcessRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Processes = processes
}

// SetListErr makes ListProcesses fail with err (nil to succeed again).
func (f *FakeProvider) SetListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListErr = err
}

// SetCountersErr makes SampleCounters fail with err (nil to succeed again).
func (f *FakeProvider) SetCountersErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CountersErr = err
}

// Calls returns the number of ListProcesses and SampleCounters calls so far.
func (f *FakeProvider) Calls() (list, counters int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ListCalls, f.CounterCalls
}

// Kills returns a copy of the recorded kill calls.
func (f *FakeProvider) Kills() []KillCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]KillCall, len(f.KillCalls))
	copy(out, f.KillCalls)
	return out
}

func (f *FakeProvider) wait(ctx context.Context) error {
	f.mu.Lock()
	block, ignore := f.Block, f.IgnoreContext
	f.mu.Unlock()

	if block == nil {
		return nil
	}
	if ignore {
		<-block
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListProcesses implements provider.Provider.
func (f *FakeProvider) ListProcesses(ctx context.Context) ([]provider.ProcessRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	if f.ListPanic != nil {
		panic(f.ListPanic)
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]provider.ProcessRecord, len(f.Processes))
	copy(out, f.Processes)
	return out, nil
}

// SampleCounters implements provider.Provider.
func (f *FakeProvider) SampleCounters(ctx context.Context) (provider.Counters, error) {
	if err := f.wait(ctx); err != nil {
		return provider.Counters{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.CounterCalls++

	if f.CountersErr != nil {
		return provider.Counters{}, f.CountersErr
	}
	if len(f.Counters) == 0 {
		return provider.Counters{Time: time.Now()}, nil
	}
	c := f.Counters[f.counterCursor]
	if f.counterCursor < len(f.Counters)-1 {
		f.counterCursor++
	}
	return c, nil
}

// Kill implements provider.Provider.
func (f *FakeProvider) Kill(ctx context.Context, pid int32) error {
	return f.kill(ctx, pid, false)
}

// KillElevated implements provider.Provider.
func (f *FakeProvider) KillElevated(ctx context.Context, pid int32) error {
	return f.kill(ctx, pid, true)
}

func (f *FakeProvider) kill(ctx context.Context, pid int32, elevated bool) error {
	f.mu.Lock()
	f.KillCalls = append(f.KillCalls, KillCall{PID: pid, Elevated: elevated})
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	errs := f.KillErrs
	if elevated {
		errs = f.KillElevatedErrs
	}
	if err, ok := errs[pid]; ok && err != nil {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return nil
}

// SystemInfo implements provider.InfoSource.
func (f *FakeProvider) SystemInfo(ctx context.Context) (provider.SystemInfo, error) {
	if err := f.wait(ctx); err != nil {
		return provider.SystemInfo{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.InfoCalls++
	if f.InfoErr != nil {
		return provider.SystemInfo{}, f.InfoErr
	}
	return f.Info, nil
}

var (
	_ provider.Provider   = (*FakeProvider)(nil)
	_ provider.InfoSource = (*FakeProvider)(nil)
)
