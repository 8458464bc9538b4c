package cli

import (
	"context"
	"io"

	"github.com/rileyhilliard/procmon/internal/config"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/monitor"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/sirupsen/logrus"
)

// metricsSource is what the monitors and the info command read from.
type metricsSource interface {
	provider.Provider
	provider.InfoSource
}

// appOptions selects which optional pieces newApp builds.
type appOptions struct {
	// Store opens the database even for commands that only write to it
	// through a termination.
	Store bool
	// StoreOptional keeps going without a store when it can't be opened,
	// for commands whose main job must not depend on the history.
	StoreOptional bool
	// StoreOptions is passed to store.Open.
	StoreOptions store.Options
	// Feed keeps recent log lines in memory for the dashboard.
	Feed bool
	// LogOutput replaces the dated log file, mainly for tests.
	LogOutput io.Writer
}

// app holds everything a command needs, built from one loaded config.
type app struct {
	cfg     *config.Config
	cfgPath string

	base  *logrus.Logger
	log   logger.Logger
	feed  *logger.Feed
	hook  *logger.StoreHook
	store *store.Store
	// storeErr is why an optional store was skipped.
	storeErr error

	source metricsSource

	closers []io.Closer
}

// loadApp loads and validates the config selected by --config and builds
// the app from it.
func loadApp(opts appOptions) (*app, error) {
	cfg, path, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	a, err := newApp(cfg, opts)
	if err != nil {
		return nil, err
	}
	a.cfgPath = path
	return a, nil
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	level := cfg.Logging.Level
	if verboseFlag {
		level = "debug"
	}
	logOpts := logger.Options{Level: level, Dir: cfg.Logging.Dir}
	if opts.LogOutput != nil {
		logOpts = logger.Options{Level: level, Output: opts.LogOutput}
	}
	base, closer, err := logger.NewBase(logOpts)
	if err != nil {
		return nil, err
	}
	a.base = base
	a.closers = append(a.closers, closer)
	a.log = logger.New(base, "cli")

	if opts.Feed {
		a.feed = logger.NewFeed(cfg.Logging.FeedSize, base.GetLevel())
		base.AddHook(a.feed)
	}

	if opts.Store && cfg.Storage.Enabled {
		s, err := store.Open(cfg.Storage.Path, opts.StoreOptions)
		switch {
		case err != nil && opts.StoreOptional:
			a.storeErr = err
			a.log.Warn("continuing without history: %v", err)
		case err != nil:
			a.Close()
			return nil, err
		default:
			a.store = s
			if cfg.Logging.Persist {
				a.hook = logger.NewStoreHook(s, persistLevel(cfg.Logging.Level))
				base.AddHook(a.hook)
			}
		}
	}

	a.source = provider.NewGopsutil(logger.New(base, "provider"))
	return a, nil
}

// persistLevel is logging.level, ignoring --verbose, so debug output never
// fills the database.
func persistLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// processMonitor builds a stopped process monitor from the config. limit
// overrides processes.limit when non-negative.
func (a *app) processMonitor(limit int) *monitor.ProcessMonitor {
	opts := monitor.ProcessOptions{
		Interval:         a.cfg.Processes.Interval,
		Limit:            a.cfg.Processes.Limit,
		Backoff:          a.cfg.Poller.Backoff,
		StopTimeout:      a.cfg.Poller.StopTimeout,
		TerminateTimeout: a.cfg.Terminate.Timeout,
		AllowElevated:    a.cfg.Terminate.Escalate,
		TerminatedBy:     a.cfg.Terminate.TerminatedBy,
	}
	if limit >= 0 {
		opts.Limit = limit
	}
	if a.store != nil {
		opts.Recorder = terminationRecorder(a.store)
	}
	return monitor.NewProcessMonitor(a.source, opts, logger.New(a.base, "process-monitor"))
}

func (a *app) performanceMonitor() *monitor.PerformanceMonitor {
	return monitor.NewPerformanceMonitor(a.source, monitor.PerformanceOptions{
		Interval:    a.cfg.Performance.Interval,
		History:     a.cfg.Performance.History,
		Backoff:     a.cfg.Poller.Backoff,
		StopTimeout: a.cfg.Poller.StopTimeout,
	}, logger.New(a.base, "performance-monitor"))
}

// requireStore returns the store or a config error when storage is off.
func (a *app) requireStore() (*store.Store, error) {
	if a.store == nil {
		return nil, errStorageDisabled
	}
	return a.store, nil
}

// Close releases the store and the log file, in reverse order of creation.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store: %v", err)
		}
		a.store = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

// terminationRecorder persists successful terminations to s.
func terminationRecorder(s *store.Store) monitor.RecorderFunc {
	return func(ctx context.Context, t monitor.Termination) error {
		_, err := s.AddTerminatedProcess(ctx, store.TerminatedProcess{
			Time:         t.Time,
			Name:         t.Process.Name,
			PID:          t.Process.PID,
			MemoryMB:     t.Process.MemoryMB,
			CPUPercent:   t.Process.CPUPercent,
			Status:       t.Process.Status,
			TerminatedBy: t.TerminatedBy,
			Elevated:     t.Elevated,
		})
		return err
	}
}
