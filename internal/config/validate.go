package config

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/sirupsen/logrus"
)

const (
	// MinInterval is the shortest accepted poll interval.
	MinInterval = 100 * time.Millisecond
	// MinRefresh is the shortest accepted dashboard refresh.
	MinRefresh = 16 * time.Millisecond
	// MaxHistory caps performance.history.
	MaxHistory = 3600
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but procmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade procmon or regenerate the file with 'procmon config init --force'")
	}

	checks := []struct {
		section string
		fn      func() error
	}{
		{"processes", func() error { return validateProcesses(cfg.Processes) }},
		{"performance", func() error { return validatePerformance(cfg.Performance) }},
		{"poller", func() error { return validatePoller(cfg.Poller) }},
		{"terminate", func() error { return validateTerminate(cfg.Terminate) }},
		{"storage", func() error { return validateStorage(cfg.Storage) }},
		{"logging", func() error { return validateLogging(cfg.Logging) }},
		{"dashboard", func() error { return validateDashboard(cfg.Dashboard) }},
	}
	for _, c := range checks {
		if err := c.fn(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				fmt.Sprintf("Check the '%s' section in your config.", c.section))
		}
	}
	return nil
}

func validateProcesses(p ProcessesConfig) error {
	if p.Interval < MinInterval {
		return fmt.Errorf("processes.interval %v is too short - use at least %v", p.Interval, MinInterval)
	}
	if p.Limit < 0 {
		return fmt.Errorf("processes.limit can't be negative - use 0 to show every process")
	}
	return nil
}

func validatePerformance(p PerformanceConfig) error {
	if p.Interval < MinInterval {
		return fmt.Errorf("performance.interval %v is too short - use at least %v", p.Interval, MinInterval)
	}
	if p.History < 1 || p.History > MaxHistory {
		return fmt.Errorf("performance.history %d is out of range - use 1 to %d samples", p.History, MaxHistory)
	}
	return nil
}

func validatePoller(p PollerConfig) error {
	if p.Backoff < 0 {
		return fmt.Errorf("poller.backoff can't be negative")
	}
	if p.StopTimeout < 0 {
		return fmt.Errorf("poller.stop_timeout can't be negative")
	}
	return nil
}

func validateTerminate(t TerminateConfig) error {
	if t.Timeout < 0 {
		return fmt.Errorf("terminate.timeout can't be negative")
	}
	if t.TerminatedBy == "" {
		return fmt.Errorf("terminate.terminated_by is empty - it's recorded with every termination, try 'user'")
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	if s.Enabled && s.Path == "" {
		return fmt.Errorf("storage.path is empty - set a database path or storage.enabled: false")
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("logging.level '%s' isn't valid - use debug, info, warn, or error", l.Level)
	}
	if l.FeedSize < 0 {
		return fmt.Errorf("logging.feed_size can't be negative")
	}
	return nil
}

func validateDashboard(d DashboardConfig) error {
	if d.Refresh < MinRefresh {
		return fmt.Errorf("dashboard.refresh %v is too short - use at least %v", d.Refresh, MinRefresh)
	}
	return nil
}
