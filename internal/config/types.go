package config

import "time"

// CurrentConfigVersion is the config schema version this build writes.
const CurrentConfigVersion = 1

// Config is the procmon configuration.
type Config struct {
	Version     int               `yaml:"version" mapstructure:"version"`
	Processes   ProcessesConfig   `yaml:"processes" mapstructure:"processes"`
	Performance PerformanceConfig `yaml:"performance" mapstructure:"performance"`
	Poller      PollerConfig      `yaml:"poller" mapstructure:"poller"`
	Terminate   TerminateConfig   `yaml:"terminate" mapstructure:"terminate"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Dashboard   DashboardConfig   `yaml:"dashboard" mapstructure:"dashboard"`
}

// ProcessesConfig controls the process list poller.
type ProcessesConfig struct {
	// Interval between process list refreshes.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Limit keeps only the top N processes by memory. 0 keeps all of them.
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// PerformanceConfig controls the counters poller.
type PerformanceConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// History is the number of samples kept per series.
	History int `yaml:"history" mapstructure:"history"`
}

// PollerConfig holds settings shared by both pollers.
type PollerConfig struct {
	// Backoff is the wait after a failed tick.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`

	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// TerminateConfig controls process termination.
type TerminateConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Escalate allows retrying a denied termination with sudo (or taskkill on Windows).
	Escalate bool `yaml:"escalate" mapstructure:"escalate"`

	// TerminatedBy is recorded with every termination.
	TerminatedBy string `yaml:"terminated_by" mapstructure:"terminated_by"`
}

// StorageConfig controls the history database.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig controls the log file, the persisted log and the dashboard feed.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	Dir   string `yaml:"dir" mapstructure:"dir"`

	// Persist writes log entries at Level or above into the database.
	Persist bool `yaml:"persist" mapstructure:"persist"`

	// FeedSize is the number of lines kept for the dashboard log tab.
	FeedSize int `yaml:"feed_size" mapstructure:"feed_size"`
}

// DashboardConfig controls the TUI.
type DashboardConfig struct {
	// Refresh is how often the dashboard drains pending samples.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Processes: ProcessesConfig{
			Interval: 2 * time.Second,
			Limit:    50,
		},
		Performance: PerformanceConfig{
			Interval: time.Second,
			History:  60,
		},
		Poller: PollerConfig{
			Backoff:     time.Second,
			StopTimeout: time.Second,
		},
		Terminate: TerminateConfig{
			Timeout:      5 * time.Second,
			Escalate:     false,
			TerminatedBy: "user",
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "~/" + GlobalConfigDir + "/procmon.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Dir:      "~/" + GlobalConfigDir + "/logs",
			Persist:  true,
			FeedSize: 200,
		},
		Dashboard: DashboardConfig{
			Refresh: 250 * time.Millisecond,
		},
	}
}

// Durations marshal as strings ("2s") so a written config reads back the same.

func (c ProcessesConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Interval string `yaml:"interval"`
		Limit    int    `yaml:"limit"`
	}{c.Interval.String(), c.Limit}, nil
}

func (c PerformanceConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Interval string `yaml:"interval"`
		History  int    `yaml:"history"`
	}{c.Interval.String(), c.History}, nil
}

func (c PollerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Backoff     string `yaml:"backoff"`
		StopTimeout string `yaml:"stop_timeout"`
	}{c.Backoff.String(), c.StopTimeout.String()}, nil
}

func (c TerminateConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Timeout      string `yaml:"timeout"`
		Escalate     bool   `yaml:"escalate"`
		TerminatedBy string `yaml:"terminated_by"`
	}{c.Timeout.String(), c.Escalate, c.TerminatedBy}, nil
}

func (c DashboardConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Refresh string `yaml:"refresh"`
	}{c.Refresh.String()}, nil
}
