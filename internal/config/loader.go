package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for config, database and logs, relative to home.
	GlobalConfigDir = ".config/procmon"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. PROCMON_PROCESSES_LIMIT.
	EnvPrefix = "PROCMON"
)

// Load reads config from the specified path. Environment overrides apply on top.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'procmon config init' to create one, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file:
// 1. Explicit path (from --config flag)
// 2. ~/.config/procmon/config.yaml
//
// Returns an empty string if neither exists.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	path := GlobalPath()
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", nil
}

// GlobalPath returns the default config file location, or "" when the home
// directory is unknown.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads the config Find returns, or defaults plus environment
// overrides when there is no file.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.Storage.Path = ExpandTilde(cfg.Storage.Path)
	cfg.Logging.Dir = ExpandTilde(cfg.Logging.Dir)
	return cfg, nil
}

// setDefaults registers every key with viper. AutomaticEnv only reaches keys
// viper already knows about, so this is what makes PROCMON_* overrides work
// for settings missing from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("processes.interval", d.Processes.Interval.String())
	v.SetDefault("processes.limit", d.Processes.Limit)
	v.SetDefault("performance.interval", d.Performance.Interval.String())
	v.SetDefault("performance.history", d.Performance.History)
	v.SetDefault("poller.backoff", d.Poller.Backoff.String())
	v.SetDefault("poller.stop_timeout", d.Poller.StopTimeout.String())
	v.SetDefault("terminate.timeout", d.Terminate.Timeout.String())
	v.SetDefault("terminate.escalate", d.Terminate.Escalate)
	v.SetDefault("terminate.terminated_by", d.Terminate.TerminatedBy)
	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.persist", d.Logging.Persist)
	v.SetDefault("logging.feed_size", d.Logging.FeedSize)
	v.SetDefault("dashboard.refresh", d.Dashboard.Refresh.String())
}
