package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/procmon/internal/errors"
	"gopkg.in/yaml.v3"
)

const fileHeader = `# procmon configuration
# Every setting can be overridden with PROCMON_<SECTION>_<KEY>, e.g. PROCMON_PROCESSES_LIMIT=20
# Durations use Go syntax: 500ms, 2s, 1m

`

// Marshal renders cfg as YAML with the standard header.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}
	return append([]byte(fileHeader), data...), nil
}

// Write saves cfg to path, creating parent directories. An existing file is
// only replaced when force is set.
func Write(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite it")
	}

	content, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to create config directory for %s", path),
			"Check directory permissions")
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}
	return nil
}
