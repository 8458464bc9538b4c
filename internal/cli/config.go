package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/procmon/internal/config"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/ui"
	"github.com/spf13/cobra"
)

var configInitForce bool

// configCmd groups the config subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create and inspect the procmon config",
	Long: `Create and inspect the procmon configuration file.

The config lives at ~/.config/procmon/config.yaml unless --config is given.
Every setting can also be overridden with PROCMON_<SECTION>_<KEY>.

Examples:
  procmon config init
  procmon config show
  procmon config path`,
}

// configInitCmd writes a config file with the defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write a config file containing every setting at its default value.

Examples:
  procmon config init
  procmon config init --force
  procmon --config ./procmon.yaml config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInit(cmd.OutOrStdout(), configFlag, configInitForce)
	},
}

// configShowCmd prints the effective config.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	Long: `Print the config procmon would run with: the file merged with defaults
and environment overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := config.LoadOrDefault(configFlag)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if machineMode {
			return WriteJSONSuccess(w, map[string]interface{}{
				"path":   path,
				"config": cfg,
			})
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# source: %s\n", configLabel(path))
		_, err = w.Write(data)
		return err
	},
}

// configPathCmd prints where the config file is read from.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFlag
		if path == "" {
			path = config.GlobalPath()
		}
		if path == "" {
			return errors.New(errors.ErrConfig,
				"Couldn't find the home directory",
				"Pass --config with an explicit path")
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
}

func configInit(w io.Writer, path string, force bool) error {
	if path == "" {
		path = config.GlobalPath()
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Couldn't find the home directory",
			"Pass --config with an explicit path")
	}
	if err := config.Write(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	if machineMode {
		return WriteJSONSuccess(w, map[string]string{"path": path})
	}
	fmt.Fprintln(w, ui.SuccessStyle.Render(fmt.Sprintf("%s Wrote %s", ui.SymbolSuccess, path)))
	return nil
}
