package cli

import (
	"fmt"
	"os"

	"github.com/rileyhilliard/procmon/internal/ui"
	"github.com/spf13/cobra"
)

// NoColorEnv disables colored output when set to any value.
const NoColorEnv = "NO_COLOR"

// Global flags
var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
)

// rootCmd runs the dashboard when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "procmon",
	Short: "Watch processes and system performance from the terminal",
	Long: `procmon samples the local process table and system counters in the
background and shows them in a live dashboard.

Run without arguments to open the dashboard. The subcommands print one-shot
snapshots, terminate processes, and query the termination history.

Examples:
  procmon
  procmon ps --sort cpu --limit 10
  procmon kill 4242
  procmon history --since 24h`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag || os.Getenv(NoColorEnv) != "" {
			ui.DisableColors()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(monitorOptions{})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.config/procmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print machine-readable JSON")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if MachineMode() {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
