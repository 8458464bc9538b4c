package cli

import (
	"os"
	"time"

	"github.com/rileyhilliard/procmon/internal/dashboard"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type monitorOptions struct {
	Interval time.Duration
	Refresh  time.Duration
}

var monitorFlags monitorOptions

// monitorCmd opens the live dashboard.
var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"top"},
	Short:   "Open the live dashboard",
	Long: `Open the live process and performance dashboard.

The process list and system counters are sampled in the background. Select a
process with the arrow keys and press x to terminate it. If that fails for
lack of privileges and terminate.escalate is enabled, press e to retry with
elevated privileges.

Examples:
  procmon monitor
  procmon monitor --interval 5s
  procmon top`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(monitorFlags)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorFlags.Interval, "interval", 0, "process list refresh interval (overrides processes.interval)")
	monitorCmd.Flags().DurationVar(&monitorFlags.Refresh, "refresh", 0, "screen redraw interval (overrides dashboard.refresh)")
}

func monitorCommand(opts monitorOptions) error {
	if machineMode {
		return errors.New(errors.ErrConfig,
			"The dashboard has no JSON output",
			"Use 'procmon ps --json' or 'procmon info --json' for machine-readable snapshots")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrConfig,
			"The dashboard needs an interactive terminal",
			"Use 'procmon ps' to print a snapshot instead")
	}

	a, err := loadApp(appOptions{Store: true, Feed: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Interval > 0 {
		a.cfg.Processes.Interval = opts.Interval
	}
	refresh := a.cfg.Dashboard.Refresh
	if opts.Refresh > 0 {
		refresh = opts.Refresh
	}

	dashOpts := dashboard.Options{
		Processes:     a.processMonitor(-1),
		Performance:   a.performanceMonitor(),
		Info:          a.source,
		Feed:          a.feed,
		Refresh:       refresh,
		AllowElevated: a.cfg.Terminate.Escalate,
		Log:           logger.New(a.base, "dashboard"),
	}
	if a.store != nil {
		dashOpts.History = a.store
	}

	a.log.Info("dashboard starting (config %s)", configLabel(a.cfgPath))
	err = dashboard.Run(dashOpts)
	a.log.Info("dashboard stopped")
	return err
}
