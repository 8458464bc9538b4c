package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/monitor"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/spf13/cobra"
)

var (
	psSortFlag   string
	psLimitFlag  int
	psFilterFlag string
)

// psCmd prints one snapshot of the process list.
var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "Print the process list",
	Long: `Print a snapshot of running processes, heaviest memory users first.

Examples:
  procmon ps
  procmon ps --sort cpu --limit 10
  procmon ps --filter chrome
  procmon ps --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := monitor.ParseSortKey(psSortFlag)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Unknown sort order '%s'", psSortFlag),
				"Use one of: memory, cpu, name, pid")
		}

		a, err := loadApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		// Sorting by anything other than memory needs the whole table
		// before the limit is applied.
		limit := psLimitFlag
		if limit < 0 {
			limit = a.cfg.Processes.Limit
		}
		procs, err := a.processMonitor(0).Refresh(ctx)
		if err != nil {
			return err
		}
		return writeProcesses(cmd.OutOrStdout(), procs, key, limit, psFilterFlag)
	},
}

func init() {
	rootCmd.AddCommand(psCmd)
	psCmd.Flags().StringVarP(&psSortFlag, "sort", "s", "memory", "sort order: memory, cpu, name, pid")
	psCmd.Flags().IntVarP(&psLimitFlag, "limit", "n", -1, "number of processes to show, 0 for all (default processes.limit)")
	psCmd.Flags().StringVarP(&psFilterFlag, "filter", "f", "", "only show processes whose name, pid, memory, cpu or status contains this text")
}

// writeProcesses filters, sorts, limits and prints procs as a table or JSON.
func writeProcesses(w io.Writer, procs []provider.ProcessRecord, key monitor.SortKey, limit int, filter string) error {
	if filter != "" {
		procs = monitor.FilterProcesses(procs, filter)
	}
	monitor.SortProcesses(procs, key)
	if limit > 0 && len(procs) > limit {
		procs = procs[:limit]
	}

	if machineMode {
		if procs == nil {
			procs = []provider.ProcessRecord{}
		}
		return WriteJSONSuccess(w, procs)
	}
	if len(procs) == 0 && filter != "" {
		fmt.Fprintf(w, "No processes match '%s'.\n", filter)
		return nil
	}
	if len(procs) == 0 {
		fmt.Fprintln(w, "No processes found.")
		return nil
	}
	renderProcessTable(w, procs)
	return nil
}
