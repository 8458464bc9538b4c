package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historySinceFlag string
)

// historyCmd lists terminated processes.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List terminated processes",
	Long: `List processes terminated through procmon, newest first.

Examples:
  procmon history
  procmon history --since 24h
  procmon history --limit 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := parseSince(historySinceFlag, time.Now())
		if err != nil {
			return err
		}

		a, err := loadApp(appOptions{Store: true})
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.requireStore()
		if err != nil {
			return err
		}
		return writeHistory(cmd.Context(), cmd.OutOrStdout(), s, store.Query{Limit: historyLimitFlag, Since: since})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "number of entries to show, 0 for all")
	historyCmd.Flags().StringVar(&historySinceFlag, "since", "", "only show entries newer than this (e.g. 30m, 24h, 7d)")
}

func writeHistory(ctx context.Context, w io.Writer, s *store.Store, q store.Query) error {
	recs, err := s.TerminatedProcesses(ctx, q)
	if err != nil {
		return err
	}
	if machineMode {
		if recs == nil {
			recs = []store.TerminatedProcess{}
		}
		return WriteJSONSuccess(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No terminated processes recorded.")
		return nil
	}
	renderHistoryTable(w, recs)
	return nil
}
