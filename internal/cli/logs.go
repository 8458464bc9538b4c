package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logsLimitFlag int
	logsLevelFlag string
	logsSinceFlag string
)

// logsCmd shows persisted log entries.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show persisted log entries",
	Long: `Show log entries stored in the procmon database, oldest first.

Entries are persisted when logging.persist is enabled. The full log, including
debug lines, is also written to a dated file under logging.dir.

Examples:
  procmon logs
  procmon logs --level error
  procmon logs --since 1h --limit 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsLevelFlag != "" {
			if _, err := logrus.ParseLevel(logsLevelFlag); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Unknown log level '%s'", logsLevelFlag),
					"Use one of: debug, info, warn, error")
			}
		}
		since, err := parseSince(logsSinceFlag, time.Now())
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
		err = writeLogs(cmd.Context(), cmd.OutOrStdout(), s, store.Query{
			Limit: logsLimitFlag,
			Since: since,
			Level: normalizeLevel(logsLevelFlag),
		})
		if err == nil && !machineMode {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nFull log: %s\n", logger.FilePath(a.cfg.Logging.Dir, time.Now()))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLimitFlag, "limit", "n", 50, "number of entries to show, 0 for all")
	logsCmd.Flags().StringVar(&logsLevelFlag, "level", "", "only show entries at this level")
	logsCmd.Flags().StringVar(&logsSinceFlag, "since", "", "only show entries newer than this (e.g. 30m, 24h, 7d)")
}

// normalizeLevel maps a level name to the form stored in the database.
func normalizeLevel(name string) string {
	if name == "" {
		return ""
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return name
	}
	return lvl.String()
}

func writeLogs(ctx context.Context, w io.Writer, s *store.Store, q store.Query) error {
	entries, err := s.Logs(ctx, q)
	if err != nil {
		return err
	}
	if machineMode {
		if entries == nil {
			entries = []store.LogEntry{}
		}
		return WriteJSONSuccess(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No log entries recorded.")
		return nil
	}
	renderLogEntries(w, entries)
	return nil
}
