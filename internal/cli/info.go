package cli

import (
	"context"
	"time"

	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/spf13/cobra"
)

// infoCmd prints static host information.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system information",
	Long: `Show the host name, operating system, CPU, memory, disks and network
interfaces of this machine.

Examples:
  procmon info
  procmon info --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		info, err := a.source.SystemInfo(ctx)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrProvider,
				"Couldn't read system information", "")
		}
		w := cmd.OutOrStdout()
		if machineMode {
			return WriteJSONSuccess(w, info)
		}
		renderSystemInfo(w, info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
