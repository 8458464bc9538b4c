package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/monitor"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	killYesFlag      bool
	killEscalateFlag bool
)

// killCmd terminates one process.
var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate a process",
	Long: `Ask a process to terminate and record it in the termination history.

You are asked to confirm unless --yes is given. If the termination is refused
for lack of privileges, --escalate retries once with elevated privileges
(sudo -n on Linux and macOS, taskkill /F on Windows). It never prompts for a
password.

Examples:
  procmon kill 4242
  procmon kill 4242 --yes
  procmon kill 4242 --escalate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		return killCommand(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), pid)
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
	killCmd.Flags().BoolVarP(&killYesFlag, "yes", "y", false, "skip the confirmation prompt")
	killCmd.Flags().BoolVar(&killEscalateFlag, "escalate", false, "retry with elevated privileges if permission is denied")
}

// confirmTerminate asks the user before terminating. Tests replace it.
var confirmTerminate = func(rec provider.ProcessRecord) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Terminate %s (pid %d)?", rec.Name, rec.PID)).
				Description(fmt.Sprintf("Using %.1f MB of memory", rec.MemoryMB)).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, nil
	}
	return ok, nil
}

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// killCommand opens the history best-effort: a locked or broken database
// only means the termination goes unrecorded.
func killCommand(ctx context.Context, w, errW io.Writer, pid int32) error {
	a, err := loadApp(appOptions{Store: true, StoreOptional: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.storeErr != nil && !machineMode {
		fmt.Fprintf(errW, "%s %s\n", ui.WarnStyle.Render(ui.SymbolWarning),
			"History is unavailable, this termination will not be recorded: "+errorSummary(a.storeErr))
	}

	if killEscalateFlag {
		a.cfg.Terminate.Escalate = true
	}
	return killProcess(ctx, w, a.processMonitor(0), pid, killOptions{
		Yes:      killYesFlag,
		Escalate: killEscalateFlag,
	})
}

type killOptions struct {
	Yes      bool
	Escalate bool
}

type killResult struct {
	PID      int32   `json:"pid"`
	Name     string  `json:"name"`
	MemoryMB float64 `json:"memory_mb"`
	Elevated bool    `json:"elevated"`
}

// killProcess finds pid in a fresh listing, confirms, terminates and reports.
func killProcess(ctx context.Context, w io.Writer, pm *monitor.ProcessMonitor, pid int32, opts killOptions) error {
	procs, err := pm.Refresh(ctx)
	if err != nil {
		return err
	}
	target, found := findProcess(procs, pid)
	if !found {
		return errors.WrapWithCode(provider.ErrNoSuchProcess, errors.ErrTerminate,
			fmt.Sprintf("Process %d not found", pid),
			"Check the PID with 'procmon ps'")
	}

	if !opts.Yes {
		if machineMode || !stdinIsTerminal() {
			return errors.New(errors.ErrTerminate,
				fmt.Sprintf("Refusing to terminate %s (pid %d) without confirmation", target.Name, pid),
				"Pass --yes to terminate without a prompt")
		}
		ok, err := confirmTerminate(target)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, ui.MutedStyle.Render("Cancelled."))
			return nil
		}
	}

	elevated := false
	err = pm.Terminate(ctx, pid)
	if err != nil && opts.Escalate && monitor.IsPermissionDenied(err) {
		elevated = true
		err = pm.TerminateElevated(ctx, pid)
	}
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, killResult{
			PID:      pid,
			Name:     target.Name,
			MemoryMB: target.MemoryMB,
			Elevated: elevated,
		})
	}
	msg := fmt.Sprintf("%s Terminated %s (pid %d)", ui.SymbolSuccess, target.Name, pid)
	if elevated {
		msg += " with elevated privileges"
	}
	fmt.Fprintln(w, ui.SuccessStyle.Render(msg))
	return nil
}

func findProcess(procs []provider.ProcessRecord, pid int32) (provider.ProcessRecord, bool) {
	for _, p := range procs {
		if p.PID == pid {
			return p, true
		}
	}
	return provider.ProcessRecord{}, false
}
