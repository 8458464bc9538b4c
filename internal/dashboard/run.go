package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/procmon/internal/errors"
)

// Run starts both monitors, shows the dashboard until the user quits, then
// stops the monitors and detaches from them.
func Run(opts Options, programOpts ...tea.ProgramOption) error {
	opts.Processes.Start()
	opts.Performance.Start()

	m := NewModel(opts)
	defer m.Detach()

	if len(programOpts) == 0 {
		programOpts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	_, runErr := tea.NewProgram(m, programOpts...).Run()

	log := m.log
	for _, stop := range []func() error{opts.Processes.Stop, opts.Performance.Stop} {
		if err := stop(); err != nil {
			log.Warn("shutdown: %v", err)
		}
	}

	if runErr != nil {
		return errors.WrapWithCode(runErr, errors.ErrMonitor,
			"Dashboard exited with an error",
			"Check that the terminal supports full-screen programs, or use 'procmon ps'")
	}
	return nil
}
