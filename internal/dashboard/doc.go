// Package dashboard implements procmon's full-screen TUI.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: process list, latest performance sample, system info, history and UI state
//   - Update: keystrokes, refresh ticks, termination results
//   - View: renders the active tab
//
// # Message Flow
//
// The monitors poll on their own goroutines and queue updates for registered
// consumers. The dashboard never touches monitor data from another goroutine:
//
//  1. NewModel registers one consumer on each monitor
//  2. refreshMsg fires every Options.Refresh (default 250ms)
//  3. Update drains both callback queues; the consumers run right there on
//     the UI goroutine and fill the model's inbox
//  4. View() renders the new state
//
// Termination runs as a tea.Cmd so a slow kill never blocks rendering. The
// result comes back as terminateResultMsg. A permission failure offers an
// elevated retry when Options.AllowElevated is set.
//
// # Tabs
//
//	1 Processes    - sortable process table, terminate with x then y
//	2 Performance  - CPU and memory graphs, disk and network rates
//	3 System       - host, CPU, memory, disks and interfaces
//	4 History      - persisted terminations, newest first
//	5 Log          - recent log lines from the in-memory feed
package dashboard
