package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Tab identifies a dashboard page.
type Tab int

const (
	TabProcesses Tab = iota
	TabPerformance
	TabSystem
	TabHistory
	TabLog
)

var tabNames = []string{"Processes", "Performance", "System", "History", "Log"}

// String returns the tab's title.
func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "unknown"
	}
	return tabNames[t]
}

// Next cycles forward through the tabs.
func (t Tab) Next() Tab {
	return (t + 1) % Tab(len(tabNames))
}

// Prev cycles backward through the tabs.
func (t Tab) Prev() Tab {
	return (t + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
}

// Key bindings as constants for consistency.
const (
	KeyQuit       = "q"
	KeyQuitAlt    = "ctrl+c"
	KeyRefresh    = "r"
	KeyCycleSort  = "s"
	KeyPause      = "p"
	KeyTerminate  = "x"
	KeyEscalate   = "e"
	KeyConfirm    = "y"
	KeyConfirmAlt = "enter"
	KeyCancel     = "n"
	KeyEscape     = "esc"
	KeyNextTab    = "tab"
	KeyPrevTab    = "shift+tab"
	KeyToggleHelp = "?"
	KeyFilter     = "/"
)

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyQuitAlt {
		m.quitting = true
		return true, tea.Quit
	}

	// A pending confirmation swallows everything else.
	if m.confirm != nil {
		switch key {
		case KeyConfirm, KeyConfirmAlt:
			req := *m.confirm
			m.confirm = nil
			return true, m.startTerminate(req)
		case KeyCancel, KeyEscape:
			m.setStatus("Cancelled", false)
			m.confirm = nil
		}
		return true, nil
	}

	// The search box takes every key until enter or esc.
	if m.filtering {
		switch key {
		case KeyConfirmAlt:
			m.endFilter(false)
			return true, nil
		case KeyEscape:
			m.endFilter(true)
			return true, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if v := m.search.Value(); v != m.filter {
			m.setFilter(v)
		}
		return true, cmd
	}

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyEscape {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit:
		m.quitting = true
		return true, tea.Quit

	case KeyNextTab:
		return true, m.switchTab(m.tab.Next())

	case KeyPrevTab:
		return true, m.switchTab(m.tab.Prev())

	case "1", "2", "3", "4", "5":
		return true, m.switchTab(Tab(key[0] - '1'))

	case KeyPause:
		return true, m.togglePause()

	case KeyRefresh:
		return true, m.refresh()

	case KeyEscape:
		m.escalate = nil
		m.status = ""
		if m.filter != "" {
			m.endFilter(true)
		}
		return true, nil
	}

	if m.tab != TabProcesses {
		return false, nil
	}

	switch key {
	case KeyCycleSort:
		m.sortKey = m.sortKey.Next()
		m.applyProcesses(m.all)
		return true, nil

	case KeyFilter:
		return true, m.startFilter()

	case KeyTerminate:
		m.requestTerminate()
		return true, nil

	case KeyEscalate:
		if m.escalate == nil {
			return false, nil
		}
		req := *m.escalate
		m.escalate = nil
		return true, m.startTerminate(req)
	}

	// Everything else goes to the table for navigation.
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.syncSelection()
	return true, cmd
}
