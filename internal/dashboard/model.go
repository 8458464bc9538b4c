package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/procmon/internal/errors"
	"github.com/rileyhilliard/procmon/internal/logger"
	"github.com/rileyhilliard/procmon/internal/monitor"
	"github.com/rileyhilliard/procmon/internal/provider"
	"github.com/rileyhilliard/procmon/internal/store"
	"github.com/rileyhilliard/procmon/internal/ui"
)

const (
	// DefaultRefresh is how often the dashboard drains the monitors.
	DefaultRefresh = 250 * time.Millisecond
	// DefaultHistoryLimit caps the History tab.
	DefaultHistoryLimit = 100

	loadTimeout = 5 * time.Second
)

// TerminationHistory reads persisted terminations. *store.Store implements it.
type TerminationHistory interface {
	TerminatedProcesses(ctx context.Context, q store.Query) ([]store.TerminatedProcess, error)
}

// LogFeed exposes recent log lines. *logger.Feed implements it.
type LogFeed interface {
	Lines() []logger.Line
}

// Options wires the dashboard to its data sources. Processes and Performance
// are required; the rest may be nil and their tabs show a placeholder.
type Options struct {
	Processes   *monitor.ProcessMonitor
	Performance *monitor.PerformanceMonitor
	Info        provider.InfoSource
	History     TerminationHistory
	Feed        LogFeed

	Refresh       time.Duration
	HistoryLimit  int
	AllowElevated bool
	Log           logger.Logger
}

// inbox receives consumer callbacks. Drain runs them on the UI goroutine
// inside Update, so no locking is needed.
type inbox struct {
	processes    []provider.ProcessRecord
	hasProcesses bool
	sample       monitor.PerformanceSample
	hasSample    bool
}

// killRequest is a termination waiting for confirmation or escalation.
type killRequest struct {
	pid      int32
	name     string
	elevated bool
}

// Model is the Bubble Tea model for the process dashboard.
type Model struct {
	opts Options
	log  logger.Logger

	in           *inbox
	procConsumer *monitor.Consumer[[]provider.ProcessRecord]
	perfConsumer *monitor.Consumer[monitor.PerformanceSample]

	tab         Tab
	table       table.Model
	all         []provider.ProcessRecord
	processes   []provider.ProcessRecord
	sortKey     monitor.SortKey
	selectedPID int32

	// search edits filter while filtering is set.
	search    textinput.Model
	filter    string
	filtering bool

	sample    monitor.PerformanceSample
	hasSample bool

	info       provider.SystemInfo
	infoErr    error
	infoLoaded bool

	history       []store.TerminatedProcess
	historyErr    error
	historyLoaded bool

	paused      bool
	pausing     bool
	terminating bool
	confirm     *killRequest
	escalate    *killRequest
	status      string
	statusErr   bool

	lastUpdate time.Time
	width      int
	height     int
	showHelp   bool
	quitting   bool
}

// refreshMsg drives the drain cycle.
type refreshMsg time.Time

type terminateResultMsg struct {
	req killRequest
	err error
}

// pauseResultMsg reports monitors stopped off the UI goroutine.
type pauseResultMsg struct {
	errs []error
}

type infoMsg struct {
	info provider.SystemInfo
	err  error
}

type historyMsg struct {
	records []store.TerminatedProcess
	err     error
}

var processColumns = []ui.TableColumn{
	{Title: "PID", Width: 8},
	{Title: "NAME", Width: 28},
	{Title: "MEMORY", Width: 12},
	{Title: "CPU", Width: 8},
	{Title: "STATUS", Width: 10},
}

// NewModel creates the dashboard and registers its consumers on both
// monitors. Call Detach once the program exits.
func NewModel(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}

	in := &inbox{}
	m := Model{
		opts: opts,
		log:  log,
		in:   in,
		procConsumer: monitor.NewConsumer("dashboard-processes", func(list []provider.ProcessRecord) error {
			in.processes = list
			in.hasProcesses = true
			return nil
		}),
		perfConsumer: monitor.NewConsumer("dashboard-performance", func(s monitor.PerformanceSample) error {
			in.sample = s
			in.hasSample = true
			return nil
		}),
		table: table.New(
			table.WithColumns(ui.Columns(processColumns)),
			table.WithFocused(true),
			table.WithHeight(10),
		),
		search: newSearchInput(),
		paused: !opts.Processes.Running() && !opts.Performance.Running(),
	}
	m.table.SetStyles(ui.TableStyles())

	opts.Processes.Register(m.procConsumer)
	opts.Performance.Register(m.perfConsumer)

	// Show whatever the monitors already have so the first frame isn't empty.
	m.applyProcesses(opts.Processes.Snapshot())
	if s, ok := opts.Performance.Latest(); ok {
		m.sample, m.hasSample = s, true
	}
	return m
}

// Detach unregisters the dashboard's consumers, dropping anything queued for them.
func (m Model) Detach() {
	m.opts.Processes.Unregister(m.procConsumer)
	m.opts.Performance.Unregister(m.perfConsumer)
}

// Init starts the refresh timer and loads system info.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.loadInfoCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(3, m.height-chromeHeight))

	case refreshMsg:
		m.drain(time.Time(msg))
		return m, m.refreshCmd()

	case terminateResultMsg:
		return m, m.handleTerminateResult(msg)

	case pauseResultMsg:
		m.handlePauseResult(msg)

	case infoMsg:
		m.info, m.infoErr, m.infoLoaded = msg.info, msg.err, true

	case historyMsg:
		m.history, m.historyErr, m.historyLoaded = msg.records, msg.err, true
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

func (m Model) refreshCmd() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// drain delivers queued monitor updates into the model.
func (m *Model) drain(now time.Time) {
	m.opts.Processes.Drain()
	m.opts.Performance.Drain()

	if m.in.hasProcesses {
		m.applyProcesses(m.in.processes)
		m.in.processes, m.in.hasProcesses = nil, false
		m.lastUpdate = now
	}
	if m.in.hasSample {
		m.sample, m.hasSample = m.in.sample, true
		m.in.hasSample = false
		m.lastUpdate = now
	}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name, pid, memory, cpu or status"
	ti.CharLimit = 64
	return ti
}

// applyProcesses stores list, then filters and sorts it into the table,
// keeping the selected PID selected when it is still present.
func (m *Model) applyProcesses(list []provider.ProcessRecord) {
	m.all = list
	visible := monitor.FilterProcesses(list, m.filter)
	monitor.SortProcesses(visible, m.sortKey)
	m.processes = visible

	rows := make([]table.Row, len(visible))
	cursor := 0
	for i, p := range visible {
		rows[i] = table.Row{
			strconv.Itoa(int(p.PID)),
			p.Name,
			fmt.Sprintf("%.1f MB", p.MemoryMB),
			fmt.Sprintf("%.1f%%", p.CPUPercent),
			p.Status,
		}
		if p.PID == m.selectedPID {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(cursor)
	}
	m.syncSelection()
}

func (m *Model) syncSelection() {
	if p, ok := m.Selected(); ok {
		m.selectedPID = p.PID
	}
}

// Selected returns the highlighted process.
func (m Model) Selected() (provider.ProcessRecord, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.processes) {
		return provider.ProcessRecord{}, false
	}
	return m.processes[i], true
}

func (m *Model) switchTab(t Tab) tea.Cmd {
	if t < 0 || int(t) >= len(tabNames) {
		return nil
	}
	m.tab = t
	switch {
	case t == TabHistory && !m.historyLoaded:
		return m.loadHistoryCmd()
	case t == TabSystem && !m.infoLoaded:
		return m.loadInfoCmd()
	}
	return nil
}

func (m *Model) refresh() tea.Cmd {
	switch m.tab {
	case TabSystem:
		if inv, ok := m.opts.Info.(interface{ InvalidateSystemInfo() }); ok {
			inv.InvalidateSystemInfo()
		}
		return m.loadInfoCmd()
	case TabHistory:
		return m.loadHistoryCmd()
	default:
		m.drain(time.Now())
		return nil
	}
}

// togglePause restarts both monitors, or returns a command that stops them.
// Stop can wait for an in-flight sample, so it never runs inside Update.
func (m *Model) togglePause() tea.Cmd {
	if m.pausing {
		m.setStatus("Still pausing...", false)
		return nil
	}

	if m.paused {
		procOK := m.opts.Processes.Start() || m.opts.Processes.Running()
		perfOK := m.opts.Performance.Start() || m.opts.Performance.Running()
		if !procOK || !perfOK {
			m.setStatus("A monitor is still finishing its last sample; try again shortly", true)
			return nil
		}
		m.paused = false
		m.log.Info("monitoring resumed")
		m.setStatus("Monitoring resumed", false)
		return nil
	}

	m.pausing = true
	m.setStatus("Pausing...", false)
	proc, perf := m.opts.Processes, m.opts.Performance
	return func() tea.Msg {
		var errs []error
		for _, stop := range []func() error{proc.Stop, perf.Stop} {
			if err := stop(); err != nil {
				errs = append(errs, err)
			}
		}
		return pauseResultMsg{errs: errs}
	}
}

func (m *Model) handlePauseResult(msg pauseResultMsg) {
	m.pausing = false
	m.paused = true
	for _, err := range msg.errs {
		m.log.Warn("pause: %v", err)
	}
	m.log.Info("monitoring paused")
	if len(msg.errs) > 0 {
		m.setStatus("Paused, but a poller did not stop in time", true)
		return
	}
	m.setStatus("Monitoring paused", false)
}

// startFilter focuses the search box on the Processes tab.
func (m *Model) startFilter() tea.Cmd {
	m.filtering = true
	m.search.SetValue(m.filter)
	m.search.CursorEnd()
	return m.search.Focus()
}

// setFilter re-filters the current list without waiting for a new one.
func (m *Model) setFilter(text string) {
	m.filter = text
	m.applyProcesses(m.all)
}

// endFilter leaves the search box; clear also drops the filter.
func (m *Model) endFilter(clear bool) {
	m.filtering = false
	m.search.Blur()
	if clear {
		m.search.SetValue("")
		m.setFilter("")
	}
}

func (m *Model) requestTerminate() {
	if m.terminating {
		m.setStatus("A termination is already in progress", true)
		return
	}
	p, ok := m.Selected()
	if !ok {
		return
	}
	m.escalate = nil
	m.confirm = &killRequest{pid: p.PID, name: p.Name}
}

func (m *Model) startTerminate(req killRequest) tea.Cmd {
	m.terminating = true
	m.setStatus(fmt.Sprintf("Terminating %s (pid %d)...", req.name, req.pid), false)

	pm := m.opts.Processes
	return func() tea.Msg {
		var err error
		if req.elevated {
			err = pm.TerminateElevated(context.Background(), req.pid)
		} else {
			err = pm.Terminate(context.Background(), req.pid)
		}
		return terminateResultMsg{req: req, err: err}
	}
}

func (m *Model) handleTerminateResult(msg terminateResultMsg) tea.Cmd {
	m.terminating = false
	req := msg.req
	label := fmt.Sprintf("%s (pid %d)", req.name, req.pid)

	switch {
	case msg.err == nil:
		m.removeProcess(req.pid)
		m.setStatus("Terminated "+label, false)
		m.historyLoaded = false
		if m.tab == TabHistory {
			return m.loadHistoryCmd()
		}
	case monitor.IsNotFound(msg.err):
		m.removeProcess(req.pid)
		m.setStatus(label+" had already exited", true)
	case monitor.IsPermissionDenied(msg.err) && !req.elevated && m.opts.AllowElevated:
		req.elevated = true
		m.escalate = &req
		m.setStatus("Permission denied for "+label+". Press e to retry elevated, esc to dismiss", true)
	case monitor.IsPermissionDenied(msg.err):
		m.setStatus("Permission denied for "+label, true)
	case monitor.IsTimeout(msg.err):
		m.setStatus("Timed out terminating "+label, true)
	default:
		m.setStatus(errorSummary(msg.err), true)
	}
	return nil
}

func (m *Model) removeProcess(pid int32) {
	kept := make([]provider.ProcessRecord, 0, len(m.all))
	for _, p := range m.all {
		if p.PID != pid {
			kept = append(kept, p)
		}
	}
	m.applyProcesses(kept)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) loadInfoCmd() tea.Cmd {
	src := m.opts.Info
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		info, err := src.SystemInfo(ctx)
		return infoMsg{info: info, err: err}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	src := m.opts.History
	if src == nil {
		return nil
	}
	limit := m.opts.HistoryLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		records, err := src.TerminatedProcesses(ctx, store.Query{Limit: limit})
		return historyMsg{records: records, err: err}
	}
}

// errorSummary returns the one-line message of a structured error.
func errorSummary(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
