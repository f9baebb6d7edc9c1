package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/pkg/models"
)

// AgentStatus is the display state of one validation agent.
type AgentStatus string

const (
	StatusPending AgentStatus = "pending"
	StatusRunning AgentStatus = "running"
	StatusDone    AgentStatus = "done"
	StatusFailed  AgentStatus = "failed"
)

// maxLogEntries is how many activity lines are shown.
const maxLogEntries = 8

// AgentRow tracks one agent for display.
type AgentRow struct {
	Kind   models.AgentKind
	Status AgentStatus
	Score  int
	Error  string
}

// EventMsg carries an orchestrator event into the program.
type EventMsg struct {
	Event orchestrator.OrchestratorEvent
}

// DoneMsg is sent when the run finishes.
type DoneMsg struct {
	Report *models.ValidationReport
	Err    error
}

// LogEntry is one line in the activity log.
type LogEntry struct {
	Timestamp time.Time
	Agent     string
	Message   string
}

// ProgressApp is the bubbletea model for the validate command's progress UI.
type ProgressApp struct {
	rows      []AgentRow
	completed int
	total     int
	runID     string
	logs      []LogEntry
	bar       progress.Model
	width     int
	quitting  bool
	done      bool
	report    *models.ValidationReport
	err       error
	onCancel  func()

	// Styles
	headerStyle  lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	logTimeStyle lipgloss.Style
	logStyle     lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewProgressApp creates a model for a run over kinds, in canonical order.
// onCancel, if set, is called when the user quits before the run finishes.
func NewProgressApp(kinds []models.AgentKind, onCancel func()) *ProgressApp {
	kinds = models.CanonicalKinds(kinds)
	rows := make([]AgentRow, len(kinds))
	for i, k := range kinds {
		rows[i] = AgentRow{Kind: k, Status: StatusPending}
	}

	return &ProgressApp{
		rows:     rows,
		total:    len(kinds),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		onCancel: onCancel,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		logTimeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		logStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *ProgressApp) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *ProgressApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !a.done && a.onCancel != nil {
				a.onCancel()
			}
			a.quitting = !a.done
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.bar.Width = max(10, min(60, msg.Width-20))

	case EventMsg:
		a.apply(msg.Event)

	case DoneMsg:
		a.done = true
		a.report = msg.Report
		a.err = msg.Err
		// Stay open so the final state is visible.
	}

	return a, nil
}

func (a *ProgressApp) apply(ev orchestrator.OrchestratorEvent) {
	if ev.Total > 0 {
		a.total = ev.Total
		a.completed = ev.Completed
	}

	switch ev.Type {
	case orchestrator.EventRunStarted:
		a.runID = ev.RunID
		a.log(ev, "", fmt.Sprintf("run started with %d agents", ev.Total))
	case orchestrator.EventAgentStarted:
		a.setRow(ev.Agent, func(r *AgentRow) { r.Status = StatusRunning })
		a.log(ev, ev.Agent.Label(), "validating")
	case orchestrator.EventAgentCompleted:
		a.setRow(ev.Agent, func(r *AgentRow) {
			r.Status = StatusDone
			r.Score = ev.Score
		})
		a.log(ev, ev.Agent.Label(), fmt.Sprintf("score %d%%", ev.Score))
	case orchestrator.EventAgentFailed:
		a.setRow(ev.Agent, func(r *AgentRow) {
			r.Status = StatusFailed
			r.Error = ev.Error
		})
		a.log(ev, ev.Agent.Label(), "failed: "+ev.Error)
	case orchestrator.EventRunCompleted:
		a.log(ev, "", fmt.Sprintf("run completed, aggregate %.1f%%", ev.AggregateScore))
	}
}

func (a *ProgressApp) setRow(kind models.AgentKind, fn func(*AgentRow)) {
	for i := range a.rows {
		if a.rows[i].Kind == kind {
			fn(&a.rows[i])
			return
		}
	}
	row := AgentRow{Kind: kind}
	fn(&row)
	a.rows = append(a.rows, row)
}

func (a *ProgressApp) log(ev orchestrator.OrchestratorEvent, agent, message string) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	a.logs = append(a.logs, LogEntry{Timestamp: ts, Agent: agent, Message: message})
	if len(a.logs) > maxLogEntries {
		a.logs = a.logs[len(a.logs)-maxLogEntries:]
	}
}

// Fraction returns the share of agents that have finished.
func (a *ProgressApp) Fraction() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.completed) / float64(a.total)
}

// Rows returns the current agent rows.
func (a *ProgressApp) Rows() []AgentRow {
	return append([]AgentRow(nil), a.rows...)
}

// Report returns the finished report, if the run completed.
func (a *ProgressApp) Report() *models.ValidationReport {
	return a.report
}

// Err returns the run error, if any.
func (a *ProgressApp) Err() error {
	return a.err
}

// View implements tea.Model.
func (a *ProgressApp) View() string {
	if a.quitting {
		return "Validation cancelled.\n"
	}

	var b strings.Builder

	b.WriteString(a.headerStyle.Render("=== Financial Statement Validation ==="))
	b.WriteString("\n\n")

	if a.runID != "" {
		b.WriteString(a.labelStyle.Render("Run:"))
		b.WriteString(a.valueStyle.Render(a.runID))
		b.WriteString("\n")
	}
	b.WriteString(a.labelStyle.Render("Agents:"))
	b.WriteString(a.valueStyle.Render(fmt.Sprintf("%d/%d complete", a.completed, a.total)))
	b.WriteString("\n")
	b.WriteString("  ")
	b.WriteString(a.bar.ViewAs(a.Fraction()))
	b.WriteString("\n\n")

	for _, row := range a.rows {
		b.WriteString(a.renderRow(row))
		b.WriteString("\n")
	}

	b.WriteString(a.renderLogs())

	b.WriteString("\n")
	switch {
	case a.done && a.err != nil:
		b.WriteString(a.failedStyle.Render(fmt.Sprintf("Error: %v", a.err)))
	case a.done && a.report != nil:
		b.WriteString(a.doneStyle.Render(fmt.Sprintf("Overall Compliance: %.1f%%  Press q to exit.", a.report.AggregateScore)))
	case a.done:
		b.WriteString(a.doneStyle.Render("Validation complete! Press q to exit."))
	default:
		b.WriteString(a.hintStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func (a *ProgressApp) renderRow(row AgentRow) string {
	label := fmt.Sprintf("%-14s", row.Kind.Label())
	switch row.Status {
	case StatusRunning:
		return "  " + a.runningStyle.Render("● "+label+" running")
	case StatusDone:
		band := models.BandFor(row.Score)
		return "  " + a.doneStyle.Render(fmt.Sprintf("✓ %s %3d%%", label, row.Score)) + " " + a.logStyle.Render(band.Title())
	case StatusFailed:
		msg := row.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return "  " + a.failedStyle.Render("✗ "+label) + " " + a.logStyle.Render(msg)
	default:
		return "  " + a.pendingStyle.Render("○ "+label+" pending")
	}
}

func (a *ProgressApp) renderLogs() string {
	if len(a.logs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Render("Activity Log"))
	b.WriteString("\n")

	for _, entry := range a.logs {
		ts := a.logTimeStyle.Render(entry.Timestamp.Format("15:04:05"))
		agent := lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(14).
			Render(entry.Agent)
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, agent, a.logStyle.Render(entry.Message)))
	}
	return b.String()
}

// NewProgressProgram creates a bubbletea program for the progress UI.
func NewProgressProgram(kinds []models.AgentKind, onCancel func(), opts ...tea.ProgramOption) (*tea.Program, *ProgressApp) {
	app := NewProgressApp(kinds, onCancel)
	p := tea.NewProgram(app, opts...)
	return p, app
}

// Sender is the subset of *tea.Program used to deliver messages.
type Sender interface {
	Send(msg tea.Msg)
}

// ForwardEvents relays emitter events to p until the emitter is closed.
func ForwardEvents(p Sender, emitter *orchestrator.EventEmitter) {
	for ev := range emitter.Events() {
		p.Send(EventMsg{Event: ev})
	}
}
