package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TaskEventMsg reports a task state change.
type TaskEventMsg struct {
	TaskID     string
	Capability string
	State      string
	Attempt    int
	Err        string
}

// RoundDoneMsg signals that the round finished.
type RoundDoneMsg struct {
	Status     string
	Fused      int
	Confidence float64
	Err        string
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	queryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	capStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(18)

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

type taskRow struct {
	capability string
	state      string
	attempt    int
	errMsg     string
}

// RoundApp is the bubbletea model for a running round.
type RoundApp struct {
	spinner spinner.Model
	query   string
	order   []string
	rows    map[string]*taskRow
	done    bool
	result  RoundDoneMsg
	aborted bool
}

// NewRoundProgram creates the TUI program for one round.
func NewRoundProgram(query string) (*tea.Program, *RoundApp) {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))

	app := &RoundApp{
		spinner: s,
		query:   query,
		rows:    make(map[string]*taskRow),
	}
	return tea.NewProgram(app), app
}

// Aborted reports whether the user quit before the round finished.
func (a *RoundApp) Aborted() bool {
	return a.aborted
}

// Init implements tea.Model.
func (a *RoundApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *RoundApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !a.done {
				a.aborted = true
			}
			return a, tea.Quit
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case TaskEventMsg:
		row, ok := a.rows[msg.TaskID]
		if !ok {
			row = &taskRow{capability: msg.Capability}
			a.rows[msg.TaskID] = row
			a.order = append(a.order, msg.TaskID)
		}
		row.state = msg.State
		row.attempt = msg.Attempt
		row.errMsg = msg.Err
		return a, nil

	case RoundDoneMsg:
		a.done = true
		a.result = msg
		return a, tea.Quit
	}
	return a, nil
}

// View implements tea.Model.
func (a *RoundApp) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("forager"))
	b.WriteString("  ")
	b.WriteString(queryStyle.Render(a.query))
	b.WriteString("\n\n")

	for _, id := range a.order {
		row := a.rows[id]
		b.WriteString("  ")
		b.WriteString(a.glyph(row.state))
		b.WriteString(" ")
		b.WriteString(capStyle.Render(row.capability))
		b.WriteString(a.stateLabel(row))
		b.WriteString("\n")
	}

	if a.done {
		b.WriteString("\n")
		b.WriteString(a.resultLine())
		b.WriteString("\n")
	} else {
		b.WriteString(footerStyle.Render("q to cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *RoundApp) glyph(state string) string {
	switch state {
	case "completed":
		return okStyle.Render("✓")
	case "failed":
		return failStyle.Render("✗")
	case "timed_out":
		return warnStyle.Render("⏱")
	case "running":
		return runningStyle.Render(a.spinner.View())
	default:
		return dimStyle.Render("·")
	}
}

func (a *RoundApp) stateLabel(row *taskRow) string {
	label := row.state
	if row.attempt > 1 {
		label = fmt.Sprintf("%s (attempt %d)", label, row.attempt)
	}
	switch row.state {
	case "completed":
		return okStyle.Render(label)
	case "failed", "timed_out":
		if row.errMsg != "" {
			return failStyle.Render(label) + dimStyle.Render("  "+truncate(row.errMsg, 60))
		}
		return failStyle.Render(label)
	case "running":
		return runningStyle.Render(label)
	default:
		return dimStyle.Render(label)
	}
}

func (a *RoundApp) resultLine() string {
	switch a.result.Status {
	case "ok":
		return okStyle.Render(fmt.Sprintf("round complete: %d findings, confidence %.2f", a.result.Fused, a.result.Confidence))
	case "partial":
		return warnStyle.Render(fmt.Sprintf("partial result: %d findings, confidence %.2f", a.result.Fused, a.result.Confidence))
	case "no_evidence":
		return failStyle.Render("no evidence gathered")
	default:
		if a.result.Err != "" {
			return failStyle.Render("round failed: " + a.result.Err)
		}
		return dimStyle.Render("round finished")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
