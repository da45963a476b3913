// Package tui implements the interactive scenario browser.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/scenarioctl/scenarioctl/internal/notify"
	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// Entry is a scenario shown in the browser.
type Entry struct {
	Descriptor scenario.Descriptor
	State      scenario.State
}

// Backend lists scenarios and runs lifecycle operations for the browser.
type Backend interface {
	List(ctx context.Context) ([]Entry, error)
	Run(ctx context.Context, op scenario.Operation, name string) (*scenario.Report, error)
}

// Journal is implemented by backends that keep the notifications of the
// last run. The browser shows them under the result line.
type Journal interface {
	Drain() []notify.Message
}

type browseState int

const (
	stateLoading browseState = iota
	stateReady
	stateRunning
)

type listLoadedMsg struct {
	entries []Entry
	err     error
}

type operationDoneMsg struct {
	op     scenario.Operation
	name   string
	report   *scenario.Report
	messages []notify.Message
	err      error
}

// Model is the bubbletea model behind `scenarioctl browse`.
type Model struct {
	ctx     context.Context
	backend Backend

	state   browseState
	entries []Entry
	cursor  int
	spinner spinner.Model

	running string
	result  string
	err     error
	width   int
}

// New creates a browser model.
func New(ctx context.Context, backend Backend) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = infoStyle
	return Model{ctx: ctx, backend: backend, state: stateLoading, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.backend.List(m.ctx)
		return listLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) run(op scenario.Operation, name string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.backend.Run(m.ctx, op, name)
		done := operationDoneMsg{op: op, name: name, report: report, err: err}
		if j, ok := m.backend.(Journal); ok {
			done.messages = j.Drain()
		}
		return done
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case listLoadedMsg:
		m.state = stateReady
		m.err = msg.err
		m.entries = msg.entries
		if m.cursor >= len(m.entries) {
			m.cursor = max(len(m.entries)-1, 0)
		}
		return m, nil

	case operationDoneMsg:
		m.running = ""
		m.result = summarize(msg)
		m.state = stateLoading
		return m, tea.Batch(m.spinner.Tick, m.load())

	case spinner.TickMsg:
		if m.state == stateReady {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	}

	if m.state != stateReady {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "e":
		return m.start(scenario.OpEnable)
	case "d":
		return m.start(scenario.OpDisable)
	case "r":
		return m.start(scenario.OpReset)
	}
	return m, nil
}

func (m Model) start(op scenario.Operation) (tea.Model, tea.Cmd) {
	if len(m.entries) == 0 {
		return m, nil
	}
	name := m.entries[m.cursor].Descriptor.Name
	m.state = stateRunning
	m.running = fmt.Sprintf("%s %s", op, name)
	m.result = ""
	return m, tea.Batch(m.spinner.Tick, m.run(op, name))
}

func summarize(msg operationDoneMsg) string {
	var lines []string
	switch {
	case msg.err != nil:
		lines = append(lines, renderError(fmt.Sprintf("%s %s: %v", msg.op, msg.name, msg.err)))
	case msg.report != nil && msg.report.Failed():
		lines = append(lines, renderError(fmt.Sprintf("%s %s finished with failures:", msg.op, msg.name)))
		for _, f := range msg.report.FailureMessages() {
			lines = append(lines, "  "+f)
		}
	default:
		lines = append(lines, renderSuccess(fmt.Sprintf("%s %s done", msg.op, msg.name)))
	}

	for _, n := range msg.messages {
		switch n.Level {
		case notify.LevelError:
			lines = append(lines, "  "+errorStyle.Render(n.Text))
		case notify.LevelWarning:
			lines = append(lines, "  "+warningStyle.Render(n.Text))
		default:
			lines = append(lines, "  "+unselectedStyle.Render(n.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(renderHeader("Scenarios"))
	b.WriteString("\n\n")

	switch {
	case m.state == stateLoading && m.entries == nil:
		b.WriteString(m.spinner.View() + " Loading scenarios...\n")
	case m.err != nil:
		b.WriteString(renderError(m.err.Error()) + "\n")
	case len(m.entries) == 0:
		b.WriteString(unselectedStyle.Render("No scenarios found.") + "\n")
	}

	for i, e := range m.entries {
		icon := iconAvailable
		if e.State == scenario.StateInstalled {
			icon = iconInstalled
		}
		label := e.Descriptor.Name
		if e.Descriptor.Label != "" && e.Descriptor.Label != e.Descriptor.Name {
			label = fmt.Sprintf("%s (%s)", e.Descriptor.Name, e.Descriptor.Label)
		}
		b.WriteString(renderOption(i == m.cursor, fmt.Sprintf("%s %s  %s", icon, label, e.State)))
		b.WriteString("\n")
	}

	if len(m.entries) > 0 {
		b.WriteString(detailBoxStyle.Render(m.detail(m.entries[m.cursor].Descriptor)))
		b.WriteString("\n")
	}

	if m.state == stateRunning {
		b.WriteString("\n" + m.spinner.View() + " " + m.running + "\n")
	}
	if m.result != "" {
		b.WriteString("\n" + m.result + "\n")
	}

	b.WriteString(renderStatusBar("↑/↓ move • e enable • d disable • r reset • q quit"))
	return b.String()
}

func (m Model) detail(d scenario.Descriptor) string {
	lines := []string{d.Name}
	if d.Description != "" {
		lines = append(lines, d.Description)
	}
	if d.Theme != "" {
		lines = append(lines, "theme: "+d.Theme)
	}
	lines = append(lines, fmt.Sprintf("migrations: %d", len(d.Migrations)))
	if d.Screenshot != "" {
		lines = append(lines, "screenshot: "+d.Screenshot)
	}
	return strings.Join(lines, "\n")
}
