package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/focuslog/focuslog/internal/tracker"
	"github.com/focuslog/focuslog/internal/usage"
	"github.com/focuslog/focuslog/pkg/utils"
)

// Engine is what the status window reads and controls.
type Engine interface {
	Status() tracker.Status
	Snapshot() usage.Counter
	Toggle(ctx context.Context) error
	Flush() error
}

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

// Model is the root Bubble Tea model of the status window.
type Model struct {
	engine Engine
	ctx    context.Context

	status tracker.Status
	rows   []usage.AppTotal
	table  table.Model
	help   help.Model

	showHelp bool
	message  statusMsg
	width    int
}

func New(ctx context.Context, engine Engine) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Application", Width: 48},
			{Title: "Time", Width: 10},
		}),
		table.WithHeight(12),
	)

	m := Model{
		engine: engine,
		ctx:    ctx,
		table:  t,
		help:   help.New(),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		cols := m.table.Columns()
		if msg.Width > 20 {
			cols[0].Width = max(msg.Width-cols[1].Width-6, 10)
			m.table.SetColumns(cols)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil
		case key.Matches(msg, keys.Pause):
			if err := m.engine.Toggle(m.ctx); err != nil {
				m.message = statusMsg{text: err.Error(), isError: true}
			} else {
				m.message = statusMsg{}
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Flush):
			if err := m.engine.Flush(); err != nil {
				m.message = statusMsg{text: err.Error(), isError: true}
			} else {
				m.message = statusMsg{text: "Saved"}
			}
			m.refresh()
			return m, nil
		}

	case tickMsg:
		m.refresh()
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh pulls the engine state into the model.
func (m *Model) refresh() {
	m.status = m.engine.Status()
	m.rows = m.engine.Snapshot().Sorted()

	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, table.Row{r.Application, utils.FormatDuration(r.Seconds)})
	}
	m.table.SetRows(rows)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Today's Activity"))
	b.WriteString("\n")

	badge := activeBadge.Render("ACTIVE")
	if m.status.State == tracker.Paused {
		badge = pausedBadge.Render("PAUSED")
	}
	b.WriteString(badge + " " + currentStyle.Render(m.status.Line()))
	if m.status.State == tracker.Active && m.status.Current != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s)", utils.FormatDuration(m.status.LiveSeconds))))
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("No activity recorded yet today."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	if m.message.text != "" {
		style := mutedStyle
		if m.message.isError {
			style = errorStyle
		}
		b.WriteString(style.Render(m.message.text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// Run shows the status window until the user quits or ctx is cancelled.
func Run(ctx context.Context, engine Engine) error {
	p := tea.NewProgram(New(ctx, engine), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
