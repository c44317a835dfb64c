package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type model struct {
	app      appConfig
	logger   *slog.Logger
	viewport viewport.Model
	input    textinput.Model
	ready    bool
	width    int
	height   int
	status   string
	running  bool
	editing  bool
	events   <-chan tea.Msg
	lines    []string
}

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	stderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newModel(app appConfig, logger *slog.Logger) model {
	vp := viewport.New(80, 20)
	ti := textinput.New()
	ti.Prompt = "dsl> "
	ti.CharLimit = 4096
	ti.SetValue(app.source)
	return model{
		app:      app,
		logger:   logger,
		viewport: vp,
		input:    ti,
		status:   "starting",
	}
}

func startRun(app appConfig, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		events := make(chan tea.Msg, 256)
		go runInterp(app, logger, events)
		return runStartedMsg{events: events}
	}
}

func waitRunEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			return msg
		case <-time.After(20 * time.Millisecond):
			return runPollMsg{}
		}
	}
}

func (m model) Init() tea.Cmd {
	return startRun(m.app, m.logger)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		return m, nil

	case runStartedMsg:
		m.events = msg.events
		m.running = true
		m.status = "running"
		return m, waitRunEvent(m.events)

	case runOutputMsg:
		text := msg.text
		if msg.stderr {
			text = stderrStyle.Render(text)
		}
		m.lines = append(m.lines, text)
		m.refresh()
		return m, waitRunEvent(m.events)

	case runPollMsg:
		if m.running {
			return m, waitRunEvent(m.events)
		}
		return m, nil

	case runDoneMsg:
		m.running = false
		m.events = nil
		if msg.err != nil {
			m.status = "failed"
			m.lines = append(m.lines, errStyle.Render(msg.err.Error()))
		} else {
			m.status = fmt.Sprintf("done, %d lines", len(m.lines))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.editing {
			switch msg.String() {
			case "enter":
				m.app.source = m.input.Value()
				m.editing = false
				m.input.Blur()
				m.resize()
				return m, m.restart()
			case "esc":
				m.editing = false
				m.input.Blur()
				m.input.SetValue(m.app.source)
				m.resize()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "r":
			if m.running {
				return m, nil
			}
			return m, m.restart()
		case "e":
			if m.running {
				return m, nil
			}
			m.editing = true
			m.resize()
			return m, m.input.Focus()
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "initializing..."
	}
	parts := []string{m.viewport.View()}
	if m.editing {
		parts = append(parts, inputStyle.Render(m.input.View()))
	}
	parts = append(parts, statusStyle.Render(m.status+"  (e edit, r rerun, q quit)"))
	return strings.Join(parts, "\n")
}

func (m *model) restart() tea.Cmd {
	m.lines = nil
	m.viewport.SetContent("")
	m.status = "restarting"
	return startRun(m.app, m.logger)
}

func (m *model) resize() {
	footer := 1
	if m.editing {
		footer++
	}
	vh := m.height - footer
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vh
	m.input.Width = m.width - len(m.input.Prompt) - 3
}

func (m *model) refresh() {
	content := strings.Join(m.lines, "\n")
	if content == "" {
		content = "(no output yet)"
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}
