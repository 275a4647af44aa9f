// Package ui is the terminal chat interface for a loaded dataset.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

// AnswerFunc answers one question about the loaded dataset.
type AnswerFunc func(ctx context.Context, question string) string

// InsightsFunc regenerates the insight list.
type InsightsFunc func(ctx context.Context) []string

type turn struct {
	user bool
	text string
}

type answerMsg struct {
	text string
}

type insightsMsg []string

type Model struct {
	ds       *dataset.Dataset
	answer   AnswerFunc
	refresh  InsightsFunc
	insights []string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns   []turn
	waiting bool
	ready   bool
	width   int
	height  int
}

// NewModel builds the chat model. refresh may be nil to disable /insights.
func NewModel(ds *dataset.Dataset, insights []string, answer AnswerFunc, refresh InsightsFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your data (e.g. highest units, average, summary)"
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return Model{
		ds:       ds,
		answer:   answer,
		refresh:  refresh,
		insights: insights,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - 8
		if h < 5 {
			h = 5
		}
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = h
		m.input.Width = msg.Width - 6
		m.ready = true
		m.syncViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.Reset()
			return m.submit(q)
		}

	case answerMsg:
		m.waiting = false
		m.turns = append(m.turns, turn{text: msg.text})
		m.syncViewport()
		return m, nil

	case insightsMsg:
		m.waiting = false
		m.insights = []string(msg)
		m.turns = append(m.turns, turn{text: formatInsights(m.insights)})
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit handles slash commands locally and sends everything else to the answerer.
func (m Model) submit(q string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(q) {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/columns":
		m.turns = append(m.turns, turn{user: true, text: q}, turn{text: formatColumns(m.ds)})
		m.syncViewport()
		return m, nil
	case "/insights":
		m.turns = append(m.turns, turn{user: true, text: q})
		m.syncViewport()
		if m.refresh == nil {
			m.turns = append(m.turns, turn{text: formatInsights(m.insights)})
			m.syncViewport()
			return m, nil
		}
		m.waiting = true
		refresh := m.refresh
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			return insightsMsg(refresh(context.Background()))
		})
	}

	m.turns = append(m.turns, turn{user: true, text: q})
	m.waiting = true
	m.syncViewport()
	answer := m.answer
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return answerMsg{text: answer(context.Background(), q)}
	})
}

func (m *Model) syncViewport() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	var b strings.Builder
	if len(m.insights) > 0 {
		b.WriteString(formatInsights(m.insights))
		b.WriteString("\n\n")
	}
	width := m.viewport.Width
	for _, t := range m.turns {
		label := AssistantStyle.Render("AI")
		if t.user {
			label = UserStyle.Render("You")
		}
		body := lipgloss.NewStyle().Width(width).Render(t.text)
		fmt.Fprintf(&b, "%s\n%s\n\n", label, body)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatInsights(ins []string) string {
	if len(ins) == 0 {
		return SubtitleStyle.Render("No insights yet.")
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Key Insights"))
	for i, s := range ins {
		fmt.Fprintf(&b, "\n%s", InsightStyle.Render(fmt.Sprintf("%d. %s", i+1, s)))
	}
	return b.String()
}

func formatColumns(ds *dataset.Dataset) string {
	if ds == nil || len(ds.Columns) == 0 {
		return "No columns."
	}
	var b strings.Builder
	b.WriteString("Columns:")
	for _, c := range ds.Columns {
		fmt.Fprintf(&b, "\n- %s (%s)", c, ds.Kind(c))
	}
	return b.String()
}

func (m Model) View() string {
	var s strings.Builder
	name := ""
	if m.ds != nil {
		name = fmt.Sprintf("%s · %d records", m.ds.Name, m.ds.Len())
	}
	s.WriteString(TitleStyle.Render("📊 DataDash Chat"))
	s.WriteString(" ")
	s.WriteString(SubtitleStyle.Render(name))
	s.WriteString("\n")
	s.WriteString(PanelStyle.Render(m.viewport.View()))
	s.WriteString("\n")
	if m.waiting {
		s.WriteString(m.spinner.View())
		s.WriteString(SubtitleStyle.Render(" Analyzing..."))
		s.WriteString("\n")
	} else {
		s.WriteString(m.input.View())
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("enter: send • /insights • /columns • esc: quit"))
	return s.String()
}

// Run starts the chat program on the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
