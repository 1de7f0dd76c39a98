package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/theme"
)

// CloseMsg signals the parent to close the chat panel.
type CloseMsg struct{}

// ReplyMsg carries the assistant's recorded reply.
type ReplyMsg struct {
	Message model.ChatMessage
	Err     error
}

// Model is the chat panel. The conversation itself lives in the task
// store; the panel renders whatever history the parent hands it.
type Model struct {
	assistant *ai.Assistant
	input     textarea.Model
	viewport  viewport.Model
	history   []model.ChatMessage
	pending   string
	waiting   bool
	lastErr   error
	width     int
	height    int
}

// New creates a chat panel backed by assistant.
func New(assistant *ai.Assistant, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask what to do next..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	vp := viewport.New(width-4, viewportHeight(height))
	vp.Style = lipgloss.NewStyle()

	return Model{
		assistant: assistant,
		input:     ta,
		viewport:  vp,
		width:     width,
		height:    height,
	}
}

func viewportHeight(height int) int {
	h := height - 8
	if h < 4 {
		h = 4
	}
	return h
}

// Init returns the initial command for the chat panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReplyMsg:
		m.waiting = false
		m.pending = ""
		m.lastErr = msg.Err
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	cmds = append(cmds, taCmd)

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.waiting {
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case "enter":
		if m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}

		m.input.Reset()
		return m, m.Submit(text)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Submit shows text as pending and asks the assistant about it.
func (m *Model) Submit(text string) tea.Cmd {
	m.pending = text
	m.waiting = true
	m.lastErr = nil
	m.refreshViewport()
	return m.send(text)
}

// send asks the assistant in the background. The assistant records both
// sides of the exchange in the store.
func (m Model) send(text string) tea.Cmd {
	assistant := m.assistant
	return func() tea.Msg {
		reply, err := assistant.Ask(context.Background(), text)
		return ReplyMsg{Message: reply, Err: err}
	}
}

// SetHistory replaces the rendered conversation.
func (m *Model) SetHistory(history []model.ChatMessage) {
	m.history = history
	if m.pending != "" {
		for _, msg := range history {
			if msg.Role == model.RoleUser && msg.Content == m.pending {
				m.pending = ""
			}
		}
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.history) == 0 && m.pending == "" {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Ask me what to focus on. I can see your task list.")
	}

	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(theme.ColorBlue)
	assistantStyle := roleStyle.Foreground(theme.ColorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	mutedStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	var sections []string
	for _, msg := range m.history {
		switch msg.Role {
		case model.RoleUser:
			sections = append(sections, userStyle.Render("You:"), contentStyle.Render(msg.Content))
		default:
			sections = append(sections, assistantStyle.Render("Assistant:"), RenderMarkdown(msg.Content))
		}
		sections = append(sections, "")
	}

	if m.pending != "" {
		sections = append(sections, userStyle.Render("You:"), contentStyle.Render(m.pending), "")
	}
	if m.waiting {
		sections = append(sections, mutedStyle.Render("..."))
	}
	if m.lastErr != nil {
		sections = append(sections, theme.OverdueStyle.Render(fmt.Sprintf("Error: %v", m.lastErr)))
	}

	return strings.Join(sections, "\n")
}

// RenderMarkdown renders an assistant reply for the terminal, returning
// the raw text if rendering fails.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// View renders the chat panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := "Assistant"
	if m.assistant != nil && !m.assistant.Live() {
		title += theme.HelpStyle.Render("  (offline suggestions)")
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-6, 80), 0)))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(title),
		m.viewport.View(),
		separator,
		m.input.View(),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.viewport.Width = width - 4
	m.viewport.Height = viewportHeight(height)
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

func (m Model) Waiting() bool { return m.waiting }
