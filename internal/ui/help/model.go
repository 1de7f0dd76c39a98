package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/keys"
	"github.com/nhle/remindme/internal/theme"
)

// Model is the help overlay: key bindings plus a short description of
// how reminders are being delivered on this host.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	notes  []string
	width  int
	height int
}

// New creates a new help view model. notes are shown under the key
// bindings, one per line.
func New(k *keys.KeyMap, notes []string, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		help:   h,
		notes:  notes,
		width:  width,
		height: height,
	}
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	parts := []string{
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
	}
	if len(m.notes) > 0 {
		parts = append(parts,
			"",
			titleStyle.Render("Reminders"),
			theme.HelpStyle.Render(strings.Join(m.notes, "\n")),
		)
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
