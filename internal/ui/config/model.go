package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/remindme/internal/credential"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/theme"
)

// SavedMsg is sent after the settings have been written. Config is the
// configuration now on disk.
type SavedMsg struct {
	Config *model.AppConfig
}

// ConfigDoneMsg signals the settings view should close.
type ConfigDoneMsg struct{}

// saveResultMsg carries the outcome of a save back into the view.
type saveResultMsg struct {
	cfg *model.AppConfig
	err error
}

var errEndpointRequired = errors.New("the remote provider needs an endpoint URL")

// Replaced in tests.
var (
	setCredential = credential.Set
	saveConfig    = model.SaveConfig
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	provider  string
	modelName string
	endpoint  string
	secret    string
	pollSec   string
	snoozeMin string
	desktop   bool
	speech    bool
}

// Model is the settings view. It edits a copy of the loaded config and
// writes it back to path.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	path      string
	cfg       model.AppConfig
	statusMsg string
	width     int
	height    int
}

// New creates a settings view for cfg, saved to path.
func New(path string, cfg *model.AppConfig, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		path:   path,
		cfg:    *cfg,
		width:  width,
		height: height,
	}
}

// Init fills the form from the current config.
func (m *Model) Init() tea.Cmd {
	m.statusMsg = ""
	m.fb.provider = m.cfg.Agent.Provider
	m.fb.modelName = m.cfg.Agent.Model
	m.fb.endpoint = m.cfg.Agent.Endpoint
	m.fb.secret = ""
	m.fb.pollSec = strconv.Itoa(m.cfg.Reminders.PollIntervalSec)
	m.fb.snoozeMin = strconv.Itoa(m.cfg.Reminders.SnoozeMinutes)
	m.fb.desktop = m.cfg.Reminders.Desktop
	m.fb.speech = m.cfg.Reminders.Speech
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the settings view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if res, ok := msg.(saveResultMsg); ok {
		if res.err != nil {
			// Rebuild the form around the values the user entered.
			m.statusMsg = "Error: " + res.err.Error()
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.cfg = *res.cfg
		saved := res.cfg
		return m, func() tea.Msg { return SavedMsg{Config: saved} }
	}

	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.save()
	case huh.StateAborted:
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}

	return m, cmd
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Assistant").
				Description("Backend used for chat replies").
				Options(
					huh.NewOption("Anthropic Claude", model.ProviderAnthropic),
					huh.NewOption("Ollama (local)", model.ProviderOllama),
					huh.NewOption("Remote agent endpoint", model.ProviderRemote),
				).
				Value(&m.fb.provider),
			huh.NewInput().
				Title("Model").
				Placeholder("claude-sonnet-4-20250514").
				Value(&m.fb.modelName),
			huh.NewInput().
				Title("Endpoint").
				Description("Agent URL for the remote provider").
				Placeholder("http://127.0.0.1:8787/api/agent").
				Value(&m.fb.endpoint).
				Validate(validateOptionalURL),
			huh.NewInput().
				Title("API key / token").
				Description("Stored in the system keyring; leave empty to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.secret),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Overdue check (seconds)").
				Value(&m.fb.pollSec).
				Validate(validatePositive("Interval")),
			huh.NewInput().
				Title("Snooze (minutes)").
				Value(&m.fb.snoozeMin).
				Validate(validatePositive("Snooze")),
			huh.NewConfirm().
				Title("Desktop notifications").
				Value(&m.fb.desktop),
			huh.NewConfirm().
				Title("Speak overdue tasks").
				Value(&m.fb.speech),
		),
	).WithWidth(m.formWidth())
}

// save applies the form to a copy of the config and writes it.
func (m Model) save() tea.Cmd {
	fb := *m.fb
	base := m.cfg
	path := m.path
	return func() tea.Msg {
		cfg, err := apply(base, fb)
		if err != nil {
			return saveResultMsg{err: err}
		}
		if secret := strings.TrimSpace(fb.secret); secret != "" {
			if err := setCredential(credentialKey(cfg.Agent.Provider), secret); err != nil {
				return saveResultMsg{err: err}
			}
		}
		if err := saveConfig(path, cfg); err != nil {
			return saveResultMsg{err: err}
		}
		return saveResultMsg{cfg: cfg}
	}
}

// apply copies validated form values onto cfg.
func apply(cfg model.AppConfig, fb formBindings) (*model.AppConfig, error) {
	cfg.Agent.Provider = fb.provider
	cfg.Agent.Model = strings.TrimSpace(fb.modelName)
	cfg.Agent.Endpoint = strings.TrimSpace(fb.endpoint)
	if cfg.Agent.Provider == model.ProviderRemote && cfg.Agent.Endpoint == "" {
		return nil, errEndpointRequired
	}

	poll, err := strconv.Atoi(strings.TrimSpace(fb.pollSec))
	if err != nil || poll <= 0 {
		return nil, fmt.Errorf("invalid overdue check interval %q", fb.pollSec)
	}
	snooze, err := strconv.Atoi(strings.TrimSpace(fb.snoozeMin))
	if err != nil || snooze <= 0 {
		return nil, fmt.Errorf("invalid snooze %q", fb.snoozeMin)
	}

	cfg.Reminders.PollIntervalSec = poll
	cfg.Reminders.SnoozeMinutes = snooze
	cfg.Reminders.Desktop = fb.desktop
	cfg.Reminders.Speech = fb.speech
	return &cfg, nil
}

// credentialKey is the keyring item holding the secret for provider.
func credentialKey(provider string) string {
	if provider == model.ProviderRemote {
		return credential.AgentToken
	}
	return credential.ClaudeAPIKey
}

// View renders the settings view.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Settings")}
	if m.statusMsg != "" {
		parts = append(parts, theme.OverdueStyle.Render(m.statusMsg))
	}
	parts = append(parts,
		m.form.View(),
		theme.HelpStyle.Render("Assistant and notification changes apply on next start."),
	)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateOptionalURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://127.0.0.1:8787/api/agent)")
	}
	return nil
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}
