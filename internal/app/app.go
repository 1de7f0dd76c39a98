package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/keys"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/store"
	appsync "github.com/nhle/remindme/internal/sync"
	"github.com/nhle/remindme/internal/ui"
	"github.com/nhle/remindme/internal/ui/chat"
	"github.com/nhle/remindme/internal/ui/command"
	configview "github.com/nhle/remindme/internal/ui/config"
	"github.com/nhle/remindme/internal/ui/detail"
	helpview "github.com/nhle/remindme/internal/ui/help"
	"github.com/nhle/remindme/internal/ui/taskform"
	"github.com/nhle/remindme/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewForm
	ViewChat
	ViewHelp
	ViewCommand
	ViewSettings
	ViewDetail
)

// clockInterval is how often relative due times are redrawn.
const clockInterval = 30 * time.Second

// Options wires the root model to the rest of the program.
type Options struct {
	Store     *store.TaskStore
	Assistant *ai.Assistant
	Poller    *appsync.Poller
	// Fired delivers reminder firings from the worker. May be nil.
	Fired  <-chan reminder.Fired
	Snooze time.Duration
	// Notes are shown in the help view, e.g. which capabilities exist.
	Notes []string
	// Config and ConfigPath back the settings view. A nil Config uses
	// the defaults.
	Config     *model.AppConfig
	ConfigPath string
	Now        func() time.Time
}

// Model is the root Bubble Tea model. It renders store snapshots and
// turns key presses into store mutations; it never schedules timers
// itself, the scheduler follows the store on its own.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	store       *store.TaskStore
	poller      *appsync.Poller
	fired       <-chan reminder.Fired
	changed     chan struct{}
	keys        *keys.KeyMap
	taskList    tasklist.Model
	taskForm    taskform.Model
	chatView    chat.Model
	helpView    helpview.Model
	commandView command.Model
	configView  configview.Model
	detailView  detail.Model
	snooze      time.Duration
	now         func() time.Time
	overdue     int
	lastSweep   time.Time
	status      string
	ready       bool
}

// New creates the root application model.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Snooze <= 0 {
		opts.Snooze = 10 * time.Minute
	}
	if opts.Config == nil {
		opts.Config = model.DefaultAppConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = model.DefaultConfigPath()
	}

	k := keys.DefaultKeyMap()
	changed := make(chan struct{}, 1)
	watchStore(opts.Store, changed)

	m := Model{
		currentView: ViewList,
		store:       opts.Store,
		poller:      opts.Poller,
		fired:       opts.Fired,
		changed:     changed,
		keys:        k,
		taskList:    tasklist.New(k, 80, 22),
		taskForm:    taskform.New(80, 22),
		chatView:    chat.New(opts.Assistant, 80, 22),
		helpView:    helpview.New(k, opts.Notes, 80, 22),
		commandView: command.New(80, 22),
		configView:  configview.New(opts.ConfigPath, opts.Config, 80, 22),
		detailView:  detail.New(k, 80, 22),
		snooze:      opts.Snooze,
		now:         opts.Now,
	}
	m.taskList.SetTasks(opts.Store.List(), opts.Now())
	m.chatView.SetHistory(opts.Store.Chat())
	return m
}

// Init starts the overdue poller and the listeners for store changes
// and reminder firings.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForChange(m.changed),
		waitForFired(m.fired),
		tickEvery(clockInterval),
	}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.chatView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.configView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		return m.updateActiveView(msg)

	case storeChangedMsg:
		cmd := m.reload()
		return m, tea.Batch(cmd, waitForChange(m.changed))

	case appsync.OverdueMsg:
		m.overdue = len(msg.Tasks)
		m.lastSweep = msg.At
		if msg.Advanced > 0 {
			m.status = fmt.Sprintf("%d recurring task(s) are due again", msg.Advanced)
		}
		cmds := []tea.Cmd{m.taskList.SetTasks(m.store.List(), msg.At)}
		if m.poller != nil {
			cmds = append(cmds, m.poller.WaitForNextResult())
		}
		return m, tea.Batch(cmds...)

	case reminder.Fired:
		m.status = "Reminder: " + msg.Title
		return m, tea.Batch(m.markReminded(msg), waitForFired(m.fired))

	case remindedMsg:
		if msg.err != nil && !errors.Is(msg.err, store.ErrTaskNotFound) {
			m.status = "Error: " + msg.err.Error()
		}
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, nil

	case clockTickMsg:
		cmd := m.taskList.SetTasks(m.store.List(), time.Time(msg))
		return m, tea.Batch(cmd, tickEvery(clockInterval))

	case taskform.SubmitMsg:
		m.currentView = ViewList
		return m, m.submitTask(msg)

	case taskform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = ViewList
		return m.runCommand(msg.Command)

	case configview.SavedMsg:
		m.currentView = ViewList
		m.snooze = msg.Config.Reminders.SnoozeOffset()
		m.status = "Settings saved"
		return m, nil

	case configview.ConfigDoneMsg:
		m.currentView = ViewList
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case chat.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case chat.ReplyMsg:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.currentView {
		case ViewList:
			return m.handleListKeys(msg)
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back, m.keys.Quit) {
				m.currentView = ViewList
			}
			return m, nil
		case ViewForm, ViewCommand, ViewSettings:
			if key.Matches(msg, m.keys.Back) {
				m.currentView = ViewList
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, hasSelection := m.taskList.SelectedTask()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Help):
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if !hasSelection {
			return m, nil
		}
		m.detailView.SetTask(selected, m.now())
		m.currentView = ViewDetail
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.currentView = ViewForm
		return m, m.taskForm.StartCreate()

	case key.Matches(msg, m.keys.Edit):
		if !hasSelection {
			return m, nil
		}
		m.currentView = ViewForm
		return m, m.taskForm.StartEdit(selected)

	case key.Matches(msg, m.keys.Toggle):
		if !hasSelection {
			return m, nil
		}
		return m, m.toggleTask(selected)

	case key.Matches(msg, m.keys.Snooze):
		if !hasSelection || selected.Completed {
			return m, nil
		}
		return m, m.snoozeTask(selected)

	case key.Matches(msg, m.keys.Delete):
		if !hasSelection {
			return m, nil
		}
		return m, m.deleteTask(selected)

	case key.Matches(msg, m.keys.ShowCompleted):
		return m, m.taskList.ToggleShowCompleted()

	case key.Matches(msg, m.keys.Chat):
		m.currentView = ViewChat
		return m, m.chatView.Focus()

	case key.Matches(msg, m.keys.Command):
		m.currentView = ViewCommand
		return m, m.commandView.Focus()

	case key.Matches(msg, m.keys.Settings):
		m.currentView = ViewSettings
		return m, m.configView.Init()

	case key.Matches(msg, m.keys.Refresh):
		if m.poller != nil {
			m.status = "Checking for overdue tasks..."
			return m, m.poller.RefreshNow()
		}
		return m, nil
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewChat:
		m.chatView, cmd = m.chatView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.configView, cmd = m.configView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}

	return m, cmd
}

// runCommand executes a parsed palette line.
func (m Model) runCommand(c command.Command) (tea.Model, tea.Cmd) {
	switch c := c.(type) {
	case command.QuickAdd:
		return m, m.submitTask(taskform.SubmitMsg{
			Title:      c.Title,
			DueAt:      c.DueAt,
			Recurrence: c.Recurrence,
		})
	case command.Ask:
		m.currentView = ViewChat
		return m, tea.Batch(m.chatView.Focus(), m.chatView.Submit(c.Prompt))
	case command.OpenChat:
		m.currentView = ViewChat
		return m, m.chatView.Focus()
	case command.Refresh:
		if m.poller != nil {
			m.status = "Checking for overdue tasks..."
			return m, m.poller.RefreshNow()
		}
	case command.ToggleCompleted:
		return m, m.taskList.ToggleShowCompleted()
	case command.Quit:
		return m, m.quit()
	}
	return m, nil
}

// reload re-reads both collections after a store change.
func (m *Model) reload() tea.Cmd {
	now := m.now()
	m.chatView.SetHistory(m.store.Chat())
	if id := m.detailView.TaskID(); id != "" {
		if t, ok := m.store.Get(id); ok {
			m.detailView.SetTask(t, now)
		} else {
			m.detailView.Clear()
		}
	}
	return m.taskList.SetTasks(m.store.List(), now)
}

func (m Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("remindme", m.sweepStatus(), m.overdue > 0)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewForm:
		return m.taskForm.View()
	case ViewChat:
		return m.chatView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.configView.View()
	case ViewDetail:
		return m.detailView.View()
	default:
		return m.taskList.View()
	}
}

// sweepStatus summarizes the last overdue sweep for the header.
func (m Model) sweepStatus() string {
	if m.lastSweep.IsZero() {
		return "checking..."
	}
	checked := m.lastSweep.Local().Format("15:04")
	if m.overdue == 0 {
		return "all clear · " + checked
	}
	return fmt.Sprintf("%d overdue · %s", m.overdue, checked)
}

func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewForm:
		return "enter next | esc cancel"
	case ViewChat:
		return "enter send | pgup/pgdown scroll | esc close"
	case ViewCommand:
		return "enter run | esc cancel"
	case ViewSettings:
		return "enter next | shift+tab back | esc cancel"
	case ViewDetail:
		return "esc back | j/k scroll"
	default:
		if m.status != "" {
			return m.status
		}
		return "q quit | ? help | n new | x done | s snooze | a assistant"
	}
}
