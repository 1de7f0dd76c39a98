package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/store"
	"github.com/nhle/remindme/internal/ui/taskform"
)

// actionResultMsg is sent after a store mutation finishes.
type actionResultMsg struct {
	status string
	err    error
}

// remindedMsg is sent after a fired reminder has been recorded.
type remindedMsg struct {
	fired reminder.Fired
	err   error
}

// submitTask creates or updates a task from the form result.
func (m *Model) submitTask(msg taskform.SubmitMsg) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()

		if msg.ID == "" {
			t, err := s.Create(ctx, store.NewTask{
				Title:      msg.Title,
				DueAt:      msg.DueAt,
				Recurrence: msg.Recurrence,
			})
			return actionResultMsg{status: fmt.Sprintf("Added %q", t.Title), err: err}
		}

		existing, ok := s.Get(msg.ID)
		if !ok {
			return actionResultMsg{err: fmt.Errorf("editing %s: %w", msg.ID, store.ErrTaskNotFound)}
		}
		existing.Title = msg.Title
		existing.DueAt = msg.DueAt
		existing.Recurrence = msg.Recurrence
		err := s.Update(ctx, existing)
		return actionResultMsg{status: fmt.Sprintf("Saved %q", existing.Title), err: err}
	}
}

// toggleTask flips a task between open and completed.
func (m *Model) toggleTask(t model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		updated, err := s.Toggle(context.Background(), t.ID)
		status := fmt.Sprintf("Reopened %q", t.Title)
		if updated.Completed {
			status = fmt.Sprintf("Completed %q", t.Title)
		}
		return actionResultMsg{status: status, err: err}
	}
}

// snoozeTask pushes a task's due time to now plus the configured offset.
func (m *Model) snoozeTask(t model.Task) tea.Cmd {
	s := m.store
	offset := m.snooze
	return func() tea.Msg {
		_, err := s.Snooze(context.Background(), t.ID, offset)
		return actionResultMsg{
			status: fmt.Sprintf("Snoozed %q for %s", t.Title, offset),
			err:    err,
		}
	}
}

// deleteTask removes a task from the store.
func (m *Model) deleteTask(t model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.Delete(context.Background(), t.ID)
		return actionResultMsg{status: fmt.Sprintf("Deleted %q", t.Title), err: err}
	}
}

// markReminded records a firing on the task it belongs to. A task that
// was deleted after its timer elapsed is not an error worth showing.
func (m *Model) markReminded(f reminder.Fired) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		_, err := s.MarkReminded(context.Background(), f.ID, f.At)
		return remindedMsg{fired: f, err: err}
	}
}

// storeChangedMsg tells the root model to re-read the store.
type storeChangedMsg struct{}

// watchStore subscribes to store mutations and coalesces them into a
// single pending signal on changed.
func watchStore(s *store.TaskStore, changed chan struct{}) {
	s.Subscribe(func(store.Change) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
}

func waitForChange(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return storeChangedMsg{}
	}
}

func waitForFired(fired <-chan reminder.Fired) tea.Cmd {
	if fired == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-fired
		if !ok {
			return nil
		}
		return f
	}
}

// clockTickMsg refreshes relative due times on screen.
type clockTickMsg time.Time

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}
