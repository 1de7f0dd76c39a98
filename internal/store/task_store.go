package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
)

var (
	ErrTaskNotFound = errors.New("store: task not found")
	ErrEmptyTitle   = errors.New("store: task title must not be empty")
	ErrEmptyMessage = errors.New("store: chat message must not be empty")
)

// ChangeKind describes what a mutation did.
type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeUpdated    ChangeKind = "updated"
	ChangeCompleted  ChangeKind = "completed"
	ChangeReopened   ChangeKind = "reopened"
	ChangeSnoozed    ChangeKind = "snoozed"
	ChangeDeleted    ChangeKind = "deleted"
	ChangeRolledOver ChangeKind = "rolled_over"
	ChangeReminded   ChangeKind = "reminded"
	ChangeChat       ChangeKind = "chat"
)

// Change is published to subscribers after every successful mutation.
// Tasks is a snapshot of the whole collection after the change.
type Change struct {
	Kind   ChangeKind
	TaskID string
	Tasks  []model.Task
}

// AffectsSchedule reports whether the change can move a task's next due
// time or active state.
func (c Change) AffectsSchedule() bool {
	return c.Kind != ChangeReminded && c.Kind != ChangeChat
}

// NewTask holds the user-supplied fields of a task being created.
type NewTask struct {
	Title      string
	DueAt      *time.Time
	Recurrence model.Recurrence
}

// Options customizes a TaskStore. Zero values select wall-clock time and
// random UUIDs.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// TaskStore owns the ordered task collection and the chat history. It is
// the only writer of both; every mutation is written through to the KV
// collaborator in full before subscribers are told about it.
type TaskStore struct {
	mu    sync.Mutex
	kv    KV
	now   func() time.Time
	newID func() string
	tasks []model.Task
	chat  []model.ChatMessage
	subs  []func(Change)

	// Changes are delivered in commit order: seq is taken under mu and a
	// change is published only once every earlier one has been.
	seq       uint64
	pubMu     sync.Mutex
	pubTurn   *sync.Cond
	published uint64
}

// OpenTaskStore loads both documents from kv. Missing documents start
// empty; a corrupt document is logged and also starts empty.
func OpenTaskStore(ctx context.Context, kv KV, opts Options) (*TaskStore, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}

	s := &TaskStore{
		kv:    kv,
		now:   opts.Now,
		newID: opts.NewID,
	}
	s.pubTurn = sync.NewCond(&s.pubMu)

	if err := load(ctx, kv, KeyTasks, &s.tasks); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyChat, &s.chat); err != nil {
		return nil, err
	}

	return s, nil
}

func load(ctx context.Context, kv KV, key string, dst any) error {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("store: discarding unreadable %s document: %v", key, err)
	}
	return nil
}

// Subscribe registers fn to be called after every mutation. Callbacks
// run on the mutating goroutine, outside the store lock, one at a time
// and in the order the mutations were committed. A callback may read
// the store but must not mutate it.
func (s *TaskStore) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// List returns a copy of all tasks in creation order.
func (s *TaskStore) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Chat returns a copy of the conversation history.
func (s *TaskStore) Chat() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Create appends a new, not completed task.
func (s *TaskStore) Create(ctx context.Context, nt NewTask) (model.Task, error) {
	title := strings.TrimSpace(nt.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	t := model.Task{
		ID:         s.newID(),
		Title:      title,
		DueAt:      nt.DueAt,
		Recurrence: model.ParseRecurrence(string(nt.Recurrence)),
	}

	err := s.mutate(ctx, ChangeCreated, t.ID, func(tasks []model.Task) ([]model.Task, error) {
		return append(tasks, t), nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return t.Clone(), nil
}

// Update replaces the stored task that has the same ID.
func (s *TaskStore) Update(ctx context.Context, t model.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrEmptyTitle
	}
	t.Recurrence = model.ParseRecurrence(string(t.Recurrence))

	return s.mutate(ctx, ChangeUpdated, t.ID, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, t.ID)
		if i < 0 {
			return nil, fmt.Errorf("updating %s: %w", t.ID, ErrTaskNotFound)
		}
		tasks[i] = t.Clone()
		return tasks, nil
	})
}

// SetCompleted marks a task completed or open again.
func (s *TaskStore) SetCompleted(ctx context.Context, id string, completed bool) (model.Task, error) {
	kind := ChangeReopened
	if completed {
		kind = ChangeCompleted
	}
	return s.update(ctx, kind, id, func(t *model.Task) {
		t.Completed = completed
	})
}

// Toggle flips a task's completed flag.
func (s *TaskStore) Toggle(ctx context.Context, id string) (model.Task, error) {
	t, ok := s.Get(id)
	if !ok {
		return model.Task{}, fmt.Errorf("toggling %s: %w", id, ErrTaskNotFound)
	}
	return s.SetCompleted(ctx, id, !t.Completed)
}

// Snooze moves a task's due time to now plus offset.
func (s *TaskStore) Snooze(ctx context.Context, id string, offset time.Duration) (model.Task, error) {
	due := s.now().Add(offset)
	return s.update(ctx, ChangeSnoozed, id, func(t *model.Task) {
		t.DueAt = &due
	})
}

// MarkReminded records when a reminder last fired for the task.
func (s *TaskStore) MarkReminded(ctx context.Context, id string, at time.Time) (model.Task, error) {
	return s.update(ctx, ChangeReminded, id, func(t *model.Task) {
		t.LastRemindedAt = &at
	})
}

// Delete removes a task.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, ChangeDeleted, id, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("deleting %s: %w", id, ErrTaskNotFound)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

// Rollover reopens completed recurring tasks whose next occurrence has
// arrived. The new due time is the latest occurrence at or before now,
// so it is always strictly later than the previous one. It returns the
// number of tasks advanced.
func (s *TaskStore) Rollover(ctx context.Context, now time.Time) (int, error) {
	advanced := 0
	err := s.mutate(ctx, ChangeRolledOver, "", func(tasks []model.Task) ([]model.Task, error) {
		for i := range tasks {
			t := &tasks[i]
			if !t.Completed {
				continue
			}
			period, recurring := t.Recurrence.Period()
			next, ok := reminder.NextDue(*t)
			if !recurring || !ok || next.After(now) {
				continue
			}
			for !next.Add(period).After(now) {
				next = next.Add(period)
			}
			t.DueAt = &next
			t.Completed = false
			advanced++
		}
		if advanced == 0 {
			return nil, errNoChange
		}
		return tasks, nil
	})
	return advanced, err
}

// AppendChat adds a message to the conversation history.
func (s *TaskStore) AppendChat(ctx context.Context, role model.Role, content string) (model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	msg := model.ChatMessage{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	}

	s.mu.Lock()
	next := append(append([]model.ChatMessage{}, s.chat...), msg)
	data, err := json.Marshal(next)
	if err == nil {
		err = s.kv.Put(ctx, KeyChat, data)
	}
	if err != nil {
		s.mu.Unlock()
		return model.ChatMessage{}, fmt.Errorf("saving chat: %w", err)
	}
	s.chat = next
	s.commit(Change{Kind: ChangeChat, Tasks: cloneTasks(s.tasks)})
	return msg, nil
}

// errNoChange aborts a mutation without writing or publishing.
var errNoChange = errors.New("no change")

// update applies fn to a copy of the task with the given id.
func (s *TaskStore) update(ctx context.Context, kind ChangeKind, id string, fn func(*model.Task)) (model.Task, error) {
	var updated model.Task
	err := s.mutate(ctx, kind, id, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%s %s: %w", kind, id, ErrTaskNotFound)
		}
		fn(&tasks[i])
		updated = tasks[i].Clone()
		return tasks, nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

// mutate runs fn on a private copy of the collection, writes the result
// through to the KV store, swaps it in and publishes the change.
func (s *TaskStore) mutate(
	ctx context.Context,
	kind ChangeKind,
	id string,
	fn func([]model.Task) ([]model.Task, error),
) error {
	s.mu.Lock()

	next, err := fn(cloneTasks(s.tasks))
	if errors.Is(err, errNoChange) {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	data, err := json.Marshal(next)
	if err == nil {
		err = s.kv.Put(ctx, KeyTasks, data)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("saving tasks: %w", err)
	}

	s.tasks = next
	s.commit(Change{Kind: kind, TaskID: id, Tasks: cloneTasks(next)})
	return nil
}

// commit releases s.mu, which the caller must hold, and publishes c
// after every change committed before it.
func (s *TaskStore) commit(c Change) {
	s.seq++
	seq := s.seq
	subs := s.subscribers()
	s.mu.Unlock()

	s.pubMu.Lock()
	for s.published+1 != seq {
		s.pubTurn.Wait()
	}
	s.pubMu.Unlock()

	defer func() {
		s.pubMu.Lock()
		s.published = seq
		s.pubTurn.Broadcast()
		s.pubMu.Unlock()
	}()
	publish(subs, c)
}

func (s *TaskStore) subscribers() []func(Change) {
	subs := make([]func(Change), len(s.subs))
	copy(subs, s.subs)
	return subs
}

func (s *TaskStore) indexOf(id string) int {
	return indexOf(s.tasks, id)
}

func publish(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
