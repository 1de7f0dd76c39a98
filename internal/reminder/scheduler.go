package reminder

import (
	"log"
	"sync"
	"time"

	"github.com/nhle/remindme/internal/model"
)

const (
	// MinInterval is the shortest timer the scheduler will arm.
	MinInterval = 60 * time.Second

	// DefaultInterval is used for active tasks that have no due time.
	DefaultInterval = 5 * time.Minute
)

// Poster delivers commands to a background worker. Implementations must
// apply commands for the same ID in the order they were posted.
type Poster interface {
	Post(cmd Command) error
}

// Interval computes the timer interval for an active task.
func Interval(t model.Task, now time.Time) time.Duration {
	interval := DefaultInterval
	if next, ok := NextDue(t); ok {
		interval = next.Sub(now)
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	return interval
}

// Scheduler keeps one background timer per active task in line with the
// task collection. It remembers which IDs it has armed so that a task
// leaving the active set is cancelled exactly once.
type Scheduler struct {
	mu        sync.Mutex
	poster    Poster
	now       func() time.Time
	scheduled map[string]bool
}

// NewScheduler creates a scheduler posting to p. A nil poster makes the
// scheduler a no-op, for hosts where no worker could be started.
func NewScheduler(p Poster, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		poster:    p,
		now:       now,
		scheduled: make(map[string]bool),
	}
}

// Sync re-derives every timer from the given snapshot: active tasks are
// (re)scheduled, previously scheduled tasks that are now completed or
// gone are cancelled.
func (s *Scheduler) Sync(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poster == nil {
		return
	}

	now := s.now()
	active := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		if t.Completed {
			continue
		}
		active[t.ID] = true
		s.post(ScheduleReminder{
			ID:       t.ID,
			Title:    t.Title,
			Interval: Interval(t, now),
		})
		s.scheduled[t.ID] = true
	}

	for id := range s.scheduled {
		if active[id] {
			continue
		}
		s.post(CancelReminder{ID: id})
		delete(s.scheduled, id)
	}
}

func (s *Scheduler) post(cmd Command) {
	if err := s.poster.Post(cmd); err != nil {
		log.Printf("reminder: posting %s for %s: %v", cmd.Kind(), cmd.TaskID(), err)
	}
}
