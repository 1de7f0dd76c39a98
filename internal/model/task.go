package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Recurrence governs whether and how a task's due time advances after
// completion.
type Recurrence string

const (
	RecurrenceOnce   Recurrence = "once"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

// ParseRecurrence maps a user or wire value onto a known policy.
// Anything unrecognized is treated as a one-shot task.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case RecurrenceDaily:
		return RecurrenceDaily
	case RecurrenceWeekly:
		return RecurrenceWeekly
	default:
		return RecurrenceOnce
	}
}

// Period returns the advance step for a recurring policy and false for
// one-shot tasks.
func (r Recurrence) Period() (time.Duration, bool) {
	switch r {
	case RecurrenceDaily:
		return 24 * time.Hour, true
	case RecurrenceWeekly:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Task is a single user obligation tracked for reminders.
type Task struct {
	// ID is assigned at creation and never changes.
	ID string `json:"id"`

	// Title is the non-empty display string.
	Title string `json:"title"`

	// DueAt is when the task becomes due. Nil means never due.
	DueAt *time.Time `json:"dueAt,omitempty"`

	// Recurrence is the advance policy applied after completion.
	Recurrence Recurrence `json:"recurrence"`

	// Completed is toggled by the user.
	Completed bool `json:"completed"`

	// LastRemindedAt records the most recent reminder firing. Advisory only.
	LastRemindedAt *time.Time `json:"lastRemindedAt,omitempty"`
}

// taskJSON mirrors Task with string timestamps so that malformed dates
// can be dropped instead of failing the whole document.
type taskJSON struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	DueAt          any    `json:"dueAt,omitempty"`
	Recurrence     string `json:"recurrence"`
	Completed      bool   `json:"completed"`
	LastRemindedAt any    `json:"lastRemindedAt,omitempty"`
}

// UnmarshalJSON decodes a task leniently: unparsable timestamps become
// nil and unknown recurrence values become RecurrenceOnce.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{
		ID:             raw.ID,
		Title:          raw.Title,
		DueAt:          parseInstant(raw.DueAt),
		Recurrence:     ParseRecurrence(raw.Recurrence),
		Completed:      raw.Completed,
		LastRemindedAt: parseInstant(raw.LastRemindedAt),
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate store-owned pointers.
func (t Task) Clone() Task {
	c := t
	if t.DueAt != nil {
		d := *t.DueAt
		c.DueAt = &d
	}
	if t.LastRemindedAt != nil {
		r := *t.LastRemindedAt
		c.LastRemindedAt = &r
	}
	return c
}

// parseInstant accepts RFC 3339 strings, date-only strings and epoch
// milliseconds. Anything else yields nil.
func parseInstant(v any) *time.Time {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return &ts
			}
		}
		return nil
	case float64:
		ts := time.UnixMilli(int64(val)).UTC()
		return &ts
	default:
		return nil
	}
}
