package reminder

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire names of the two worker commands.
const (
	KindSchedule = "SCHEDULE_REMINDER"
	KindCancel   = "CANCEL_REMINDER"
)

// Command is a message from the foreground to the background worker.
// It is either ScheduleReminder or CancelReminder.
type Command interface {
	Kind() string
	TaskID() string
}

// ScheduleReminder arms, or re-arms, a repeating timer keyed by ID.
type ScheduleReminder struct {
	ID       string
	Title    string
	Interval time.Duration
}

func (c ScheduleReminder) Kind() string   { return KindSchedule }
func (c ScheduleReminder) TaskID() string { return c.ID }

// CancelReminder disarms the timer keyed by ID. Unknown IDs are ignored.
type CancelReminder struct {
	ID string
}

func (c CancelReminder) Kind() string   { return KindCancel }
func (c CancelReminder) TaskID() string { return c.ID }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type schedulePayload struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	IntervalMs int64  `json:"intervalMs"`
}

type cancelPayload struct {
	ID string `json:"id"`
}

// EncodeCommand marshals a command into its {type, payload} envelope.
func EncodeCommand(c Command) ([]byte, error) {
	var payload any
	switch cmd := c.(type) {
	case ScheduleReminder:
		payload = schedulePayload{ID: cmd.ID, Title: cmd.Title, IntervalMs: cmd.Interval.Milliseconds()}
	case CancelReminder:
		payload = cancelPayload{ID: cmd.ID}
	default:
		return nil, fmt.Errorf("encoding command: unknown type %T", c)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", c.Kind(), err)
	}
	return json.Marshal(envelope{Type: c.Kind(), Payload: raw})
}

// DecodeCommand parses an envelope produced by EncodeCommand.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding command envelope: %w", err)
	}

	switch env.Type {
	case KindSchedule:
		var p schedulePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return ScheduleReminder{ID: p.ID, Title: p.Title, Interval: time.Duration(p.IntervalMs) * time.Millisecond}, nil
	case KindCancel:
		var p cancelPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return CancelReminder{ID: p.ID}, nil
	default:
		return nil, fmt.Errorf("decoding command: unknown type %q", env.Type)
	}
}
