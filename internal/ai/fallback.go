package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
)

const (
	// ActionLine closes every fallback reply.
	ActionLine = "Action: pick one task and start a 25m focus block."

	// StayFocused is the whole reply when there is nothing overdue and
	// no prompt to echo.
	StayFocused = "Stay focused: pick one task and start a 25m focus block."

	bullet = "• "
)

// FallbackReply builds the deterministic, network-free assistant reply.
// The same prompt, tasks and now always produce the same text.
func FallbackReply(prompt string, tasks []model.Task, now time.Time) string {
	var lines []string

	if overdue := reminder.Overdue(tasks, now); len(overdue) > 0 {
		lines = append(lines, fmt.Sprintf(
			"Overdue (%d): %s",
			len(overdue), strings.Join(reminder.Titles(overdue, 3), ", "),
		))
	}

	if next := firstClause(prompt); next != "" {
		lines = append(lines, "Next: "+next)
	}

	if len(lines) == 0 {
		return StayFocused
	}

	lines = append(lines, ActionLine)
	for i, l := range lines {
		lines[i] = bullet + l
	}
	return strings.Join(lines, "\n")
}

// firstClause returns the prompt up to the first ',', '.' or ';', trimmed.
func firstClause(prompt string) string {
	if i := strings.IndexAny(prompt, ",.;"); i >= 0 {
		prompt = prompt[:i]
	}
	return strings.TrimSpace(prompt)
}
