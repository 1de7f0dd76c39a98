package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
)

// maxPromptTasks caps how many tasks are listed in the system prompt.
const maxPromptTasks = 50

// buildSystemPrompt constructs the system prompt with task context.
func buildSystemPrompt(tasks []model.Task, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You are a personal planning assistant. ")
	sb.WriteString("Help the user decide what to do next with their tasks.\n\n")

	sb.WriteString("Current time: ")
	sb.WriteString(now.UTC().Format(time.RFC3339))
	sb.WriteString("\n\n")

	sb.WriteString("Current task data:\n")
	sb.WriteString(buildTaskSummary(tasks, now))
	sb.WriteString("\n\n")

	sb.WriteString("Reply in at most five short bullet points. ")
	sb.WriteString("Mention overdue tasks first, then suggest one concrete next step.")

	return sb.String()
}

// buildTaskSummary lists open tasks with their due state.
func buildTaskSummary(tasks []model.Task, now time.Time) string {
	if len(tasks) == 0 {
		return "No tasks available."
	}

	overdue := reminder.Overdue(tasks, now)
	open := 0
	for _, t := range tasks {
		if !t.Completed {
			open++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total tasks: %d, open: %d, overdue: %d\n", len(tasks), open, len(overdue)))

	listed := 0
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if listed == maxPromptTasks {
			sb.WriteString("- ...\n")
			break
		}
		sb.WriteString("- ")
		sb.WriteString(t.Title)
		if t.DueAt != nil {
			sb.WriteString(" (due ")
			sb.WriteString(t.DueAt.UTC().Format("2006-01-02 15:04"))
			if reminder.IsOverdue(t, now) {
				sb.WriteString(", overdue")
			}
			sb.WriteString(")")
		}
		if t.Recurrence != model.RecurrenceOnce && t.Recurrence != "" {
			sb.WriteString(" [")
			sb.WriteString(string(t.Recurrence))
			sb.WriteString("]")
		}
		sb.WriteString("\n")
		listed++
	}

	return strings.TrimRight(sb.String(), "\n")
}
