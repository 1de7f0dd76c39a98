// Package mcpserver exposes the task list and the planning assistant as
// Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/store"
)

type ListInput struct {
	IncludeCompleted bool `json:"include_completed,omitempty" jsonschema:"also list completed tasks"`
}

type OverdueInput struct{}

type AskInput struct {
	Prompt string `json:"prompt" jsonschema:"the planning question"`
}

type TaskView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DueAt      string `json:"due_at,omitempty"`
	NextDue    string `json:"next_due,omitempty"`
	Recurrence string `json:"recurrence"`
	Completed  bool   `json:"completed"`
	Overdue    bool   `json:"overdue"`
}

type TaskList struct {
	Count int        `json:"count"`
	Tasks []TaskView `json:"tasks"`
}

type AskOutput struct {
	Reply string `json:"reply"`
}

// Tools implements the tool handlers.
type Tools struct {
	store     *store.TaskStore
	assistant *ai.Assistant
	now       func() time.Time
}

func NewTools(s *store.TaskStore, a *ai.Assistant) *Tools {
	return &Tools{store: s, assistant: a, now: time.Now}
}

// NewServer registers the tools on a new MCP server.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "remindme", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tracked tasks with their next due time.",
	}, t.ListTasks)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "overdue_tasks",
		Description: "List tasks that are overdue right now.",
	}, t.OverdueTasks)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask the planning assistant a question about the task list.",
	}, t.Ask)

	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, t *Tools, version string) error {
	return NewServer(t, version).Run(ctx, &mcp.StdioTransport{})
}

func (t *Tools) ListTasks(ctx context.Context, req *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, TaskList, error) {
	now := t.now()
	out := TaskList{Tasks: []TaskView{}}
	for _, task := range t.store.List() {
		if task.Completed && !in.IncludeCompleted {
			continue
		}
		out.Tasks = append(out.Tasks, view(task, now))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (t *Tools) OverdueTasks(ctx context.Context, req *mcp.CallToolRequest, in OverdueInput) (*mcp.CallToolResult, TaskList, error) {
	now := t.now()
	out := TaskList{Tasks: []TaskView{}}
	for _, task := range reminder.Overdue(t.store.List(), now) {
		out.Tasks = append(out.Tasks, view(task, now))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (t *Tools) Ask(ctx context.Context, req *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	msg, err := t.assistant.Ask(ctx, in.Prompt)
	if err != nil {
		return nil, AskOutput{}, fmt.Errorf("asking assistant: %w", err)
	}
	return nil, AskOutput{Reply: msg.Content}, nil
}

func view(task model.Task, now time.Time) TaskView {
	v := TaskView{
		ID:         task.ID,
		Title:      task.Title,
		Recurrence: string(task.Recurrence),
		Completed:  task.Completed,
		Overdue:    reminder.IsOverdue(task, now),
	}
	if task.DueAt != nil {
		v.DueAt = task.DueAt.UTC().Format(time.RFC3339)
	}
	if next, ok := reminder.NextDue(task); ok {
		v.NextDue = next.UTC().Format(time.RFC3339)
	}
	return v
}
