package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/store"
	"github.com/nhle/remindme/internal/testutil"
)

func newTestTools(t *testing.T) (*Tools, *store.TaskStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock()
	s, _ := testutil.NewTestTaskStore(t, clock)
	tools := NewTools(s, ai.NewAssistant(s, nil, time.Second))
	tools.now = clock.Func()
	return tools, s, clock
}

func TestListTasks(t *testing.T) {
	tools, s, clock := newTestTools(t)
	ctx := context.Background()

	past := clock.Now.Add(-time.Hour)
	open, err := s.Create(ctx, store.NewTask{Title: "Pay rent", DueAt: &past, Recurrence: model.RecurrenceDaily})
	require.NoError(t, err)
	done, err := s.Create(ctx, store.NewTask{Title: "Old", DueAt: &past, Recurrence: model.RecurrenceWeekly})
	require.NoError(t, err)
	_, err = s.SetCompleted(ctx, done.ID, true)
	require.NoError(t, err)

	_, out, err := tools.ListTasks(ctx, nil, ListInput{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, TaskView{
		ID:         open.ID,
		Title:      "Pay rent",
		DueAt:      "2025-03-14T08:00:00Z",
		NextDue:    "2025-03-14T08:00:00Z",
		Recurrence: "daily",
		Overdue:    true,
	}, out.Tasks[0])

	_, all, err := tools.ListTasks(ctx, nil, ListInput{IncludeCompleted: true})
	require.NoError(t, err)
	require.Equal(t, 2, all.Count)
	assert.Equal(t, "2025-03-21T08:00:00Z", all.Tasks[1].NextDue)
	assert.False(t, all.Tasks[1].Overdue)
}

func TestOverdueTasks(t *testing.T) {
	tools, s, clock := newTestTools(t)
	ctx := context.Background()

	_, out, err := tools.OverdueTasks(ctx, nil, OverdueInput{})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.Tasks)

	future := clock.Now.Add(time.Hour)
	past := clock.Now.Add(-time.Minute)
	_, _ = s.Create(ctx, store.NewTask{Title: "later", DueAt: &future})
	_, _ = s.Create(ctx, store.NewTask{Title: "now", DueAt: &past})

	_, out, err = tools.OverdueTasks(ctx, nil, OverdueInput{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "now", out.Tasks[0].Title)
}

func TestAsk_RecordsConversation(t *testing.T) {
	tools, s, _ := newTestTools(t)

	_, out, err := tools.Ask(context.Background(), nil, AskInput{Prompt: "tidy desk"})
	require.NoError(t, err)
	assert.Equal(t, "• Next: tidy desk\n• Action: pick one task and start a 25m focus block.", out.Reply)
	assert.Len(t, s.Chat(), 2)
}

func TestNewServer(t *testing.T) {
	tools, _, _ := newTestTools(t)
	assert.NotNil(t, NewServer(tools, "test"))
}
