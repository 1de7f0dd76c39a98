package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/store"
	"github.com/nhle/remindme/internal/testutil"
)

type stubGateway struct {
	res    Result
	prompt string
	tasks  []model.Task
}

func (g *stubGateway) Ask(ctx context.Context, prompt string, tasks []model.Task) Result {
	g.prompt = prompt
	g.tasks = tasks
	return g.res
}

func newTestAssistant(t *testing.T, g Gateway) (*Assistant, *store.TaskStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock()
	s, _ := testutil.NewTestTaskStore(t, clock)
	a := NewAssistant(s, g, time.Second)
	a.now = clock.Func()
	return a, s, clock
}

func TestAssistant_Live(t *testing.T) {
	a, _, _ := newTestAssistant(t, nil)
	assert.False(t, a.Live())

	b, _, _ := newTestAssistant(t, &stubGateway{})
	assert.True(t, b.Live())
}

func TestAssistant_ReplyUsesGateway(t *testing.T) {
	g := &stubGateway{res: Ok("focus on rent")}
	a, _, _ := newTestAssistant(t, g)

	tasks := []model.Task{{ID: "1", Title: "rent"}}
	assert.Equal(t, "focus on rent", a.Reply(context.Background(), "what?", tasks))
	assert.Equal(t, "what?", g.prompt)
	assert.Equal(t, tasks, g.tasks)
}

func TestAssistant_ReplyFallsBackOnError(t *testing.T) {
	a, _, clock := newTestAssistant(t, &stubGateway{res: Err(errors.New("503"))})

	due := clock.Now.Add(-time.Hour)
	tasks := []model.Task{{ID: "1", Title: "Pay rent", DueAt: &due}}

	got := a.Reply(context.Background(), "buy milk", tasks)
	assert.Equal(t, FallbackReply("buy milk", tasks, clock.Now), got)
}

func TestAssistant_AskRecordsBothSides(t *testing.T) {
	a, s, _ := newTestAssistant(t, nil)
	ctx := context.Background()

	_, err := s.Create(ctx, store.NewTask{Title: "Water plants"})
	require.NoError(t, err)

	reply, err := a.Ask(ctx, "  stretch, then email  ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "• Next: stretch\n• Action: pick one task and start a 25m focus block.", reply.Content)

	chat := s.Chat()
	require.Len(t, chat, 2)
	assert.Equal(t, model.RoleUser, chat[0].Role)
	assert.Equal(t, "stretch, then email", chat[0].Content)
	assert.Equal(t, reply, chat[1])
}

func TestAssistant_AskEmptyPromptRecordsReplyOnly(t *testing.T) {
	a, s, _ := newTestAssistant(t, nil)

	reply, err := a.Ask(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, StayFocused, reply.Content)
	assert.Len(t, s.Chat(), 1)
}
