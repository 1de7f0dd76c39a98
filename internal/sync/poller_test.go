package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/store"
	"github.com/nhle/remindme/internal/testutil"
)

type recorder struct {
	mu     gosync.Mutex
	notes  []string
	spoken []string
}

func (r *recorder) Notify(title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, title+"|"+body)
	return nil
}

func (r *recorder) Speak(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return nil
}

func (r *recorder) snapshot() (notes, spoken []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notes...), append([]string(nil), r.spoken...)
}

func titles(n ...string) []model.Task {
	var out []model.Task
	for _, t := range n {
		out = append(out, model.Task{Title: t})
	}
	return out
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "1 overdue: a", Summary(titles("a")))
	assert.Equal(t, "3 overdue: a, b, c", Summary(titles("a", "b", "c")))
	assert.Equal(t, "5 overdue: a, b, c and 2 more", Summary(titles("a", "b", "c", "d", "e")))
}

func TestSpoken(t *testing.T) {
	assert.Equal(t, "You have 1 overdue task: a.", Spoken(titles("a")))
	assert.Equal(t, "You have 4 overdue tasks: a, b, c.", Spoken(titles("a", "b", "c", "d")))
}

func TestPoller_SweepAnnouncesOverdue(t *testing.T) {
	clock := testutil.NewClock()
	s, _ := testutil.NewTestTaskStore(t, clock)
	ctx := context.Background()

	past := clock.Now.Add(-time.Minute)
	future := clock.Now.Add(time.Hour)
	_, err := s.Create(ctx, store.NewTask{Title: "Pay rent", DueAt: &past})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.NewTask{Title: "Plan trip", DueAt: &future})
	require.NoError(t, err)

	rec := &recorder{}
	p := New(s, Options{Notifier: rec, Speaker: rec, Now: clock.Func()})

	msg := p.Sweep()

	require.Len(t, msg.Tasks, 1)
	assert.Equal(t, "Pay rent", msg.Tasks[0].Title)
	assert.Equal(t, clock.Now, msg.At)
	require.Eventually(t, func() bool {
		notes, spoken := rec.snapshot()
		return len(notes) == 1 && len(spoken) == 1
	}, time.Second, 5*time.Millisecond)
	notes, spoken := rec.snapshot()
	assert.Equal(t, []string{"Overdue tasks|1 overdue: Pay rent"}, notes)
	assert.Equal(t, []string{"You have 1 overdue task: Pay rent."}, spoken)

	// No memory between sweeps: the same task is announced again.
	p.Sweep()
	assert.Eventually(t, func() bool {
		notes, _ := rec.snapshot()
		return len(notes) == 2
	}, time.Second, 5*time.Millisecond)
}

type blockingSpeaker struct{ release chan struct{} }

func (b blockingSpeaker) Speak(string) error {
	<-b.release
	return nil
}

func TestPoller_SweepDoesNotWaitForSpeech(t *testing.T) {
	clock := testutil.NewClock()
	past := clock.Now.Add(-time.Minute)
	speaker := blockingSpeaker{release: make(chan struct{})}
	defer close(speaker.release)

	p := New(failingSource{tasks: []model.Task{{Title: "x", DueAt: &past}}}, Options{Speaker: speaker, Now: clock.Func()})

	done := make(chan OverdueMsg, 1)
	go func() { done <- p.Sweep() }()

	select {
	case msg := <-done:
		assert.Len(t, msg.Tasks, 1)
	case <-time.After(time.Second):
		t.Fatal("sweep blocked on speech")
	}
}

func TestPoller_SweepQuietWhenNothingOverdue(t *testing.T) {
	clock := testutil.NewClock()
	s, _ := testutil.NewTestTaskStore(t, clock)

	rec := &recorder{}
	p := New(s, Options{Notifier: rec, Speaker: rec, Now: clock.Func()})

	msg := p.Sweep()
	assert.Empty(t, msg.Tasks)
	notes, spoken := rec.snapshot()
	assert.Empty(t, notes)
	assert.Empty(t, spoken)
}

func TestPoller_SweepRollsOverRecurring(t *testing.T) {
	clock := testutil.NewClock()
	s, _ := testutil.NewTestTaskStore(t, clock)
	ctx := context.Background()

	due := clock.Now.Add(-25 * time.Hour)
	task, err := s.Create(ctx, store.NewTask{Title: "Gym", DueAt: &due, Recurrence: model.RecurrenceDaily})
	require.NoError(t, err)
	_, err = s.SetCompleted(ctx, task.ID, true)
	require.NoError(t, err)

	p := New(s, Options{Now: clock.Func()})
	msg := p.Sweep()

	assert.Equal(t, 1, msg.Advanced)
	require.Len(t, msg.Tasks, 1)
	assert.Equal(t, "Gym", msg.Tasks[0].Title)
}

type failingSource struct{ tasks []model.Task }

func (f failingSource) List() []model.Task { return f.tasks }
func (f failingSource) Rollover(context.Context, time.Time) (int, error) {
	return 0, errors.New("disk full")
}

func TestPoller_SweepSurvivesRolloverError(t *testing.T) {
	clock := testutil.NewClock()
	past := clock.Now.Add(-time.Second)
	p := New(failingSource{tasks: []model.Task{{Title: "x", DueAt: &past}}}, Options{Now: clock.Func()})

	msg := p.Sweep()
	assert.Len(t, msg.Tasks, 1)
	assert.Zero(t, msg.Advanced)
}

func TestPoller_StartDeliversFirstSweep(t *testing.T) {
	clock := testutil.NewClock()
	p := New(failingSource{}, Options{Interval: time.Hour, Now: clock.Func()})
	defer p.Stop()

	cmd := p.Start()
	require.NotNil(t, cmd)
	assert.Nil(t, p.Start())

	msg, ok := cmd().(OverdueMsg)
	require.True(t, ok)
	assert.Equal(t, clock.Now, msg.At)

	p.RefreshNow()
	_, ok = p.WaitForNextResult()().(OverdueMsg)
	assert.True(t, ok)
}

func TestPoller_RestartAfterStop(t *testing.T) {
	clock := testutil.NewClock()
	p := New(failingSource{}, Options{Interval: time.Hour, Now: clock.Func()})

	cmd := p.Start()
	require.NotNil(t, cmd)
	_, ok := cmd().(OverdueMsg)
	require.True(t, ok)
	p.Stop()

	cmd = p.Start()
	require.NotNil(t, cmd)
	defer p.Stop()
	_, ok = cmd().(OverdueMsg)
	require.True(t, ok)

	// The restarted loop keeps serving refreshes.
	p.RefreshNow()
	result := make(chan tea.Msg, 1)
	go func() { result <- p.WaitForNextResult()() }()
	select {
	case msg := <-result:
		_, ok = msg.(OverdueMsg)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("restarted poller did not sweep on refresh")
	}
}
