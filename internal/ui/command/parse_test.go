package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/model"
)

func TestParse_QuickAdd(t *testing.T) {
	cmd, err := parse("add Pay rent @2025-03-15 09:00 !weekly", time.UTC)
	require.NoError(t, err)

	add, ok := cmd.(QuickAdd)
	require.True(t, ok)
	assert.Equal(t, "Pay rent", add.Title)
	assert.Equal(t, model.RecurrenceWeekly, add.Recurrence)
	require.NotNil(t, add.DueAt)
	assert.Equal(t, time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC), *add.DueAt)
}

func TestParse_QuickAddRecurrenceAnywhere(t *testing.T) {
	cmd, err := parse("new !DAILY Stretch @2025-03-15", time.UTC)
	require.NoError(t, err)

	add := cmd.(QuickAdd)
	assert.Equal(t, "Stretch", add.Title)
	assert.Equal(t, model.RecurrenceDaily, add.Recurrence)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *add.DueAt)
}

func TestParse_QuickAddWithoutDue(t *testing.T) {
	cmd, err := parse("a  Water plants ", time.UTC)
	require.NoError(t, err)

	add := cmd.(QuickAdd)
	assert.Equal(t, "Water plants", add.Title)
	assert.Nil(t, add.DueAt)
	assert.Equal(t, model.RecurrenceOnce, add.Recurrence)
}

func TestParse_QuickAddErrors(t *testing.T) {
	_, err := parse("add", time.UTC)
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = parse("add @2025-03-15", time.UTC)
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = parse("add Rent @tomorrow", time.UTC)
	assert.Error(t, err)

	_, err = parse("add Rent !monthly", time.UTC)
	assert.ErrorContains(t, err, `unknown repeat "!monthly"`)
}

func TestParse_Verbs(t *testing.T) {
	cases := map[string]Command{
		"ask what now?": Ask{Prompt: "what now?"},
		"ask":           OpenChat{},
		"chat":          OpenChat{},
		"refresh":       Refresh{},
		"overdue":       Refresh{},
		"completed":     ToggleCompleted{},
		"hide":          ToggleCompleted{},
		"q":             Quit{},
		"  QUIT  ":      Quit{},
	}
	for line, want := range cases {
		got, err := parse(line, time.UTC)
		require.NoError(t, err, line)
		assert.Equal(t, want, got, line)
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := parse("frobnicate now", time.UTC)
	assert.EqualError(t, err, `unknown command "frobnicate"`)
}
