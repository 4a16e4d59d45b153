package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strom/internal/storage"
)

func TestStore_DueOrderingAcrossFractions(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	_, err = s.AddReminder(ctx, Reminder{Kind: KindTimer, DueAt: base.Add(500 * time.Millisecond), Message: "late"})
	require.NoError(t, err)
	_, err = s.AddReminder(ctx, Reminder{Kind: KindTimer, DueAt: base, Message: "early"})
	require.NoError(t, err)

	due, err := s.DueReminders(ctx, base)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "early", due[0].Message)

	due, err = s.DueReminders(ctx, base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].Message)
	assert.True(t, due[1].DueAt.Equal(base.Add(500*time.Millisecond)))

	require.NoError(t, s.MarkTriggered(ctx, due[0].ID))
	due, err = s.DueReminders(ctx, base.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestStore_TodoNotFound(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db)
	ctx := context.Background()

	_, err = s.Todo(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.CompleteTodo(ctx, 42), ErrNotFound)
	assert.ErrorIs(t, s.DeleteTodo(ctx, 42), ErrNotFound)
}
