package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planit/planit/internal/task"
	"github.com/planit/planit/internal/testutil"
)

func setupStore(t *testing.T) *task.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return task.NewStore(testDB.Pool, testutil.DiscardLogger())
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	due := time.Now().AddDate(0, 0, 3).UTC()
	created := &task.Task{
		UserID:      "user-1",
		Title:       "Write report",
		Description: "Quarterly summary",
		Priority:    task.PriorityHigh,
		Status:      task.StatusPending,
		DueDate:     &due,
	}
	require.NoError(t, store.Create(ctx, created))
	require.NotEqual(t, uuid.Nil, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.WithinDuration(t, due, *got.DueDate, time.Second)
}

func TestStoreCreateDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := &task.Task{UserID: "user-1", Title: "Minimal"}
	require.NoError(t, store.Create(ctx, created))

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.Equal(t, task.StatusPending, got.Status)
}

func TestStoreUserIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := &task.Task{UserID: "alice", Title: "Private"}
	require.NoError(t, store.Create(ctx, created))

	_, err := store.Get(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	err = store.Delete(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	tasks, err := store.List(ctx, "bob", task.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStoreListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []task.Task{
		{UserID: "user-1", Title: "Buy milk", Status: task.StatusPending, Priority: task.PriorityLow},
		{UserID: "user-1", Title: "Ship release", Description: "cut the tag", Status: task.StatusInProgress, Priority: task.PriorityHigh},
		{UserID: "user-1", Title: "File taxes", Status: task.StatusCompleted, Priority: task.PriorityHigh},
	}
	for i := range seed {
		require.NoError(t, store.Create(ctx, &seed[i]))
	}

	all, err := store.List(ctx, "user-1", task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	high, err := store.List(ctx, "user-1", task.Filter{Priority: task.PriorityHigh})
	require.NoError(t, err)
	assert.Len(t, high, 2)

	pending, err := store.List(ctx, "user-1", task.Filter{Status: task.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Buy milk", pending[0].Title)

	byQuery, err := store.List(ctx, "user-1", task.Filter{Query: "TAG"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Ship release", byQuery[0].Title)
}

func TestStoreUpdate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := &task.Task{UserID: "user-1", Title: "Draft"}
	require.NoError(t, store.Create(ctx, created))

	created.Title = "Final"
	created.Status = task.StatusCompleted
	created.Priority = task.PriorityLow
	require.NoError(t, store.Update(ctx, created))

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, task.StatusCompleted, got.Status)

	missing := &task.Task{
		ID: uuid.New(), UserID: "user-1", Title: "x",
		Priority: task.PriorityLow, Status: task.StatusPending,
	}
	assert.ErrorIs(t, store.Update(ctx, missing), task.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := &task.Task{UserID: "user-1", Title: "Ephemeral"}
	require.NoError(t, store.Create(ctx, created))

	require.NoError(t, store.Delete(ctx, "user-1", created.ID))
	_, err := store.Get(ctx, "user-1", created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestStoreCompletionHistory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := &task.Task{UserID: "user-1", Title: "First"}
	second := &task.Task{UserID: "user-1", Title: "Second"}
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	now := time.Now()
	today := now.UTC().Format("2006-01-02")

	require.NoError(t, store.RecordCompletion(ctx, "user-1", first.ID, first.Title, now))
	require.NoError(t, store.RecordCompletion(ctx, "user-1", second.ID, second.Title, now))

	activity, err := store.ActivityByDay(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, activity[today])

	// One log entry per task, however often it is re-completed.
	require.NoError(t, store.RecordCompletion(ctx, "user-1", first.ID, first.Title, now))
	activity, err = store.ActivityByDay(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, activity[today])

	require.NoError(t, store.RemoveCompletion(ctx, "user-1", second.ID))
	activity, err = store.ActivityByDay(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, activity[today])

	// Removing an absent entry is a no-op.
	require.NoError(t, store.RemoveCompletion(ctx, "user-1", second.ID))

	// Deleting the task leaves the log intact.
	require.NoError(t, store.Delete(ctx, "user-1", first.ID))
	activity, err = store.ActivityByDay(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, activity[today])

	// Activity is scoped to its user.
	activity, err = store.ActivityByDay(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, activity)
}

func TestStoreStats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	past := time.Now().AddDate(0, 0, -2)
	seed := []task.Task{
		{UserID: "user-1", Title: "a", Status: task.StatusPending, Priority: task.PriorityHigh, DueDate: &past},
		{UserID: "user-1", Title: "b", Status: task.StatusCompleted, Priority: task.PriorityLow, DueDate: &past},
		{UserID: "user-1", Title: "c", Status: task.StatusInProgress, Priority: task.PriorityMedium},
	}
	for i := range seed {
		require.NoError(t, store.Create(ctx, &seed[i]))
	}

	stats, err := store.Stats(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 1, stats.PendingTasks)
	assert.Equal(t, 1, stats.InProgressTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 1, stats.OverdueTasks)
	assert.Equal(t, 1, stats.HighPriority)
}
