package thread_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planit/planit/internal/testutil"
	"github.com/planit/planit/internal/thread"
)

func setupStore(t *testing.T) *thread.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return thread.NewStore(testDB.Pool, testutil.DiscardLogger())
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, thread.DefaultTitle, created.Title)
	assert.Equal(t, 0, created.MessageCount)

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.Get(ctx, "someone-else", created.ID)
	assert.ErrorIs(t, err, thread.ErrNotFound)
}

func TestStoreListOrdersByUpdatedAt(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "user-1", "first")
	require.NoError(t, err)
	second, err := store.Create(ctx, "user-1", "second")
	require.NoError(t, err)

	// Appending touches updated_at, so first becomes most recent.
	err = store.AppendMessages(ctx, first.ID, []thread.Message{
		{Role: thread.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	threads, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, first.ID, threads[0].ID)
	assert.Equal(t, second.ID, threads[1].ID)
}

func TestStoreAppendAssignsSequenceNumbers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	toolName := "get_task_stats"
	callID := "call-1"
	batch := []thread.Message{
		{Role: thread.RoleUser, Content: "How are my tasks?"},
		{Role: thread.RoleTool, Content: `{"totalTasks":0}`, ToolName: &toolName, ToolCallID: &callID},
		{Role: thread.RoleAssistant, Content: "You have no tasks."},
	}
	require.NoError(t, store.AppendMessages(ctx, created.ID, batch))

	messages, err := store.Messages(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, m := range messages {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
	assert.Equal(t, thread.RoleTool, messages[1].Role)
	require.NotNil(t, messages[1].ToolName)
	assert.Equal(t, "get_task_stats", *messages[1].ToolName)

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MessageCount)
}

func TestStoreAppendToMissingThread(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.AppendMessages(ctx, uuid.New(), []thread.Message{
		{Role: thread.RoleUser, Content: "hi"},
	})
	assert.ErrorIs(t, err, thread.ErrNotFound)
}

func TestStoreAppendRejectsInvalidRole(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	err = store.AppendMessages(ctx, created.ID, []thread.Message{
		{Role: "model", Content: "hi"},
	})
	assert.Error(t, err)

	messages, err := store.Messages(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStoreConcurrentAppendsStayDense(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := store.AppendMessages(ctx, created.ID, []thread.Message{
				{Role: thread.RoleUser, Content: fmt.Sprintf("message %d", n)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages, err := store.Messages(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, messages, writers)
	for i, m := range messages {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
}

func TestStoreDeleteCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessages(ctx, created.ID, []thread.Message{
		{Role: thread.RoleUser, Content: "hi"},
	}))

	require.NoError(t, store.Delete(ctx, "user-1", created.ID))

	_, err = store.Get(ctx, "user-1", created.ID)
	assert.ErrorIs(t, err, thread.ErrNotFound)

	messages, err := store.Messages(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStoreSetTitle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", "")
	require.NoError(t, err)

	require.NoError(t, store.SetTitle(ctx, "user-1", created.ID, "Weekly planning"))

	got, err := store.Get(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly planning", got.Title)

	err = store.SetTitle(ctx, "other", created.ID, "nope")
	assert.ErrorIs(t, err, thread.ErrNotFound)
}
