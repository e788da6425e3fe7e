package points_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planit/planit/internal/points"
	"github.com/planit/planit/internal/testutil"
)

func setupStore(t *testing.T) *points.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return points.NewStore(testDB.Pool, testutil.DiscardLogger())
}

func TestAwardAccumulates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	balance, err := store.Award(ctx, "user-1", points.ActivitySignupBonus, 10, "Signup bonus")
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	balance, err = store.Award(ctx, "user-1", points.ActivityTaskCompletedOnTime, 3, "Task completed on time")
	require.NoError(t, err)
	assert.Equal(t, 13, balance)
}

func TestAwardClampsAtZero(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	balance, err := store.Award(ctx, "user-1", points.ActivityMissedDeadline, -5, "Missed deadline")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	balance, err = store.Award(ctx, "user-1", points.ActivitySignupBonus, 2, "Signup bonus")
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	balance, err = store.Award(ctx, "user-1", points.ActivityMissedDeadline, -10, "Missed deadline")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestDailyCheckinOncePerDay(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	balance, err := store.DailyCheckin(ctx, "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, points.DailyCheckinPoints, balance)

	_, err = store.DailyCheckin(ctx, "user-1", now)
	assert.ErrorIs(t, err, points.ErrAlreadyCheckedIn)

	// Other users are unaffected.
	balance, err = store.DailyCheckin(ctx, "user-2", now)
	require.NoError(t, err)
	assert.Equal(t, points.DailyCheckinPoints, balance)
}

func TestDailyCheckinConcurrentClaims(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	const claims = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.DailyCheckin(ctx, "user-1", now)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, points.ErrAlreadyCheckedIn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	balance, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, points.DailyCheckinPoints, balance.Points)
}

func TestBalanceListsActivitiesNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Award(ctx, "user-1", points.ActivitySignupBonus, 10, "Signup bonus")
	require.NoError(t, err)
	_, err = store.Award(ctx, "user-1", points.ActivityTaskCompletedOnTime, 3, "Task completed on time")
	require.NoError(t, err)

	balance, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 13, balance.Points)
	require.Len(t, balance.Activities, 2)
	assert.Equal(t, points.ActivityTaskCompletedOnTime, balance.Activities[0].Type)
	assert.Equal(t, points.ActivitySignupBonus, balance.Activities[1].Type)
}

func TestBalanceUnknownUser(t *testing.T) {
	store := setupStore(t)

	balance, err := store.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Points)
	assert.Empty(t, balance.Activities)
}
