package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planit/planit/internal/log"
)

// ErrAlreadyCheckedIn indicates the user already claimed today's check-in.
var ErrAlreadyCheckedIn = errors.New("daily check-in already claimed for today")

// activityLimit caps how many recent activities Balance returns.
const activityLimit = 50

const (
	// Balance never goes below zero; penalties clamp at the floor.
	upsertPointsSQL = `
		INSERT INTO user_points (user_id, points)
		VALUES ($1, GREATEST($2, 0))
		ON CONFLICT (user_id)
		DO UPDATE SET points = GREATEST(user_points.points + $2, 0)
		RETURNING points`

	setCheckinAtSQL = `
		UPDATE user_points
		SET last_daily_checkin_at = now()
		WHERE user_id = $1`

	insertActivitySQL = `
		INSERT INTO point_activities (user_id, activity_type, amount, description)
		VALUES ($1, $2, $3, $4)`

	selectPointsSQL = `
		SELECT points, last_daily_checkin_at
		FROM user_points
		WHERE user_id = $1
		FOR UPDATE`

	selectBalanceSQL = `
		SELECT points
		FROM user_points
		WHERE user_id = $1`

	selectActivitiesSQL = `
		SELECT id, user_id, activity_type, amount, description, created_at
		FROM point_activities
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
)

// Store persists point balances and activity history in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a points store backed by pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Award updates the user's balance by amount and records an activity,
// atomically. The returned value is the new balance.
func (s *Store) Award(ctx context.Context, userID string, activityType ActivityType, amount int, description string) (int, error) {
	if userID == "" {
		return 0, errors.New("user ID is empty")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.DebugContext(ctx, "transaction rollback", "error", err)
		}
	}()

	balance, err := s.award(ctx, tx, userID, activityType, amount, description)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return balance, nil
}

func (s *Store) award(ctx context.Context, tx pgx.Tx, userID string, activityType ActivityType, amount int, description string) (int, error) {
	var balance int
	if err := tx.QueryRow(ctx, upsertPointsSQL, userID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	if activityType == ActivityDailyCheckin {
		if _, err := tx.Exec(ctx, setCheckinAtSQL, userID); err != nil {
			return 0, fmt.Errorf("record check-in time: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, insertActivitySQL, userID, activityType, amount, description); err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}

	s.logger.DebugContext(ctx, "points awarded",
		"user_id", userID, "type", activityType, "amount", amount, "balance", balance)
	return balance, nil
}

// DailyCheckin awards the daily bonus once per UTC calendar day. A
// second claim on the same day returns ErrAlreadyCheckedIn. The check
// and the award run in one transaction with the balance row locked, so
// concurrent claims cannot both succeed.
func (s *Store) DailyCheckin(ctx context.Context, userID string, now time.Time) (int, error) {
	if userID == "" {
		return 0, errors.New("user ID is empty")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.DebugContext(ctx, "transaction rollback", "error", err)
		}
	}()

	var (
		current     int
		lastCheckin *time.Time
	)
	err = tx.QueryRow(ctx, selectPointsSQL, userID).Scan(&current, &lastCheckin)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("select balance: %w", err)
	}
	if lastCheckin != nil && sameDay(*lastCheckin, now) {
		return 0, ErrAlreadyCheckedIn
	}

	balance, err := s.award(ctx, tx, userID, ActivityDailyCheckin, DailyCheckinPoints, "Daily check-in")
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return balance, nil
}

// Balance returns the user's current total and their most recent
// activities, newest first. A user with no history has a zero balance.
func (s *Store) Balance(ctx context.Context, userID string) (*Balance, error) {
	var total int
	err := s.pool.QueryRow(ctx, selectBalanceSQL, userID).Scan(&total)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("select balance: %w", err)
	}

	rows, err := s.pool.Query(ctx, selectActivitiesSQL, userID, activityLimit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0, activityLimit)
	for rows.Next() {
		var a Activity
		err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Amount, &a.Description, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return &Balance{Points: total, Activities: activities}, nil
}
