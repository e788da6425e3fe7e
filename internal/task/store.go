package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planit/planit/internal/log"
)

// ErrNotFound indicates the task does not exist or belongs to another user.
var ErrNotFound = errors.New("task not found")

const (
	insertTaskSQL = `
		INSERT INTO tasks (user_id, title, description, priority, status, due_date, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	selectTaskSQL = `
		SELECT id, user_id, title, description, priority, status, due_date, start_time, end_time, created_at
		FROM tasks
		WHERE id = $1 AND user_id = $2`

	updateTaskSQL = `
		UPDATE tasks
		SET title = $3, description = $4, priority = $5, status = $6, due_date = $7, start_time = $8, end_time = $9
		WHERE id = $1 AND user_id = $2`

	deleteTaskSQL = `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2`
)

// querier is the subset of pgx operations the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists tasks in PostgreSQL. All operations are scoped to a
// user ID; a task is never visible outside its owner.
type Store struct {
	db     querier
	logger log.Logger
}

// NewStore creates a task store backed by pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: pool, logger: logger}
}

// Create inserts t and fills in its generated ID and creation time.
func (s *Store) Create(ctx context.Context, t *Task) error {
	if t.UserID == "" {
		return errors.New("task user ID is empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is empty")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status %q", t.Status)
	}

	err := s.db.QueryRow(ctx, insertTaskSQL,
		t.UserID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.StartTime, t.EndTime,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	s.logger.DebugContext(ctx, "task created", "task_id", t.ID, "user_id", t.UserID)
	return nil
}

// Get returns the task with the given ID if it belongs to userID.
func (s *Store) Get(ctx context.Context, userID string, id uuid.UUID) (*Task, error) {
	row := s.db.QueryRow(ctx, selectTaskSQL, id, userID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// List returns the user's tasks matching f, newest first.
func (s *Store) List(ctx context.Context, userID string, f Filter) ([]Task, error) {
	sql := `
		SELECT id, user_id, title, description, priority, status, due_date, start_time, end_time, created_at
		FROM tasks
		WHERE user_id = $1`
	args := []any{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		sql += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		sql += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	sql += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// Update overwrites the stored task with t's fields. The task is
// identified by t.ID and t.UserID.
func (s *Store) Update(ctx context.Context, t *Task) error {
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("invalid status %q", t.Status)
	}

	tag, err := s.db.Exec(ctx, updateTaskSQL,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.StartTime, t.EndTime)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the task if it belongs to userID.
func (s *Store) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteTaskSQL, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.DebugContext(ctx, "task deleted", "task_id", id, "user_id", userID)
	return nil
}

// Stats loads the user's tasks and aggregates counts as of now.
func (s *Store) Stats(ctx context.Context, userID string, now time.Time) (Stats, error) {
	tasks, err := s.List(ctx, userID, Filter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(tasks, now), nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.DueDate, &t.StartTime, &t.EndTime, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
