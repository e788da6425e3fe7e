package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	upsertCompletionSQL = `
		INSERT INTO task_completion_history (user_id, task_id, task_title, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, task_id)
		DO UPDATE SET task_title = EXCLUDED.task_title, completed_at = EXCLUDED.completed_at`

	deleteCompletionSQL = `
		DELETE FROM task_completion_history
		WHERE user_id = $1 AND task_id = $2`

	selectCompletionsSQL = `
		SELECT completed_at
		FROM task_completion_history
		WHERE user_id = $1`
)

// RecordCompletion logs that the user completed a task. Completing the
// same task again moves its entry; the log keeps one row per task. The
// log has no foreign key to tasks, so entries survive task deletion.
func (s *Store) RecordCompletion(ctx context.Context, userID string, taskID uuid.UUID, title string, completedAt time.Time) error {
	_, err := s.db.Exec(ctx, upsertCompletionSQL, userID, taskID, title, completedAt)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// RemoveCompletion drops the completion log entry for a task. Removing
// an absent entry is a no-op.
func (s *Store) RemoveCompletion(ctx context.Context, userID string, taskID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, deleteCompletionSQL, userID, taskID); err != nil {
		return fmt.Errorf("remove completion: %w", err)
	}
	return nil
}

// ActivityByDay counts the user's logged completions per UTC calendar
// day, keyed "2006-01-02". Days without completions are absent.
func (s *Store) ActivityByDay(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.db.Query(ctx, selectCompletionsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	activity := make(map[string]int)
	for rows.Next() {
		var completedAt time.Time
		if err := rows.Scan(&completedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		activity[completedAt.UTC().Format("2006-01-02")]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return activity, nil
}
