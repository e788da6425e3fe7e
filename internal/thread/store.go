package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planit/planit/internal/log"
)

// ErrNotFound indicates the thread does not exist or belongs to another user.
var ErrNotFound = errors.New("thread not found")

const (
	insertThreadSQL = `
		INSERT INTO threads (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, message_count, created_at, updated_at`

	selectThreadSQL = `
		SELECT id, user_id, title, message_count, created_at, updated_at
		FROM threads
		WHERE id = $1 AND user_id = $2`

	listThreadsSQL = `
		SELECT id, user_id, title, message_count, created_at, updated_at
		FROM threads
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	deleteThreadSQL = `
		DELETE FROM threads
		WHERE id = $1 AND user_id = $2`

	updateThreadTitleSQL = `
		UPDATE threads
		SET title = $3
		WHERE id = $1 AND user_id = $2`

	lockThreadSQL = `
		SELECT id FROM threads
		WHERE id = $1
		FOR UPDATE`

	maxSequenceSQL = `
		SELECT COALESCE(MAX(sequence_number), 0)
		FROM thread_messages
		WHERE thread_id = $1`

	insertMessageSQL = `
		INSERT INTO thread_messages (thread_id, role, content, tool_name, tool_call_id, sequence_number)
		VALUES ($1, $2, $3, $4, $5, $6)`

	touchThreadSQL = `
		UPDATE threads
		SET message_count = $2, updated_at = now()
		WHERE id = $1`

	selectMessagesSQL = `
		SELECT id, thread_id, role, content, tool_name, tool_call_id, sequence_number, created_at
		FROM thread_messages
		WHERE thread_id = $1
		ORDER BY sequence_number ASC`
)

// Store persists threads and their messages in PostgreSQL.
//
// Store is safe for concurrent use. Appends to the same thread are
// serialized through a row lock so sequence numbers stay dense.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a thread store backed by pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Create starts a new thread for userID. An empty title gets DefaultTitle.
func (s *Store) Create(ctx context.Context, userID, title string) (*Thread, error) {
	if userID == "" {
		return nil, errors.New("thread user ID is empty")
	}
	if title == "" {
		title = DefaultTitle
	}

	row := s.pool.QueryRow(ctx, insertThreadSQL, userID, title)
	t, err := scanThread(row)
	if err != nil {
		return nil, fmt.Errorf("insert thread: %w", err)
	}

	s.logger.DebugContext(ctx, "thread created", "thread_id", t.ID, "user_id", userID)
	return t, nil
}

// Get returns the thread with the given ID if it belongs to userID.
func (s *Store) Get(ctx context.Context, userID string, id uuid.UUID) (*Thread, error) {
	row := s.pool.QueryRow(ctx, selectThreadSQL, id, userID)
	t, err := scanThread(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select thread: %w", err)
	}
	return t, nil
}

// List returns the user's threads, most recently updated first.
func (s *Store) List(ctx context.Context, userID string) ([]Thread, error) {
	rows, err := s.pool.Query(ctx, listThreadsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

// Delete removes the thread and all its messages (CASCADE).
func (s *Store) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, deleteThreadSQL, id, userID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.DebugContext(ctx, "thread deleted", "thread_id", id, "user_id", userID)
	return nil
}

// SetTitle replaces the thread title.
func (s *Store) SetTitle(ctx context.Context, userID string, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, updateThreadTitleSQL, id, userID, title)
	if err != nil {
		return fmt.Errorf("update thread title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessages appends messages to a thread in one transaction.
// Sequence numbers continue from the thread's current maximum, and the
// thread's message count and updated_at are refreshed atomically. The
// thread row is locked for the duration so concurrent appends to the
// same thread cannot interleave sequence numbers.
func (s *Store) AppendMessages(ctx context.Context, threadID uuid.UUID, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	for i, m := range messages {
		if !ValidRole(m.Role) {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.DebugContext(ctx, "transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, lockThreadSQL, threadID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock thread: %w", err)
	}

	var maxSeq int
	if err := tx.QueryRow(ctx, maxSequenceSQL, threadID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("max sequence number: %w", err)
	}

	for i, m := range messages {
		seq := maxSeq + i + 1
		_, err := tx.Exec(ctx, insertMessageSQL,
			threadID, m.Role, m.Content, m.ToolName, m.ToolCallID, seq)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	newCount := maxSeq + len(messages)
	if _, err := tx.Exec(ctx, touchThreadSQL, threadID, newCount); err != nil {
		return fmt.Errorf("update thread metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "messages appended",
		"thread_id", threadID, "count", len(messages))
	return nil
}

// Messages returns the thread's full history in sequence order.
func (s *Store) Messages(ctx context.Context, threadID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, selectMessagesSQL, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		err := rows.Scan(
			&m.ID, &m.ThreadID, &m.Role, &m.Content,
			&m.ToolName, &m.ToolCallID, &m.SequenceNumber, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func scanThread(row pgx.Row) (*Thread, error) {
	var t Thread
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.MessageCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
