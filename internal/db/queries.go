package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries runs the quiz session statements against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createQuizSessions = `
CREATE TABLE IF NOT EXISTS quiz_sessions (
    id         TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the quiz_sessions table.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, createQuizSessions); err != nil {
		return fmt.Errorf("failed to create quiz_sessions table: %w", err)
	}
	return nil
}

const upsertQuizSession = `
INSERT INTO quiz_sessions (id, payload, updated_at, expires_at)
VALUES ($1, $2, now(), $3)
ON CONFLICT (id) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = now(), expires_at = EXCLUDED.expires_at`

// UpsertQuizSessionParams are the arguments of UpsertQuizSession.
type UpsertQuizSessionParams struct {
	ID        string
	Payload   []byte
	ExpiresAt time.Time
}

// UpsertQuizSession stores the JSON payload of a session.
func (q *Queries) UpsertQuizSession(ctx context.Context, arg UpsertQuizSessionParams) error {
	_, err := q.db.Exec(ctx, upsertQuizSession, arg.ID, arg.Payload, arg.ExpiresAt)
	return err
}

const getQuizSession = `
SELECT payload FROM quiz_sessions
WHERE id = $1 AND expires_at > now()`

// GetQuizSession returns the payload of a live session. It returns
// pgx.ErrNoRows when the session does not exist or has expired.
func (q *Queries) GetQuizSession(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := q.db.QueryRow(ctx, getQuizSession, id).Scan(&payload)
	return payload, err
}

const deleteQuizSession = `DELETE FROM quiz_sessions WHERE id = $1`

// DeleteQuizSession removes a session.
func (q *Queries) DeleteQuizSession(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteQuizSession, id)
	return err
}

const deleteExpiredQuizSessions = `DELETE FROM quiz_sessions WHERE expires_at <= now()`

// DeleteExpiredQuizSessions removes expired sessions and returns how many
// were deleted.
func (q *Queries) DeleteExpiredQuizSessions(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteExpiredQuizSessions)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
