package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quizify/internal/db"
	"quizify/internal/quiz"

	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps sessions in the quiz_sessions table.
type PostgresStore struct {
	queries *db.Queries
	ttl     time.Duration
}

// NewPostgresStore returns a store running its statements through queries.
func NewPostgresStore(queries *db.Queries, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{queries: queries, ttl: ttl}
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	payload, err := p.queries.GetQuizSession(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: postgres get: %w", err)
	}
	return decode(payload)
}

func (p *PostgresStore) Save(ctx context.Context, s *quiz.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	err = p.queries.UpsertQuizSession(ctx, db.UpsertQuizSessionParams{
		ID:        s.ID,
		Payload:   data,
		ExpiresAt: time.Now().Add(p.ttl),
	})
	if err != nil {
		return fmt.Errorf("session: postgres save: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := p.queries.DeleteQuizSession(ctx, id); err != nil {
		return fmt.Errorf("session: postgres delete: %w", err)
	}
	return nil
}

// Cleanup deletes expired sessions every interval until ctx is done.
func (p *PostgresStore) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queries.DeleteExpiredQuizSessions(ctx)
			if err != nil {
				log.Printf("WARN: Failed to delete expired quiz sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("INFO: Deleted %d expired quiz sessions", n)
			}
		}
	}
}
