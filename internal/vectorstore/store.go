// Package vectorstore keeps chunk embeddings in SQLite and answers
// similarity queries over one collection at a time.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"quizify/internal/models"

	"github.com/google/uuid"
	"github.com/viant/vec/search"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection)`,
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is a stored chunk scored against a query.
type Match struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"` // cosine similarity, higher is closer
}

// Store is a SQLite-backed vector index.
type Store struct {
	db       *sql.DB
	embedder Embedder
}

// Open opens (or creates) the index at dsn, e.g. ":memory:" or a file path.
func Open(dsn string, embedder Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("vectorstore: embedder is nil")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create vector schema: %w", err)
		}
	}
	log.Printf("INFO: Vector store opened at %s", dsn)
	return &Store{db: db, embedder: embedder}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores texts with their vectors in collection and returns the new
// chunk ids. All vectors must be non-empty and of the same dimension.
func (s *Store) Add(ctx context.Context, collection string, texts []string, vectors [][]float32) ([]string, error) {
	if collection == "" {
		return nil, &models.RetrievalError{Op: "add", Err: fmt.Errorf("empty collection name")}
	}
	if len(texts) != len(vectors) {
		return nil, &models.RetrievalError{Op: "add", Err: fmt.Errorf("%d texts but %d vectors", len(texts), len(vectors))}
	}
	if len(texts) == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, &models.RetrievalError{Op: "add", Err: fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &models.RetrievalError{Op: "add", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks(id, collection, content, embedding, created_at) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, &models.RetrievalError{Op: "add", Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], collection, text, encodeVector(vectors[i]), now); err != nil {
			return nil, &models.RetrievalError{Op: "add", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, &models.RetrievalError{Op: "add", Err: err}
	}
	return ids, nil
}

// Search embeds query and returns the k chunks of collection closest to it.
// Embedding failures are returned unchanged.
func (s *Store) Search(ctx context.Context, collection, query string, k int) ([]Match, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, collection, vec, k)
}

// SearchVector returns the k chunks of collection with the highest cosine
// similarity to vec, best first. Ties keep insertion order.
func (s *Store) SearchVector(ctx context.Context, collection string, vec []float32, k int) ([]Match, error) {
	if k < 1 {
		return nil, &models.RetrievalError{Op: "search", Err: fmt.Errorf("k must be positive, got %d", k)}
	}
	query := search.Float32s(vec)
	qm := query.Magnitude()
	if qm == 0 {
		return nil, &models.RetrievalError{Op: "search", Err: fmt.Errorf("query vector has zero magnitude")}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, embedding FROM chunks WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, &models.RetrievalError{Op: "search", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Text, &blob); err != nil {
			return nil, &models.RetrievalError{Op: "search", Err: err}
		}
		v, err := decodeVector(blob)
		if err != nil {
			return nil, &models.RetrievalError{Op: "search", Err: fmt.Errorf("chunk %s: %w", m.ID, err)}
		}
		if len(v) != len(vec) {
			return nil, &models.RetrievalError{
				Op:  "search",
				Err: fmt.Errorf("chunk %s has dimension %d, query has %d", m.ID, len(v), len(vec)),
			}
		}
		vm := search.Float32s(v).Magnitude()
		if vm == 0 {
			continue
		}
		m.Score = 1 - query.CosineDistanceWithMagnitude(v, qm, vm)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.RetrievalError{Op: "search", Err: err}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of chunks stored in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, &models.RetrievalError{Op: "count", Err: err}
	}
	return n, nil
}

// DropCollection deletes every chunk of collection.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return &models.RetrievalError{Op: "drop", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Printf("INFO: Dropped %d chunks of collection %s", n, collection)
	}
	return nil
}
