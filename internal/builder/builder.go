// Package builder runs the quiz pipeline: pages are chunked, embedded and
// indexed, then the passages closest to the topic are handed to the
// question generator.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"quizify/internal/chunker"
	"quizify/internal/document"
	"quizify/internal/models"
	"quizify/internal/quiz"
	"quizify/internal/vectorstore"

	"github.com/google/uuid"
)

var (
	// ErrNoDocuments is returned when there is no text to build a quiz from.
	ErrNoDocuments = errors.New("builder: no document text to build a quiz from")
	// ErrInvalidRequest is wrapped by topic and count validation failures.
	ErrInvalidRequest = errors.New("builder: invalid quiz request")
)

// DefaultRetrievalK is the number of passages retrieved for generation.
const DefaultRetrievalK = 8

// Embedder embeds document chunks.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores chunk vectors and answers topic queries.
type Index interface {
	Add(ctx context.Context, collection string, texts []string, vectors [][]float32) ([]string, error)
	Search(ctx context.Context, collection, query string, k int) ([]vectorstore.Match, error)
	DropCollection(ctx context.Context, collection string) error
}

// Generator writes questions from retrieved context.
type Generator interface {
	Generate(ctx context.Context, topic string, count int, passages []string) (quiz.Bank, error)
}

// Builder wires the collaborators of the pipeline together.
type Builder struct {
	splitter     *chunker.Splitter
	embedder     Embedder
	index        Index
	generator    Generator
	k            int
	maxQuestions int
}

// Options tune retrieval and request limits. Zero values pick the defaults.
type Options struct {
	RetrievalK   int
	MaxQuestions int
}

// New returns a Builder. A nil splitter uses chunker.Default().
func New(splitter *chunker.Splitter, embedder Embedder, index Index, generator Generator, opts Options) *Builder {
	if splitter == nil {
		splitter = chunker.Default()
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = DefaultRetrievalK
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 10
	}
	return &Builder{
		splitter:     splitter,
		embedder:     embedder,
		index:        index,
		generator:    generator,
		k:            opts.RetrievalK,
		maxQuestions: opts.MaxQuestions,
	}
}

// MaxQuestions returns the largest question count a request may ask for.
func (b *Builder) MaxQuestions() int { return b.maxQuestions }

// Request describes one quiz to build.
type Request struct {
	Topic string
	Count int
	Pages []document.Page
}

// Result is a built quiz and some bookkeeping about how it was built.
type Result struct {
	Session *quiz.Session
	Chunks  int
}

// Validate checks the topic and count of a request.
func (b *Builder) Validate(req Request) error {
	if strings.TrimSpace(req.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if req.Count < 1 || req.Count > b.maxQuestions {
		return fmt.Errorf("%w: number of questions must be between 1 and %d, got %d", ErrInvalidRequest, b.maxQuestions, req.Count)
	}
	return nil
}

// Ingest chunks pages, embeds the chunks and adds them to collection. It
// returns the number of chunks stored.
func (b *Builder) Ingest(ctx context.Context, collection string, pages []document.Page) (int, error) {
	var texts []string
	for _, p := range pages {
		for _, c := range b.splitter.Split(p.Content) {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		return 0, ErrNoDocuments
	}

	vectors, err := b.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, err
	}
	if _, err := b.index.Add(ctx, collection, texts, vectors); err != nil {
		return 0, err
	}
	log.Printf("INFO: Ingested %d chunks from %d pages into %s", len(texts), len(pages), collection)
	return len(texts), nil
}

// Retrieve returns the text of the k passages of collection most relevant
// to topic.
func (b *Builder) Retrieve(ctx context.Context, collection, topic string, k int) ([]string, error) {
	matches, err := b.index.Search(ctx, collection, topic, k)
	if err != nil {
		return nil, err
	}
	passages := make([]string, len(matches))
	for i, m := range matches {
		passages[i] = m.Text
	}
	return passages, nil
}

// BuildQuiz runs the whole pipeline for req in a fresh collection and
// returns a session positioned on the first question. On failure the
// collection is dropped again.
func (b *Builder) BuildQuiz(ctx context.Context, req Request) (*Result, error) {
	if err := b.Validate(req); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)
	collection := "quiz-" + uuid.NewString()

	chunks, err := b.Ingest(ctx, collection, req.Pages)
	if err != nil {
		b.drop(collection)
		return nil, err
	}

	passages, err := b.Retrieve(ctx, collection, topic, b.k)
	if err != nil {
		b.drop(collection)
		return nil, err
	}

	bank, err := b.generator.Generate(ctx, topic, req.Count, passages)
	if err != nil {
		b.drop(collection)
		return nil, err
	}
	if len(bank) != req.Count {
		b.drop(collection)
		return nil, &models.GenerationError{Topic: topic, Err: fmt.Errorf("got %d questions, want %d", len(bank), req.Count)}
	}

	session, err := quiz.NewSession(topic, collection, bank)
	if err != nil {
		b.drop(collection)
		return nil, err
	}
	log.Printf("INFO: Built quiz %s on %q with %d questions", session.ID, topic, len(bank))
	return &Result{Session: session, Chunks: chunks}, nil
}

// Discard removes the indexed chunks of a finished quiz.
func (b *Builder) Discard(ctx context.Context, session *quiz.Session) error {
	if session == nil || session.Collection == "" {
		return nil
	}
	return b.index.DropCollection(ctx, session.Collection)
}

func (b *Builder) drop(collection string) {
	// The request context may already be done.
	if err := b.index.DropCollection(context.Background(), collection); err != nil {
		log.Printf("WARN: Failed to drop collection %s: %v", collection, err)
	}
}
