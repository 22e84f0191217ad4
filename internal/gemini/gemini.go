package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the Gemini model used for question generation
	DefaultModel = "gemini-2.0-flash"
	// DefaultEmbeddingModel is the model used for chunk and query embeddings
	DefaultEmbeddingModel = "text-embedding-004"
	// MaxBatchSize is the number of texts the API accepts per batch embed call
	MaxBatchSize = 100

	maxAttempts = 3
)

// backend is the part of the Gemini API the client talks to.
type backend interface {
	embed(ctx context.Context, task genai.TaskType, texts []string) ([][]float32, error)
	complete(ctx context.Context, prompt string) (string, error)
}

// Client wraps the Gemini client for embeddings and question generation
type Client struct {
	backend    backend
	closer     func() error
	retryDelay time.Duration
}

// Config holds the API key and model names
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = quizSchema
	model.SetTemperature(0.2)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(8192)

	return &Client{
		backend: &genaiBackend{
			model:    model,
			embedder: client.EmbeddingModel(cfg.EmbeddingModel),
		},
		closer:     client.Close,
		retryDelay: 2 * time.Second,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// sleep waits between attempts unless the context ends first.
func (c *Client) sleep(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type genaiBackend struct {
	model    *genai.GenerativeModel
	embedder *genai.EmbeddingModel
}

func (b *genaiBackend) embed(ctx context.Context, task genai.TaskType, texts []string) ([][]float32, error) {
	// EmbeddingModel carries the task type, so work on a copy per call.
	em := *b.embedder
	em.TaskType = task

	if len(texts) == 1 {
		res, err := em.EmbedContent(ctx, genai.Text(texts[0]))
		if err != nil {
			return nil, err
		}
		if res.Embedding == nil {
			return nil, fmt.Errorf("empty embedding response")
		}
		return [][]float32{res.Embedding.Values}, nil
	}

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e != nil {
			out[i] = e.Values
		}
	}
	return out, nil
}

func (b *genaiBackend) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
