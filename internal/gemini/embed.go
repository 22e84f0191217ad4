package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quizify/internal/models"

	"github.com/google/generative-ai-go/genai"
)

// Embed returns the embedding of a search query.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &models.EmbeddingError{Op: "query", Err: fmt.Errorf("empty text")}
	}
	vectors, err := c.backend.embed(ctx, genai.TaskTypeRetrievalQuery, []string{text})
	if err != nil {
		return nil, &models.EmbeddingError{Op: "query", Err: err}
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, &models.EmbeddingError{Op: "query", Err: fmt.Errorf("no embedding returned")}
	}
	return vectors[0], nil
}

// EmbedMany returns one embedding per text, in order. Texts are sent in
// batches of at most MaxBatchSize. A missing or empty vector fails the whole
// call.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &models.EmbeddingError{Op: "documents", Err: fmt.Errorf("no texts to embed")}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		vectors, err := c.backend.embed(ctx, genai.TaskTypeRetrievalDocument, texts[start:end])
		if err != nil {
			return nil, &models.EmbeddingError{Op: "documents", Err: fmt.Errorf("batch %d-%d: %w", start, end, err)}
		}
		if len(vectors) != end-start {
			return nil, &models.EmbeddingError{
				Op:  "documents",
				Err: fmt.Errorf("batch %d-%d: got %d embeddings for %d texts", start, end, len(vectors), end-start),
			}
		}
		for i, v := range vectors {
			if len(v) == 0 {
				return nil, &models.EmbeddingError{Op: "documents", Err: fmt.Errorf("empty embedding for text %d", start+i)}
			}
		}
		out = append(out, vectors...)
	}
	log.Printf("INFO: Embedded %d texts", len(out))
	return out, nil
}
