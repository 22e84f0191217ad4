package models

import "fmt"

// EmbeddingError reports a failure of the embedding service.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports a failure of the vector index (storage or search).
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports a failure of the question generator, including
// malformed or incomplete output.
type GenerationError struct {
	Topic string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("question generation: %v", e.Err)
	}
	return fmt.Sprintf("question generation for topic %q: %v", e.Topic, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
