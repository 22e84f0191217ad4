package vectorstore

import (
	"context"
	"errors"
	"testing"

	"quizify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEmbedder map[string][]float32

func (m mapEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := m[text]
	if !ok {
		return nil, &models.EmbeddingError{Op: "query", Err: errors.New("unknown text")}
	}
	return v, nil
}

func openTestStore(t *testing.T, emb Embedder) *Store {
	t.Helper()
	s, err := Open(":memory:", emb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSearchOrdersByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, mapEmbedder{"cells": {1, 0, 0}})

	_, err := s.Add(ctx, "bio", []string{"mitochondria", "photosynthesis", "mitosis", "zero"},
		[][]float32{{0.9, 0.1, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}})
	require.NoError(t, err)
	_, err = s.Add(ctx, "history", []string{"rome"}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	matches, err := s.Search(ctx, "bio", "cells", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "mitochondria", matches[0].Text)
	assert.Equal(t, "mitosis", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.InDelta(t, 0.7071, matches[1].Score, 1e-3)

	all, err := s.Search(ctx, "bio", "cells", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3, "zero vectors are never returned")
	assert.InDelta(t, 0, all[2].Score, 1e-6)

	other, err := s.Search(ctx, "history", "cells", 5)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.InDelta(t, 1, other[0].Score, 1e-6)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, mapEmbedder{"q": {1, 0}})
	_, err := s.Add(ctx, "c", []string{"a"}, [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = s.Search(ctx, "c", "unknown", 3)
	var embErr *models.EmbeddingError
	assert.ErrorAs(t, err, &embErr, "embedding failures pass through unchanged")

	var retErr *models.RetrievalError
	_, err = s.Search(ctx, "c", "q", 0)
	assert.ErrorAs(t, err, &retErr)

	_, err = s.SearchVector(ctx, "c", []float32{0, 0}, 1)
	assert.ErrorAs(t, err, &retErr)

	_, err = s.SearchVector(ctx, "c", []float32{1, 0, 0}, 1)
	assert.ErrorAs(t, err, &retErr)

	empty, err := s.Search(ctx, "nothing-here", "q", 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAddValidatesInput(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, mapEmbedder{})
	var retErr *models.RetrievalError

	_, err := s.Add(ctx, "c", []string{"a", "b"}, [][]float32{{1}})
	assert.ErrorAs(t, err, &retErr)

	_, err = s.Add(ctx, "c", []string{"a", "b"}, [][]float32{{1, 2}, {1}})
	assert.ErrorAs(t, err, &retErr)

	_, err = s.Add(ctx, "c", []string{"a"}, [][]float32{{}})
	assert.ErrorAs(t, err, &retErr)

	_, err = s.Add(ctx, "", []string{"a"}, [][]float32{{1}})
	assert.ErrorAs(t, err, &retErr)

	n, err := s.Count(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, n, "failed adds leave nothing behind")
}

func TestCountAndDropCollection(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, mapEmbedder{})

	ids, err := s.Add(ctx, "a", []string{"x", "y"}, [][]float32{{1}, {2}})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	_, err = s.Add(ctx, "b", []string{"z"}, [][]float32{{3}})
	require.NoError(t, err)

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DropCollection(ctx, "a"))
	n, err = s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Count(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenRequiresEmbedder(t *testing.T) {
	_, err := Open(":memory:", nil)
	assert.Error(t, err)
}
