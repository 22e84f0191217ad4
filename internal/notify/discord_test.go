package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsEmbed(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []WebhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p WebhookPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL)
	n.Send(QuizCreated("abc", "cells", 5, 12))
	n.Send(Failure("Build quiz", 502, "/quiz", errors.New("quota")))
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 2)
	titles := []string{payloads[0].Embeds[0].Title, payloads[1].Embeds[0].Title}
	assert.ElementsMatch(t, []string{"📝 New Quiz Generated", "🚨 API Error: Build quiz"}, titles)
	for _, p := range payloads {
		assert.Equal(t, "Quizify Notifier", p.Username)
		assert.NotEmpty(t, p.Embeds[0].Timestamp)
	}
}

func TestSendDisabled(t *testing.T) {
	var n *Notifier
	n.Send(Embed{Title: "ignored"})
	n.Wait()

	New("").Send(Embed{Title: "ignored"})
}

func TestPostReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New(srv.URL).post(t.Context(), Embed{Title: "x"})
	assert.ErrorContains(t, err, "status 429")
}
