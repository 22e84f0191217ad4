// Package notify posts quiz events to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// Embed colours
const (
	ColorSuccess = 0x00FF00
	ColorError   = 0xFF0000
)

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is a Discord message embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"` // ISO8601
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// WebhookPayload is the body Discord expects for webhook requests with embeds
type WebhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// Notifier sends embeds to a webhook in the background. A Notifier with an
// empty URL, or a nil *Notifier, drops everything.
type Notifier struct {
	url      string
	username string
	client   *http.Client
	wg       sync.WaitGroup
}

// New returns a Notifier posting to webhookURL.
func New(webhookURL string) *Notifier {
	return &Notifier{
		url:      webhookURL,
		username: "Quizify Notifier",
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts embed asynchronously; failures are only logged.
func (n *Notifier) Send(embed Embed) {
	if n == nil || n.url == "" {
		return
	}
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().Format(time.RFC3339)
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
		defer cancel()
		if err := n.post(ctx, embed); err != nil {
			log.Printf("ERROR: Discord notification %q failed: %v", embed.Title, err)
			return
		}
		log.Printf("INFO: Sent Discord notification: %s", embed.Title)
	}()
}

// Wait blocks until every pending notification has been sent.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

func (n *Notifier) post(ctx context.Context, embed Embed) error {
	body, err := json.Marshal(WebhookPayload{Username: n.username, Embeds: []Embed{embed}})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// QuizCreated describes a newly built quiz.
func QuizCreated(sessionID, topic string, questions, chunks int) Embed {
	return Embed{
		Title: "📝 New Quiz Generated",
		Color: ColorSuccess,
		Fields: []EmbedField{
			{Name: "Topic", Value: topic},
			{Name: "Questions", Value: fmt.Sprintf("%d", questions), Inline: true},
			{Name: "Chunks", Value: fmt.Sprintf("%d", chunks), Inline: true},
			{Name: "Session", Value: fmt.Sprintf("`%s`", sessionID)},
		},
		Footer: &EmbedFooter{Text: "Generated via Quizify"},
	}
}

// Failure describes a failed request.
func Failure(action string, status int, path string, err error) Embed {
	return Embed{
		Title:       fmt.Sprintf("🚨 API Error: %s", action),
		Description: fmt.Sprintf("**Error Details:**\n```%s```", err.Error()),
		Color:       ColorError,
		Fields: []EmbedField{
			{Name: "HTTP Status", Value: fmt.Sprintf("%d", status), Inline: true},
			{Name: "Path", Value: path},
		},
	}
}
