package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"quizify/internal/builder"
	"quizify/internal/document"
	"quizify/internal/models"
	"quizify/internal/notify"
	"quizify/internal/quiz"
	"quizify/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Keys used in the cookie session and the gin context
const (
	QuizIDSessionKey = "quiz_id"
	quizContextKey   = "quizSession"
)

// QuizBuilder builds quizzes from documents and cleans up after them.
type QuizBuilder interface {
	BuildQuiz(ctx context.Context, req builder.Request) (*builder.Result, error)
	Discard(ctx context.Context, s *quiz.Session) error
	MaxQuestions() int
}

// TranscriptFetcher turns a video URL into document text.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, url string) (document.Page, error)
}

// Archiver keeps a copy of uploaded documents.
type Archiver interface {
	UploadDocument(ctx context.Context, sessionID, filename string, body io.Reader) (string, error)
}

// Handler contains the API handlers dependencies
type Handler struct {
	Builder        QuizBuilder
	Sessions       session.Store
	Transcripts    TranscriptFetcher // nil disables video URLs
	Archive        Archiver          // nil disables archiving
	Notifier       *notify.Notifier
	MaxUploadBytes int64

	locks sync.Map // quiz id -> *sync.Mutex
}

// NewHandler creates a new Handler
func NewHandler(b QuizBuilder, store session.Store, transcripts TranscriptFetcher, archive Archiver, notifier *notify.Notifier, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		Builder:        b,
		Sessions:       store,
		Transcripts:    transcripts,
		Archive:        archive,
		Notifier:       notifier,
		MaxUploadBytes: maxUploadBytes,
	}
}

// statusFor maps pipeline and store errors to HTTP status codes.
func statusFor(err error) int {
	var (
		embErr *models.EmbeddingError
		retErr *models.RetrievalError
		genErr *models.GenerationError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, builder.ErrInvalidRequest),
		errors.Is(err, builder.ErrNoDocuments),
		errors.Is(err, document.ErrUnsupported),
		errors.Is(err, document.ErrNoText),
		errors.Is(err, quiz.ErrUnknownChoice):
		return http.StatusBadRequest
	case errors.As(err, &embErr), errors.As(err, &retErr), errors.As(err, &genErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleErrorAndNotify logs an error, notifies on server side failures and
// aborts the request.
func (h *Handler) handleErrorAndNotify(c *gin.Context, statusCode int, action string, err error) {
	if statusCode >= http.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", action, err)
		h.Notifier.Send(notify.Failure(action, statusCode, c.Request.URL.Path, err))
	} else {
		log.Printf("WARN: %s: %v", action, err)
	}
	c.AbortWithStatusJSON(statusCode, gin.H{"error": fmt.Sprintf("%s: %v", action, err)})
}

// wantsHTML reports whether the client is a browser form rather than an API
// caller.
func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

func (h *Handler) lock(id string) func() {
	v, _ := h.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// QuizRequired loads the quiz of the cookie session into the context and
// holds the quiz's lock for the rest of the request, so each quiz has a
// single writer.
func (h *Handler) QuizRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := sessions.Default(c).Get(QuizIDSessionKey).(string)
		if id == "" {
			noActiveQuiz(c)
			return
		}

		unlock := h.lock(id)
		defer unlock()

		s, err := h.Sessions.Get(c.Request.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			// Expired by TTL; nothing will end it explicitly.
			h.locks.Delete(id)
			log.Printf("INFO: Quiz %s no longer stored", id)
			noActiveQuiz(c)
			return
		}
		if err != nil {
			h.handleErrorAndNotify(c, http.StatusInternalServerError, "Load quiz session", err)
			return
		}

		c.Set(quizContextKey, s)
		c.Next()
	}
}

// noActiveQuiz sends browsers back to the builder and API callers a 404.
func noActiveQuiz(c *gin.Context) {
	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No active quiz"})
}

func currentQuiz(c *gin.Context) *quiz.Session {
	v, _ := c.Get(quizContextKey)
	s, _ := v.(*quiz.Session)
	return s
}

func (h *Handler) saveQuiz(c *gin.Context, s *quiz.Session) bool {
	if err := h.Sessions.Save(c.Request.Context(), s); err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Save quiz session", err)
		return false
	}
	return true
}

func questionView(s *quiz.Session) (models.QuestionView, error) {
	q, err := s.Current()
	if err != nil {
		return models.QuestionView{}, err
	}
	view := models.QuestionView{
		Index:    s.Index,
		Number:   s.Index + 1,
		Total:    len(s.Bank),
		Topic:    s.Topic,
		Question: q.Question,
		Choices:  make([]models.ChoiceView, len(q.Choices)),
	}
	for i, ch := range q.Choices {
		view.Choices[i] = models.ChoiceView{Key: ch.Key, Value: ch.Value}
	}
	if key, ok := s.Selected(); ok {
		view.Selected = &key
	}
	return view, nil
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
