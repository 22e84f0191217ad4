package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quizify/internal/builder"
	"quizify/internal/document"
	"quizify/internal/models"
	"quizify/internal/notify"
	"quizify/internal/quiz"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// upload is an uploaded file kept in memory until it has been archived.
type upload struct {
	name string
	data []byte
}

// HandleIndex renders the quiz builder form, or the current question when
// the browser has an active quiz.
func (h *Handler) HandleIndex(c *gin.Context) {
	if id, _ := sessions.Default(c).Get(QuizIDSessionKey).(string); id != "" {
		s, err := h.Sessions.Get(c.Request.Context(), id)
		if err == nil {
			h.renderQuestion(c, s)
			return
		}
		log.Printf("INFO: Quiz %s from cookie not available (%v), showing builder", id, err)
	}
	h.renderBuilder(c, http.StatusOK, "")
}

func (h *Handler) renderBuilder(c *gin.Context, status int, errMsg string) {
	c.HTML(status, "builder.html", gin.H{
		"MaxQuestions": h.Builder.MaxQuestions(),
		"VideoEnabled": h.Transcripts != nil,
		"Error":        errMsg,
	})
}

func (h *Handler) renderQuestion(c *gin.Context, s *quiz.Session) {
	view, err := questionView(s)
	if err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Render question", err)
		return
	}
	data := gin.H{"Quiz": view, "Score": s.Score()}
	if view.Selected != nil {
		q, _ := s.Current()
		correct, _ := q.Choice(q.Answer)
		data["Result"] = gin.H{
			"Correct":     q.IsCorrect(*view.Selected),
			"Answer":      fmt.Sprintf("%s) %s", correct.Key, correct.Value),
			"Explanation": q.Explanation,
		}
	}
	c.HTML(http.StatusOK, "question.html", data)
}

// fail reports an error on the quiz builder: browsers get the form back with
// the message, API callers get JSON.
func (h *Handler) fail(c *gin.Context, status int, action string, err error) {
	if wantsHTML(c) {
		log.Printf("WARN: %s: %v", action, err)
		if status >= http.StatusInternalServerError {
			h.Notifier.Send(notify.Failure(action, status, c.Request.URL.Path, err))
		}
		h.renderBuilder(c, status, fmt.Sprintf("%s: %v", action, err))
		c.Abort()
		return
	}
	h.handleErrorAndNotify(c, status, action, err)
}

// HandleCreateQuiz builds a quiz from uploaded files and video URLs and makes
// it the browser's active quiz.
func (h *Handler) HandleCreateQuiz(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.fail(c, http.StatusBadRequest, "Failed to parse form", err)
		return
	}

	topic := strings.TrimSpace(c.PostForm("topic"))
	if topic == "" {
		h.fail(c, http.StatusBadRequest, "Validate request", errors.New("topic is required"))
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(c.PostForm("count")))
	if err != nil || count < 1 || count > h.Builder.MaxQuestions() {
		h.fail(c, http.StatusBadRequest, "Validate request",
			fmt.Errorf("number of questions must be between 1 and %d", h.Builder.MaxQuestions()))
		return
	}

	pages, uploads, ok := h.readUploads(c)
	if !ok {
		return
	}
	videoPages, ok := h.fetchTranscripts(c)
	if !ok {
		return
	}
	pages = append(pages, videoPages...)
	log.Printf("INFO: Building quiz on %q with %d questions from %d pages", topic, count, len(pages))

	res, err := h.Builder.BuildQuiz(ctx, builder.Request{Topic: topic, Count: count, Pages: pages})
	if err != nil {
		h.fail(c, statusFor(err), "Build quiz", err)
		return
	}
	s := res.Session

	cookie := sessions.Default(c)
	if oldID, _ := cookie.Get(QuizIDSessionKey).(string); oldID != "" {
		h.endQuiz(ctx, oldID)
	}
	if err := h.Sessions.Save(ctx, s); err != nil {
		_ = h.Builder.Discard(context.Background(), s)
		h.fail(c, http.StatusInternalServerError, "Save quiz session", err)
		return
	}
	cookie.Set(QuizIDSessionKey, s.ID)
	if err := cookie.Save(); err != nil {
		h.fail(c, http.StatusInternalServerError, "Save cookie session", err)
		return
	}

	if h.Archive != nil && len(uploads) > 0 {
		go h.archive(s.ID, uploads)
	}
	h.Notifier.Send(notify.QuizCreated(s.ID, s.Topic, len(s.Bank), res.Chunks))
	log.Printf("INFO: Quiz %s ready in %s", s.ID, time.Since(startTime).Round(time.Millisecond))

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusCreated, models.GenerateResponse{
		SessionID: s.ID,
		Topic:     s.Topic,
		Questions: len(s.Bank),
		Chunks:    res.Chunks,
		Message:   "Quiz generated successfully",
	})
}

func formFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	return append(append([]*multipart.FileHeader(nil), form.File["files"]...), form.File["files[]"]...)
}

func (h *Handler) readUploads(c *gin.Context) ([]document.Page, []upload, bool) {
	var (
		pages   []document.Page
		uploads []upload
	)
	files := formFiles(c.Request.MultipartForm)
	log.Printf("INFO: Received %d files for processing", len(files))
	for _, fh := range files {
		if fh.Size == 0 {
			log.Printf("WARN: Skipping empty file: %s", fh.Filename)
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to open uploaded file %s", fh.Filename), err)
			return nil, nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to read uploaded file %s", fh.Filename), err)
			return nil, nil, false
		}
		filePages, err := document.Load(fh.Filename, data)
		if err != nil {
			h.fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", fh.Filename), err)
			return nil, nil, false
		}
		pages = append(pages, filePages...)
		uploads = append(uploads, upload{name: fh.Filename, data: data})
	}
	return pages, uploads, true
}

func (h *Handler) fetchTranscripts(c *gin.Context) ([]document.Page, bool) {
	var urls []string
	for _, u := range append(c.PostFormArray("videoUrls"), c.PostFormArray("videoUrls[]")...) {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, true
	}
	if h.Transcripts == nil {
		h.fail(c, http.StatusBadRequest, "Fetch transcripts", errors.New("video URLs are not supported by this server"))
		return nil, false
	}

	pages := make([]document.Page, 0, len(urls))
	for _, u := range urls {
		page, err := h.Transcripts.Fetch(c.Request.Context(), u)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadGateway
			}
			h.fail(c, status, fmt.Sprintf("Failed to fetch transcript for %s", u), err)
			return nil, false
		}
		log.Printf("INFO: Fetched transcript %q (%d bytes)", page.Source, len(page.Content))
		pages = append(pages, page)
	}
	return pages, true
}

func (h *Handler) archive(sessionID string, uploads []upload) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for _, u := range uploads {
		if _, err := h.Archive.UploadDocument(ctx, sessionID, u.name, bytes.NewReader(u.data)); err != nil {
			log.Printf("WARN: Failed to archive %s for quiz %s: %v", u.name, sessionID, err)
		}
	}
}

// endQuiz drops the indexed chunks and the stored state of a quiz.
func (h *Handler) endQuiz(ctx context.Context, id string) {
	unlock := h.lock(id)
	defer func() {
		unlock()
		h.locks.Delete(id)
	}()

	s, err := h.Sessions.Get(ctx, id)
	if err == nil {
		if err := h.Builder.Discard(ctx, s); err != nil {
			log.Printf("WARN: Failed to discard chunks of quiz %s: %v", id, err)
		}
	}
	if err := h.Sessions.Delete(ctx, id); err != nil {
		log.Printf("WARN: Failed to delete quiz session %s: %v", id, err)
	}
}

// HandleEndQuiz ends the browser's active quiz.
func (h *Handler) HandleEndQuiz(c *gin.Context) {
	cookie := sessions.Default(c)
	id, _ := cookie.Get(QuizIDSessionKey).(string)
	if id == "" {
		noActiveQuiz(c)
		return
	}

	h.endQuiz(c.Request.Context(), id)
	cookie.Delete(QuizIDSessionKey)
	if err := cookie.Save(); err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Save cookie session", err)
		return
	}
	log.Printf("INFO: Quiz %s ended", id)

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz ended"})
}
