package handlers

import (
	"log"
	"net/http"

	"quizify/internal/models"

	"github.com/gin-gonic/gin"
)

// --- Quiz Navigation Handlers ---
// All of these run behind QuizRequired.

// HandleGetQuestion returns the current question of the active quiz.
func (h *Handler) HandleGetQuestion(c *gin.Context) {
	s := currentQuiz(c)
	view, err := questionView(s)
	if err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Load question", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleAnswer records the selected choice for the current question and
// reveals the correct answer.
func (h *Handler) HandleAnswer(c *gin.Context) {
	s := currentQuiz(c)

	var req models.AnswerRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Printf("WARN: Invalid answer payload for quiz %s: %v", s.ID, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	res, err := s.Answer(req.Answer)
	if err != nil {
		h.handleErrorAndNotify(c, statusFor(err), "Record answer", err)
		return
	}
	if !h.saveQuiz(c, s) {
		return
	}
	log.Printf("INFO: Quiz %s question %d answered %s (correct=%t)", s.ID, s.Index+1, req.Answer, res.Correct)

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, models.AnswerResult{
		Correct:     res.Correct,
		Answer:      res.Answer,
		Explanation: res.Explanation,
	})
}

// HandleNext moves to the next question, wrapping to the first.
func (h *Handler) HandleNext(c *gin.Context) { h.advance(c, 1) }

// HandlePrevious moves to the previous question, wrapping to the last.
func (h *Handler) HandlePrevious(c *gin.Context) { h.advance(c, -1) }

func (h *Handler) advance(c *gin.Context, direction int) {
	s := currentQuiz(c)
	if err := s.Advance(direction); err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Move to question", err)
		return
	}
	if !h.saveQuiz(c, s) {
		return
	}

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	view, err := questionView(s)
	if err != nil {
		h.handleErrorAndNotify(c, http.StatusInternalServerError, "Load question", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleScore reports how many questions have been answered and how many of
// them correctly.
func (h *Handler) HandleScore(c *gin.Context) {
	score := currentQuiz(c).Score()
	c.JSON(http.StatusOK, models.ScoreResponse{
		Answered: score.Answered,
		Correct:  score.Correct,
		Total:    score.Total,
	})
}
