package api

import (
	"quizify/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the page and API routes
func SetupRoutes(router *gin.Engine, handler *handlers.Handler, frontendURL string) {
	router.Use(CORSMiddleware(frontendURL))
	router.SetHTMLTemplate(Templates())

	// --- Pages ---
	router.GET("/", handler.HandleIndex)                // Builder form or current question
	router.POST("/quiz", handler.HandleCreateQuiz)      // Build a quiz from uploads
	router.POST("/quiz/end", handler.HandleEndQuiz)     // End the active quiz
	router.GET("/healthz", handler.HandleHealth)

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.POST("/quiz", handler.HandleCreateQuiz)
		api.DELETE("/quiz", handler.HandleEndQuiz)

		// Routes that need an active quiz
		active := api.Group("/quiz")
		active.Use(handler.QuizRequired())
		{
			active.GET("", handler.HandleGetQuestion)        // Current question
			active.POST("/answer", handler.HandleAnswer)     // Answer the current question
			active.POST("/next", handler.HandleNext)         // Move forward, wrapping at the end
			active.POST("/previous", handler.HandlePrevious) // Move back, wrapping at the start
			active.GET("/score", handler.HandleScore)
		}
	}
}
