package models

// GeminiQuizResponse represents the structured JSON response from Gemini
type GeminiQuizResponse struct {
	Questions []GeminiQuestion `json:"questions"`
}

// GeminiQuestion represents a question in the Gemini response
type GeminiQuestion struct {
	Question    string         `json:"question"`
	Choices     []GeminiChoice `json:"choices"`
	Answer      string         `json:"answer"`
	Explanation string         `json:"explanation"`
}

// GeminiChoice represents a keyed answer option in the Gemini response
type GeminiChoice struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChoiceView is a single option as rendered to the client
type ChoiceView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QuestionView is the current question sent to the frontend. The correct
// answer is never included; it is revealed by AnswerResult.
type QuestionView struct {
	Index    int          `json:"index"`
	Number   int          `json:"number"` // 1-based, for display
	Total    int          `json:"total"`
	Topic    string       `json:"topic"`
	Question string       `json:"question"`
	Choices  []ChoiceView `json:"choices"`
	Selected *string      `json:"selected,omitempty"` // previously submitted answer, if any
}

// AnswerRequest is the body of an answer submission
type AnswerRequest struct {
	Answer string `json:"answer" form:"answer" binding:"required"`
}

// AnswerResult is returned after an answer submission
type AnswerResult struct {
	Correct     bool   `json:"correct"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// ScoreResponse summarises the progress of a quiz session
type ScoreResponse struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Total    int `json:"total"`
}

// GenerateResponse represents the response for the quiz generation endpoint
type GenerateResponse struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
	Questions int    `json:"questions"`
	Chunks    int    `json:"chunks"`
	Message   string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
