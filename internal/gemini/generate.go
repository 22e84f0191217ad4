package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"quizify/internal/models"
	"quizify/internal/quiz"

	"github.com/google/generative-ai-go/genai"
)

// quizPrompt is filled with the topic, the question count and the
// retrieved passages.
const quizPrompt = `You are writing a multiple-choice quiz for a student studying the topic %q.

Write exactly %d questions. Follow these requirements exactly:

1. Base every question only on the context passages below. Do not use outside knowledge.
2. Every question must be different from the others; do not ask the same thing twice in other words.
3. Each question must have exactly 4 choices with the keys "a", "b", "c" and "d", and exactly one correct answer.
4. "answer" is the key of the correct choice.
5. "explanation" states why the correct answer is right, citing the context. Don't state "This is correct". Just give the explanation.
6. Make the incorrect choices plausible and of similar length and style to the correct one.

Format your response as a JSON object with the following structure:
{
  "questions": [
    {
      "question": "Question text here?",
      "choices": [
        {"key": "a", "value": "Choice A"},
        {"key": "b", "value": "Choice B"},
        {"key": "c", "value": "Choice C"},
        {"key": "d", "value": "Choice D"}
      ],
      "answer": "b",
      "explanation": "Why B is correct."
    }
  ]
}

Context:
%s`

var choiceKeys = []string{"a", "b", "c", "d"}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString},
					"choices": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"key":   {Type: genai.TypeString, Format: "enum", Enum: choiceKeys},
								"value": {Type: genai.TypeString},
							},
							Required: []string{"key", "value"},
						},
					},
					"answer":      {Type: genai.TypeString, Format: "enum", Enum: choiceKeys},
					"explanation": {Type: genai.TypeString},
				},
				Required: []string{"question", "choices", "answer", "explanation"},
			},
		},
	},
	Required: []string{"questions"},
}

// Generate asks Gemini for count questions about topic, grounded in the
// given context passages. It tries up to three times and fails with a
// *models.GenerationError unless count valid, distinct questions come back.
func (c *Client) Generate(ctx context.Context, topic string, count int, passages []string) (quiz.Bank, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &models.GenerationError{Err: fmt.Errorf("empty topic")}
	}
	if count < 1 {
		return nil, &models.GenerationError{Topic: topic, Err: fmt.Errorf("question count %d must be positive", count)}
	}

	prompt := buildPrompt(topic, count, passages)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx); err != nil {
				lastErr = err
				break
			}
		}

		text, err := c.backend.complete(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("failed to generate content (attempt %d): %w", attempt, err)
			log.Printf("WARN: %v", lastErr)
			continue
		}

		bank, err := parseQuiz(text, count)
		if err != nil {
			log.Printf("DEBUG: Raw response (attempt %d) before parse error: %s", attempt, text)
			lastErr = fmt.Errorf("invalid response (attempt %d): %w", attempt, err)
			log.Printf("WARN: %v", lastErr)
			continue
		}

		log.Printf("INFO: Generated %d questions for topic %q", len(bank), topic)
		return bank, nil
	}

	return nil, &models.GenerationError{Topic: topic, Err: lastErr}
}

func buildPrompt(topic string, count int, passages []string) string {
	var sb strings.Builder
	n := 0
	for _, p := range passages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "[%d] %s\n\n", n, p)
	}
	if n == 0 {
		sb.WriteString("(no context passages were found; write general questions about the topic)\n")
	}
	return fmt.Sprintf(quizPrompt, topic, count, sb.String())
}

// parseQuiz decodes a model response into a bank of exactly count
// questions. Invalid and repeated questions are dropped; surplus questions
// are cut off; too few is an error.
func parseQuiz(text string, count int) (quiz.Bank, error) {
	jsonText := extractJSONFromText(text)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON content found in response")
	}

	var resp models.GeminiQuizResponse
	decoder := json.NewDecoder(strings.NewReader(jsonText))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.Questions))
	questions := make([]quiz.Question, 0, count)
	for i, gq := range resp.Questions {
		if len(questions) == count {
			log.Printf("DEBUG: Dropping %d surplus questions", len(resp.Questions)-i)
			break
		}
		choices := make([]quiz.Choice, len(gq.Choices))
		for j, ch := range gq.Choices {
			choices[j] = quiz.Choice{Key: ch.Key, Value: ch.Value}
		}
		q, err := quiz.NewQuestion(gq.Question, choices, gq.Answer, gq.Explanation)
		if err != nil {
			log.Printf("WARN: Skipping malformed question %d: %v", i, err)
			continue
		}
		norm := strings.ToLower(strings.Join(strings.Fields(q.Question), " "))
		if _, dup := seen[norm]; dup {
			log.Printf("WARN: Skipping repeated question %d: %q", i, q.Question)
			continue
		}
		seen[norm] = struct{}{}
		questions = append(questions, q)
	}

	if len(questions) < count {
		return nil, fmt.Errorf("got %d valid questions, want %d", len(questions), count)
	}
	return quiz.NewBank(questions)
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSONFromText pulls the JSON object out of a response that may be
// wrapped in markdown fences or surrounded by prose. A response cut off
// mid-object gets its missing closing brackets appended.
func extractJSONFromText(text string) string {
	if m := codeFence.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	text = text[start:]

	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return text[:i+1]
			}
		}
	}

	// Truncated: close whatever is still open.
	if inString {
		return ""
	}
	repaired := strings.TrimRight(text, " \t\r\n,")
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			repaired += "}"
		} else {
			repaired += "]"
		}
	}
	if json.Valid([]byte(repaired)) {
		return repaired
	}
	return ""
}
