package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyBank is returned when a question bank or navigator is built
	// without any questions.
	ErrEmptyBank = errors.New("quiz: question bank is empty")
	// ErrInvalidQuestion is wrapped by every question validation failure.
	ErrInvalidQuestion = errors.New("quiz: invalid question")
	// ErrUnknownChoice is returned when an answer does not name any choice of
	// the question.
	ErrUnknownChoice = errors.New("quiz: answer does not match any choice")
)

// Choice is a labelled answer option, e.g. {Key: "a", Value: "Mitochondria"}.
type Choice struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Question is a single multiple-choice question. Use NewQuestion to build
// one; the zero value is not valid.
type Question struct {
	Question    string   `json:"question"`
	Choices     []Choice `json:"choices"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// NewQuestion trims and validates its input and returns a Question whose
// Answer matches exactly one choice key. The answer may be given as a bare
// key or as a "key) value" label.
func NewQuestion(text string, choices []Choice, answer, explanation string) (Question, error) {
	q := Question{
		Question:    strings.TrimSpace(text),
		Choices:     make([]Choice, 0, len(choices)),
		Answer:      normalizeAnswer(answer),
		Explanation: strings.TrimSpace(explanation),
	}
	for _, c := range choices {
		q.Choices = append(q.Choices, Choice{Key: normalizeKey(c.Key), Value: strings.TrimSpace(c.Value)})
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks the invariants of a question: non-empty text, at least
// one choice, unique non-empty keys in the form answers are looked up by,
// and an answer naming exactly one key.
func (q Question) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Choices) == 0 {
		return fmt.Errorf("%w: %q has no choices", ErrInvalidQuestion, q.Question)
	}
	seen := make(map[string]struct{}, len(q.Choices))
	matches := 0
	for i, c := range q.Choices {
		if c.Key == "" {
			return fmt.Errorf("%w: choice %d of %q has an empty key", ErrInvalidQuestion, i, q.Question)
		}
		if c.Key != normalizeAnswer(c.Key) {
			return fmt.Errorf("%w: choice key %q of %q is not a lowercase bare key", ErrInvalidQuestion, c.Key, q.Question)
		}
		if c.Value == "" {
			return fmt.Errorf("%w: choice %q of %q has an empty value", ErrInvalidQuestion, c.Key, q.Question)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("%w: duplicate choice key %q in %q", ErrInvalidQuestion, c.Key, q.Question)
		}
		seen[c.Key] = struct{}{}
		if c.Key == q.Answer {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("%w: answer %q of %q matches no choice", ErrInvalidQuestion, q.Answer, q.Question)
	}
	return nil
}

// IsCorrect reports whether key names the correct choice. Keys are compared
// case-insensitively, and a rendered label such as "b) Paris" also matches
// key "b".
func (q Question) IsCorrect(key string) bool {
	return normalizeAnswer(key) == q.Answer
}

// Choice returns the choice with the given key.
func (q Question) Choice(key string) (Choice, bool) {
	k := normalizeAnswer(key)
	for _, c := range q.Choices {
		if c.Key == k {
			return c, true
		}
	}
	return Choice{}, false
}

// Bank is the ordered, immutable set of questions of one quiz session.
type Bank []Question

// NewBank validates every question and returns a copy of them as a Bank.
// It fails with ErrEmptyBank when no questions are given.
func NewBank(questions []Question) (Bank, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}
	bank := make(Bank, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		bank[i] = q
	}
	return bank, nil
}

// Validate re-checks a bank that did not come from NewBank, e.g. one decoded
// from a session store.
func (b Bank) Validate() error {
	_, err := NewBank(b)
	return err
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// normalizeAnswer accepts either a bare key or a "key) value" label.
func normalizeAnswer(answer string) string {
	a := strings.TrimSpace(answer)
	if i := strings.Index(a, ")"); i > 0 {
		a = a[:i]
	}
	return normalizeKey(a)
}
