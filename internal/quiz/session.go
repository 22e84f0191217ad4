package quiz

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the state of one user's quiz: the generated bank, the current
// position and the answers given so far. It is passed explicitly to the
// navigator and the presentation layer; callers keep a single writer per
// session.
type Session struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Collection string         `json:"collection"`
	Bank       Bank           `json:"bank"`
	Index      int            `json:"index"`
	Answers    map[int]string `json:"answers"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Result is the outcome of answering a question.
type Result struct {
	Correct     bool
	Answer      string
	Explanation string
}

// Score summarises the answers recorded in a session.
type Score struct {
	Answered int
	Correct  int
	Total    int
}

// NewSession starts a quiz on bank at the first question.
func NewSession(topic, collection string, bank Bank) (*Session, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		ID:         uuid.NewString(),
		Topic:      strings.TrimSpace(topic),
		Collection: collection,
		Bank:       bank,
		Answers:    make(map[int]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Validate checks a session decoded from a store before it is used.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("quiz: session has no id")
	}
	if err := s.Bank.Validate(); err != nil {
		return fmt.Errorf("session %s: %w", s.ID, err)
	}
	if s.Index < 0 || s.Index >= len(s.Bank) {
		return fmt.Errorf("session %s: index %d out of range [0,%d)", s.ID, s.Index, len(s.Bank))
	}
	return nil
}

// Navigator returns a navigator positioned on the session's current index.
func (s *Session) Navigator() (*Navigator, error) {
	return NewNavigatorAt(s.Bank, s.Index)
}

// Current returns the question at the current index.
func (s *Session) Current() (Question, error) {
	nav, err := s.Navigator()
	if err != nil {
		return Question{}, err
	}
	return nav.Current(), nil
}

// Advance moves the session by direction, wrapping around the bank.
func (s *Session) Advance(direction int) error {
	nav, err := s.Navigator()
	if err != nil {
		return err
	}
	nav.Advance(direction)
	s.Index = nav.Index()
	s.touch()
	return nil
}

// Answer records key as the answer to the current question and reports
// whether it was correct. Answering again replaces the previous answer.
func (s *Session) Answer(key string) (Result, error) {
	q, err := s.Current()
	if err != nil {
		return Result{}, err
	}
	choice, ok := q.Choice(key)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownChoice, key)
	}
	if s.Answers == nil {
		s.Answers = make(map[int]string)
	}
	s.Answers[s.Index] = choice.Key
	s.touch()
	return Result{
		Correct:     q.IsCorrect(choice.Key),
		Answer:      q.Answer,
		Explanation: q.Explanation,
	}, nil
}

// Selected returns the recorded answer for the current question, if any.
func (s *Session) Selected() (string, bool) {
	key, ok := s.Answers[s.Index]
	return key, ok
}

// Score counts the recorded answers and how many of them are correct.
func (s *Session) Score() Score {
	score := Score{Total: len(s.Bank)}
	for i, key := range s.Answers {
		if i < 0 || i >= len(s.Bank) {
			continue
		}
		score.Answered++
		if s.Bank[i].IsCorrect(key) {
			score.Correct++
		}
	}
	return score
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
