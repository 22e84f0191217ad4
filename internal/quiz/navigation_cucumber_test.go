//go:build cucumber

package quiz

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
)

// TestNavigationScenarios runs the circular navigation feature.
func TestNavigationScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "navigation",
		ScenarioInitializer: InitializeNavigationScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{filepath.Join("testdata", "navigation.feature")},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeNavigationScenario wires steps for navigation scenarios.
func InitializeNavigationScenario(ctx *godog.ScenarioContext) {
	state := &navigationState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = navigationState{}
		return ctx, nil
	})

	ctx.Step(`^a question bank of (\d+) questions$`, state.givenBank)
	ctx.Step(`^the navigator is at question (\d+)$`, state.navigatorAt)
	ctx.Step(`^I advance by (-?\d+)$`, state.advance)
	ctx.Step(`^reading index (-?\d+) returns question (\d+)$`, state.readingReturns)
	ctx.Step(`^building the navigator fails with an empty bank error$`, state.buildFails)
}

type navigationState struct {
	questions []Question
	nav       *Navigator
}

func (s *navigationState) givenBank(n int) error {
	s.questions = make([]Question, n)
	for i := range s.questions {
		q, err := NewQuestion(fmt.Sprintf("Question %d?", i), []Choice{{Key: "a", Value: "yes"}, {Key: "b", Value: "no"}}, "a", "")
		if err != nil {
			return err
		}
		s.questions[i] = q
	}
	return nil
}

// navigatorAt either positions an existing navigator or asserts its index,
// depending on whether steps have built one yet.
func (s *navigationState) navigatorAt(index int) error {
	if s.nav == nil {
		nav, err := NewNavigatorAt(Bank(s.questions), index)
		if err != nil {
			return err
		}
		s.nav = nav
		return nil
	}
	if s.nav.Index() != index {
		return fmt.Errorf("navigator at %d, want %d", s.nav.Index(), index)
	}
	return nil
}

func (s *navigationState) advance(direction int) error {
	if s.nav == nil {
		return errors.New("navigator not built")
	}
	s.nav.Advance(direction)
	return nil
}

func (s *navigationState) readingReturns(index, want int) error {
	if s.nav == nil {
		nav, err := NewNavigator(Bank(s.questions))
		if err != nil {
			return err
		}
		s.nav = nav
	}
	got := s.nav.Get(index).Question
	if got != fmt.Sprintf("Question %d?", want) {
		return fmt.Errorf("Get(%d) = %q, want question %d", index, got, want)
	}
	return nil
}

func (s *navigationState) buildFails() error {
	_, err := NewNavigator(Bank(s.questions))
	if !errors.Is(err, ErrEmptyBank) {
		return fmt.Errorf("expected ErrEmptyBank, got %v", err)
	}
	return nil
}
