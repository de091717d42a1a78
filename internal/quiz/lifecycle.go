package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// StartAttempt opens a new in-progress attempt. Several open attempts per
// (test, user) are allowed.
func (s *Service) StartAttempt(ctx context.Context, testID, userID string) (Attempt, error) {
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return Attempt{}, err
	}
	a := Attempt{ID: s.newID(), TestID: testID, UserID: userID, StartedAt: s.clock()}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	log.Printf("[quiz] attempt %s started on test %s by %s", a.ID, testID, userID)
	s.emit(ctx, EventAttemptStarted, a.ID, map[string]string{"test_id": testID, "user_id": userID})
	return a, nil
}

// openAttempt loads the attempt and applies the ownership and terminal
// state checks shared by every mutation.
func (s *Service) openAttempt(ctx context.Context, attemptID, callerID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != callerID {
		return Attempt{}, ErrAccessDenied
	}
	if a.Finished() {
		return Attempt{}, ErrAlreadyFinished
	}
	return a, nil
}

// SubmitAnswer grades raw against the question and stores it, overwriting
// any earlier answer to the same question in this attempt.
func (s *Service) SubmitAnswer(ctx context.Context, attemptID, questionID string, raw any, callerID string) (Answer, error) {
	a, err := s.openAttempt(ctx, attemptID, callerID)
	if err != nil {
		return Answer{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Answer{}, err
	}
	if q.TestID != a.TestID {
		return Answer{}, ErrNotFound
	}

	norm, err := grading.Normalize(q.Type, raw)
	if err != nil {
		return Answer{}, err
	}
	stored, err := json.Marshal(norm)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrInvalidAnswerFormat, err)
	}
	outcome := s.grader.GradeAnswer(q.Grading(), norm)

	saved, err := s.store.UpsertAnswer(ctx, Answer{
		ID:         s.newID(),
		AttemptID:  attemptID,
		QuestionID: questionID,
		UserAnswer: string(stored),
		IsCorrect:  outcome.Bool(),
		AnsweredAt: s.clock(),
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyFinished) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicateAnswer) {
			err = fmt.Errorf("submit answer: %w", err)
		}
		return Answer{}, err
	}
	s.emit(ctx, EventAnswerSubmitted, attemptID, map[string]string{
		"question_id": questionID,
		"outcome":     outcome.String(),
	})
	return saved, nil
}

// FinishAttempt scores the attempt over the test's current question count
// and closes it. A second call fails with ErrAlreadyFinished.
func (s *Service) FinishAttempt(ctx context.Context, attemptID, callerID string) (Attempt, error) {
	if _, err := s.openAttempt(ctx, attemptID, callerID); err != nil {
		return Attempt{}, err
	}
	done, err := s.store.FinishAttempt(ctx, attemptID, s.clock(), scoreAnswers)
	if err != nil {
		return Attempt{}, err
	}
	log.Printf("[quiz] attempt %s finished score=%.2f", attemptID, *done.Score)
	s.emit(ctx, EventAttemptFinished, attemptID, map[string]any{"score": *done.Score})
	return done, nil
}

func scoreAnswers(total int, answers []Answer) float64 {
	outcomes := make([]grading.Outcome, len(answers))
	for i, a := range answers {
		outcomes[i] = a.Outcome()
	}
	return grading.ComputeScore(total, outcomes)
}

// GetResults returns the attempt with all of its answers, finished or not.
func (s *Service) GetResults(ctx context.Context, attemptID, callerID string) (Results, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Results{}, err
	}
	if a.UserID != callerID {
		return Results{}, ErrAccessDenied
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return Results{}, err
	}
	return Results{Attempt: a, Answers: answers}, nil
}
