package quiz

import (
	"context"
	"fmt"
	"time"
)

// Page is skip/limit pagination. A zero Limit means no limit.
type Page struct {
	Skip  int
	Limit int
}

const MaxPageLimit = 100

// Validate enforces the bounds accepted from clients.
func (p Page) Validate() error {
	if p.Skip < 0 {
		return fmt.Errorf("%w: skip must be >= 0", ErrInvalid)
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalid, MaxPageLimit)
	}
	return nil
}

type AttemptListOpts struct {
	TestID       string
	UserID       string
	FinishedOnly bool
	Page         Page // newest first
}

// ScoreFunc computes the final score inside the finalizing transaction.
type ScoreFunc func(totalQuestions int, answers []Answer) float64

// Store persists tests, questions, attempts and answers.
// Deleting a test removes its questions, attempts and their answers;
// deleting a question removes answers given to it.
type Store interface {
	CreateTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
	GetTestByLink(ctx context.Context, token string) (Test, error)
	ListTestsByAuthor(ctx context.Context, authorID string, page Page) ([]Test, error)
	CountTestsByAuthor(ctx context.Context, authorID string) (int, error)
	UpdateTest(ctx context.Context, t Test) error
	DeleteTest(ctx context.Context, id string) error
	// PublishTest marks the test published, keeping an existing link token
	// or assigning token. Fails with ErrNoQuestions on an empty test.
	PublishTest(ctx context.Context, id, token string, at time.Time) (Test, error)

	CreateQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, testID string) ([]Question, error) // by order_index

	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	// UpsertAnswer inserts or overwrites the answer for (attempt, question)
	// and fails with ErrAlreadyFinished once the attempt is finished.
	UpsertAnswer(ctx context.Context, a Answer) (Answer, error)
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)
	// FinishAttempt sets score and finished_at together, only if the attempt
	// is still unfinished; otherwise ErrAlreadyFinished.
	FinishAttempt(ctx context.Context, attemptID string, at time.Time, score ScoreFunc) (Attempt, error)
}
