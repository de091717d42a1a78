package quiz

import (
	"errors"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrAlreadyFinished = errors.New("attempt already finished")
	ErrDuplicateAnswer = errors.New("answer already exists for this question")
	ErrNoQuestions     = errors.New("cannot publish test without questions")
	ErrNotPublished    = errors.New("test is not published")
	ErrInvalid         = errors.New("invalid input")

	// ErrInvalidAnswerFormat is re-exported so callers of the lifecycle
	// need not import the grading package to match it.
	ErrInvalidAnswerFormat = grading.ErrInvalidAnswerFormat
)
