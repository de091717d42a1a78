package quiz

import (
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type Test struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    string    `json:"user_id"`
	IsPublished bool      `json:"is_published"`
	LinkToken   string    `json:"link_token,omitempty"` // set iff published
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	AttemptsCount int        `json:"attempts_count"`
	Questions     []Question `json:"questions,omitempty"`
}

type Question struct {
	ID         string       `json:"id"`
	TestID     string       `json:"test_id"`
	Text       string       `json:"question_text"`
	Type       grading.Type `json:"question_type"`
	Options    []string     `json:"options,omitempty"`
	OrderIndex int          `json:"order_index"`

	// CorrectAnswer is the canonical JSON text as persisted; empty when the
	// question has no correct answer or it has been hidden.
	CorrectAnswer string `json:"-"`
}

// Grading returns the view of q the grading engine works on.
func (q Question) Grading() grading.Q {
	return grading.Q{Type: q.Type, Key: grading.ParseKey(q.Type, q.CorrectAnswer)}
}

// Public strips the correct answer for respondents.
func (q Question) Public() Question {
	q.CorrectAnswer = ""
	return q
}

func (q Question) MarshalJSON() ([]byte, error) {
	type plain Question
	return json.Marshal(struct {
		plain
		CorrectAnswer interface{} `json:"correct_answer,omitempty"`
	}{plain: plain(q), CorrectAnswer: decodeStored(q.CorrectAnswer)})
}

type Attempt struct {
	ID         string     `json:"id"`
	TestID     string     `json:"test_id"`
	UserID     string     `json:"user_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Score      *float64   `json:"score"`
}

// Finished reports whether the attempt reached its terminal state.
func (a Attempt) Finished() bool { return a.FinishedAt != nil }

type Answer struct {
	ID         string    `json:"id"`
	AttemptID  string    `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	IsCorrect  *bool     `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`

	// UserAnswer is the canonical JSON text of what was submitted.
	UserAnswer string `json:"-"`
}

// Outcome maps the nullable is_correct column back to a grading outcome.
func (a Answer) Outcome() grading.Outcome { return grading.OutcomeOf(a.IsCorrect) }

func (a Answer) MarshalJSON() ([]byte, error) {
	type plain Answer
	return json.Marshal(struct {
		plain
		UserAnswer interface{} `json:"user_answer"`
	}{plain: plain(a), UserAnswer: decodeStored(a.UserAnswer)})
}

// Results is an attempt with every stored answer.
type Results struct {
	Attempt
	Answers []Answer `json:"answers"`
}

type TestStats struct {
	TestID        string  `json:"test_id"`
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	HighestScore  float64 `json:"highest_score"`
	LowestScore   float64 `json:"lowest_score"`
}

type UserStats struct {
	TotalAttempts int     `json:"total_attempts"`
	TestsCreated  int     `json:"tests_created"`
	AverageScore  float64 `json:"average_score"`
}

// decodeStored turns persisted JSON text into a value for responses.
// Corrupt text is returned verbatim rather than failing the response.
func decodeStored(s string) interface{} {
	if s == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// decodeOptions reads a persisted options list; corrupt text yields none.
func decodeOptions(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{}
	}
	return out
}

func encodeOptions(opts []string) string {
	if len(opts) == 0 {
		return ""
	}
	b, _ := json.Marshal(opts)
	return string(b)
}
