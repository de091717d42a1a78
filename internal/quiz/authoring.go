package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

const (
	maxTitleLen    = 200
	maxQuestionLen = 1000
	minOptions     = 2
)

type TestInput struct {
	Title       string
	Description string
}

// TestPatch fields left nil are unchanged.
type TestPatch struct {
	Title       *string
	Description *string
}

type QuestionInput struct {
	Text    string
	Type    grading.Type
	Options []string
	// CorrectAnswer is the raw JSON as sent by the author; empty or null
	// means no correct answer.
	CorrectAnswer json.RawMessage
	OrderIndex    int
}

// QuestionPatch fields left nil are unchanged. CorrectAnswer set to the
// JSON literal null clears the correct answer.
type QuestionPatch struct {
	Text          *string
	Type          *grading.Type
	Options       *[]string
	CorrectAnswer json.RawMessage
	OrderIndex    *int
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title is required")
	}
	if len([]rune(title)) > maxTitleLen {
		return "", invalid("title must be at most %d characters", maxTitleLen)
	}
	return title, nil
}

func (s *Service) CreateTest(ctx context.Context, authorID string, in TestInput) (Test, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return Test{}, err
	}
	now := s.clock()
	t := Test{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTest(ctx, t); err != nil {
		return Test{}, fmt.Errorf("create test: %w", err)
	}
	return t, nil
}

func (s *Service) ListTests(ctx context.Context, authorID string, page Page) ([]Test, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListTestsByAuthor(ctx, authorID, page)
}

// GetTest is the owner view: questions in order, correct answers included.
func (s *Service) GetTest(ctx context.Context, testID, callerID string) (Test, error) {
	t, err := s.ownedTest(ctx, testID, callerID)
	if err != nil {
		return Test{}, err
	}
	qs, err := s.store.ListQuestions(ctx, testID)
	if err != nil {
		return Test{}, err
	}
	t.Questions = qs
	return t, nil
}

func (s *Service) UpdateTest(ctx context.Context, testID, callerID string, p TestPatch) (Test, error) {
	t, err := s.ownedTest(ctx, testID, callerID)
	if err != nil {
		return Test{}, err
	}
	if p.Title != nil {
		if t.Title, err = checkTitle(*p.Title); err != nil {
			return Test{}, err
		}
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	t.UpdatedAt = s.clock()
	if err := s.store.UpdateTest(ctx, t); err != nil {
		return Test{}, err
	}
	return t, nil
}

func (s *Service) DeleteTest(ctx context.Context, testID, callerID string) error {
	t, err := s.ownedTest(ctx, testID, callerID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	if t.LinkToken != "" && s.links != nil {
		if err := s.links.Delete(ctx, t.LinkToken); err != nil {
			log.Printf("[quiz] link cache delete %s: %v", t.LinkToken, err)
		}
	}
	log.Printf("[quiz] test %s deleted by %s", testID, callerID)
	return nil
}

// PublishTest marks the test published and hands out its link token.
// Re-publishing keeps the token already issued.
func (s *Service) PublishTest(ctx context.Context, testID, callerID string) (Test, error) {
	if _, err := s.ownedTest(ctx, testID, callerID); err != nil {
		return Test{}, err
	}
	t, err := s.store.PublishTest(ctx, testID, s.newID(), s.clock())
	if err != nil {
		return Test{}, err
	}
	s.cacheLink(ctx, t.LinkToken, t.ID)
	log.Printf("[quiz] test %s published link=%s", t.ID, t.LinkToken)
	return t, nil
}

// GetTestByLink is the respondent view of a published test: questions in
// order without correct answers.
func (s *Service) GetTestByLink(ctx context.Context, token string) (Test, error) {
	t, err := s.lookupLink(ctx, token)
	if err != nil {
		return Test{}, err
	}
	if !t.IsPublished {
		return Test{}, ErrNotPublished
	}
	qs, err := s.store.ListQuestions(ctx, t.ID)
	if err != nil {
		return Test{}, err
	}
	for i := range qs {
		qs[i] = qs[i].Public()
	}
	t.Questions = qs
	return t, nil
}

func (s *Service) lookupLink(ctx context.Context, token string) (Test, error) {
	if s.links != nil {
		id, ok, err := s.links.Get(ctx, token)
		if err != nil {
			log.Printf("[quiz] link cache get %s: %v", token, err)
		}
		if ok {
			t, err := s.store.GetTest(ctx, id)
			if err == nil && t.LinkToken == token {
				return t, nil
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return Test{}, err
			}
		}
	}
	t, err := s.store.GetTestByLink(ctx, token)
	if err != nil {
		return Test{}, err
	}
	s.cacheLink(ctx, token, t.ID)
	return t, nil
}

func (s *Service) cacheLink(ctx context.Context, token, testID string) {
	if s.links == nil || token == "" {
		return
	}
	if err := s.links.Set(ctx, token, testID); err != nil {
		log.Printf("[quiz] link cache set %s: %v", token, err)
	}
}

/* ------------------------------- questions -------------------------------- */

func (s *Service) CreateQuestion(ctx context.Context, testID, callerID string, in QuestionInput) (Question, error) {
	if _, err := s.ownedTest(ctx, testID, callerID); err != nil {
		return Question{}, err
	}
	q := Question{
		ID:         s.newID(),
		TestID:     testID,
		Text:       in.Text,
		Type:       in.Type,
		Options:    in.Options,
		OrderIndex: in.OrderIndex,
	}
	key, err := decodeRawKey(in.CorrectAnswer)
	if err != nil {
		return Question{}, err
	}
	if q, err = buildQuestion(q, key); err != nil {
		return Question{}, err
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, testID, questionID, callerID string, p QuestionPatch) (Question, error) {
	q, err := s.ownedQuestion(ctx, testID, questionID, callerID)
	if err != nil {
		return Question{}, err
	}
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Type != nil {
		q.Type = *p.Type
	}
	if p.Options != nil {
		q.Options = *p.Options
	}
	if p.OrderIndex != nil {
		q.OrderIndex = *p.OrderIndex
	}

	// An untouched key is re-checked against the possibly changed options.
	key := decodeStored(q.CorrectAnswer)
	if p.CorrectAnswer != nil {
		if key, err = decodeRawKey(p.CorrectAnswer); err != nil {
			return Question{}, err
		}
	}
	if q, err = buildQuestion(q, key); err != nil {
		return Question{}, err
	}
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, testID, questionID, callerID string) error {
	if _, err := s.ownedQuestion(ctx, testID, questionID, callerID); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, questionID)
}

func (s *Service) ownedQuestion(ctx context.Context, testID, questionID, callerID string) (Question, error) {
	if _, err := s.ownedTest(ctx, testID, callerID); err != nil {
		return Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Question{}, err
	}
	if q.TestID != testID {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func decodeRawKey(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, invalid("correct_answer is not valid JSON")
	}
	return v, nil
}

// buildQuestion validates q and stores key in its canonical JSON form.
func buildQuestion(q Question, key any) (Question, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return Question{}, invalid("question_text is required")
	}
	if len([]rune(q.Text)) > maxQuestionLen {
		return Question{}, invalid("question_text must be at most %d characters", maxQuestionLen)
	}
	if !q.Type.Valid() {
		return Question{}, invalid("question_type must be one of: single, multiple, text")
	}
	if q.Type == grading.TypeText {
		q.Options = nil
	} else if len(q.Options) < minOptions {
		return Question{}, invalid("single and multiple questions need at least %d options", minOptions)
	}
	if q.OrderIndex < 0 {
		return Question{}, invalid("order_index must be >= 0")
	}

	canon, err := grading.CanonicalKey(q.Type, key, len(q.Options))
	if err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	q.CorrectAnswer = ""
	if canon != nil {
		b, err := json.Marshal(canon)
		if err != nil {
			return Question{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		q.CorrectAnswer = string(b)
	}
	return q, nil
}
