package quiz

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Lifecycle event types appended to the event log.
const (
	EventAttemptStarted  = "AttemptStarted"
	EventAnswerSubmitted = "AnswerSubmitted"
	EventAttemptFinished = "AttemptFinished"
)

// EventSink records lifecycle transitions. Failures never fail a request.
type EventSink interface {
	Append(ctx context.Context, typ, key string, payload any) error
}

// LinkCache maps link tokens to test ids.
type LinkCache interface {
	Get(ctx context.Context, token string) (testID string, ok bool, err error)
	Set(ctx context.Context, token, testID string) error
	Delete(ctx context.Context, token string) error
}

type Service struct {
	store  Store
	grader grading.Grader
	events EventSink
	links  LinkCache
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithGrader(g grading.Grader) Option { return func(s *Service) { s.grader = g } }
func WithEvents(e EventSink) Option      { return func(s *Service) { s.events = e } }
func WithLinkCache(c LinkCache) Option   { return func(s *Service) { s.links = c } }

// WithClock replaces time.Now; times are truncated to milliseconds.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDs replaces the uuid generator used for new rows and link tokens.
func WithIDs(gen func() string) Option { return func(s *Service) { s.newID = gen } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) emit(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, payload); err != nil {
		log.Printf("[quiz] event %s %s: %v", typ, key, err)
	}
}

// ownedTest loads a test and checks callerID authored it.
func (s *Service) ownedTest(ctx context.Context, testID, callerID string) (Test, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, err
	}
	if t.AuthorID != callerID {
		return Test{}, ErrAccessDenied
	}
	return t, nil
}
