package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

const (
	author     = "author-1"
	respondent = "user-1"
)

type recordedEvent struct {
	Type, Key string
	Payload   any
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) Append(_ context.Context, typ, key string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{typ, key, payload})
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// stepClock advances one second per reading so orderings are deterministic.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func sqliteStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewSQLStore(conn, db.DriverSQLite)
}

// eachStore runs fn against the in-memory and the sqlite-backed store.
func eachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewInMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, sqliteStore(t)) })
}

func newTestService(store Store, opts ...Option) (*Service, *recordingSink) {
	sink := &recordingSink{}
	base := []Option{WithClock(stepClock()), WithIDs(seqIDs("id")), WithEvents(sink)}
	return NewService(store, append(base, opts...)...), sink
}

type fixture struct {
	test                   Test
	single, multiple, text Question
}

// seedTest creates a test owned by author with one question of each type:
// single (key 1 of 3), multiple (key [0,2] of 4) and text (key "Paris").
func seedTest(t *testing.T, svc *Service) fixture {
	t.Helper()
	ctx := context.Background()
	tt, err := svc.CreateTest(ctx, author, TestInput{Title: "Geography", Description: "basics"})
	if err != nil {
		t.Fatalf("create test: %v", err)
	}
	mk := func(in QuestionInput) Question {
		q, err := svc.CreateQuestion(ctx, tt.ID, author, in)
		if err != nil {
			t.Fatalf("create question %q: %v", in.Text, err)
		}
		return q
	}
	return fixture{
		test: tt,
		single: mk(QuestionInput{Text: "Capital of Italy?", Type: grading.TypeSingle,
			Options: []string{"Milan", "Rome", "Turin"}, CorrectAnswer: json.RawMessage(`1`), OrderIndex: 0}),
		multiple: mk(QuestionInput{Text: "Pick the rivers", Type: grading.TypeMultiple,
			Options: []string{"Nile", "Alps", "Danube", "Sahara"}, CorrectAnswer: json.RawMessage(`[0,2]`), OrderIndex: 1}),
		text: mk(QuestionInput{Text: "Capital of France?", Type: grading.TypeText,
			CorrectAnswer: json.RawMessage(`"Paris"`), OrderIndex: 2}),
	}
}
