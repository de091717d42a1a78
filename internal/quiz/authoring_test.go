package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

func TestCreateQuestion_CanonicalKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(NewInMemoryStore())
	tt, _ := svc.CreateTest(ctx, author, TestInput{Title: "Keys"})
	abc := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		in      QuestionInput
		want    string
		wantErr bool
	}{
		{name: "single bare int", in: QuestionInput{Type: grading.TypeSingle, Options: abc, CorrectAnswer: json.RawMessage(`2`)}, want: `[2]`},
		{name: "single list", in: QuestionInput{Type: grading.TypeSingle, Options: abc, CorrectAnswer: json.RawMessage(`[0]`)}, want: `[0]`},
		{name: "single out of range", in: QuestionInput{Type: grading.TypeSingle, Options: abc, CorrectAnswer: json.RawMessage(`3`)}, wantErr: true},
		{name: "single negative", in: QuestionInput{Type: grading.TypeSingle, Options: abc, CorrectAnswer: json.RawMessage(`-1`)}, wantErr: true},
		{name: "multiple list", in: QuestionInput{Type: grading.TypeMultiple, Options: abc, CorrectAnswer: json.RawMessage(`[2,0]`)}, want: `[2,0]`},
		{name: "multiple not a list", in: QuestionInput{Type: grading.TypeMultiple, Options: abc, CorrectAnswer: json.RawMessage(`{"a":1}`)}, wantErr: true},
		{name: "text", in: QuestionInput{Type: grading.TypeText, Options: abc, CorrectAnswer: json.RawMessage(`"Paris"`)}, want: `"Paris"`},
		{name: "no key", in: QuestionInput{Type: grading.TypeSingle, Options: abc}, want: ``},
		{name: "null key", in: QuestionInput{Type: grading.TypeText, CorrectAnswer: json.RawMessage(`null`)}, want: ``},
		{name: "one option", in: QuestionInput{Type: grading.TypeSingle, Options: []string{"a"}}, wantErr: true},
		{name: "unknown type", in: QuestionInput{Type: "essay"}, wantErr: true},
		{name: "bad json", in: QuestionInput{Type: grading.TypeText, CorrectAnswer: json.RawMessage(`{`)}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.Text = "Q " + tc.name
			q, err := svc.CreateQuestion(ctx, tt.ID, author, tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("want ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if q.CorrectAnswer != tc.want {
				t.Fatalf("stored key = %q want %q", q.CorrectAnswer, tc.want)
			}
			if q.Type == grading.TypeText && q.Options != nil {
				t.Fatalf("text question kept options: %v", q.Options)
			}
		})
	}
}

func TestAuthoring_OwnerChecks(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc, _ := newTestService(store)
		fx := seedTest(t, svc)

		if _, err := svc.GetTest(ctx, fx.test.ID, "intruder"); !errors.Is(err, ErrAccessDenied) {
			t.Fatalf("get: %v", err)
		}
		if _, err := svc.PublishTest(ctx, fx.test.ID, "intruder"); !errors.Is(err, ErrAccessDenied) {
			t.Fatalf("publish: %v", err)
		}
		if err := svc.DeleteTest(ctx, fx.test.ID, "intruder"); !errors.Is(err, ErrAccessDenied) {
			t.Fatalf("delete: %v", err)
		}
		if _, err := svc.CreateQuestion(ctx, fx.test.ID, "intruder", QuestionInput{Text: "x", Type: grading.TypeText}); !errors.Is(err, ErrAccessDenied) {
			t.Fatalf("create question: %v", err)
		}
		if _, err := svc.GetTest(ctx, "missing", author); !errors.Is(err, ErrNotFound) {
			t.Fatalf("missing: %v", err)
		}

		got, err := svc.GetTest(ctx, fx.test.ID, author)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Questions) != 3 || got.Questions[0].ID != fx.single.ID || got.Questions[2].ID != fx.text.ID {
			t.Fatalf("questions not in order: %+v", got.Questions)
		}
		if got.Questions[0].CorrectAnswer == "" {
			t.Fatal("owner view must include correct answers")
		}
	})
}

func TestAuthoring_UpdateTestAndQuestion(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc, _ := newTestService(store)
		fx := seedTest(t, svc)

		title := "  Europe  "
		tt, err := svc.UpdateTest(ctx, fx.test.ID, author, TestPatch{Title: &title})
		if err != nil {
			t.Fatal(err)
		}
		if tt.Title != "Europe" || tt.Description != "basics" {
			t.Fatalf("patched test = %+v", tt)
		}
		empty := " "
		if _, err := svc.UpdateTest(ctx, fx.test.ID, author, TestPatch{Title: &empty}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("blank title: %v", err)
		}

		// Shrinking options below a stored key index is rejected.
		short := []string{"Nile", "Alps"}
		if _, err := svc.UpdateQuestion(ctx, fx.test.ID, fx.multiple.ID, author, QuestionPatch{Options: &short}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("shrink options: %v", err)
		}
		// Unless the key moves with them.
		q, err := svc.UpdateQuestion(ctx, fx.test.ID, fx.multiple.ID, author,
			QuestionPatch{Options: &short, CorrectAnswer: json.RawMessage(`[0]`)})
		if err != nil {
			t.Fatal(err)
		}
		if q.CorrectAnswer != "[0]" || len(q.Options) != 2 {
			t.Fatalf("updated question = %+v", q)
		}
		// null clears the key.
		q, err = svc.UpdateQuestion(ctx, fx.test.ID, fx.multiple.ID, author, QuestionPatch{CorrectAnswer: json.RawMessage(`null`)})
		if err != nil {
			t.Fatal(err)
		}
		if q.CorrectAnswer != "" {
			t.Fatalf("key not cleared: %q", q.CorrectAnswer)
		}
		stored, _ := store.GetQuestion(ctx, fx.multiple.ID)
		if stored.CorrectAnswer != "" || stored.Text != fx.multiple.Text || len(stored.Options) != 2 {
			t.Fatalf("stored question = %+v", stored)
		}

		// Question ids are scoped to their test.
		other, _ := svc.CreateTest(ctx, author, TestInput{Title: "Other"})
		if _, err := svc.UpdateQuestion(ctx, other.ID, fx.single.ID, author, QuestionPatch{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("cross-test update: %v", err)
		}
	})
}

func TestAuthoring_PublishAndLink(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		links := newMapCache()
		svc, _ := newTestService(store, WithLinkCache(links))

		empty, _ := svc.CreateTest(ctx, author, TestInput{Title: "Empty"})
		if _, err := svc.PublishTest(ctx, empty.ID, author); !errors.Is(err, ErrNoQuestions) {
			t.Fatalf("publish empty: %v", err)
		}
		if got, _ := store.GetTest(ctx, empty.ID); got.IsPublished || got.LinkToken != "" {
			t.Fatalf("empty test changed: %+v", got)
		}

		fx := seedTest(t, svc)
		pub, err := svc.PublishTest(ctx, fx.test.ID, author)
		if err != nil {
			t.Fatal(err)
		}
		if !pub.IsPublished || pub.LinkToken == "" {
			t.Fatalf("published = %+v", pub)
		}
		again, err := svc.PublishTest(ctx, fx.test.ID, author)
		if err != nil {
			t.Fatal(err)
		}
		if again.LinkToken != pub.LinkToken {
			t.Fatalf("republish changed token %q -> %q", pub.LinkToken, again.LinkToken)
		}
		if id, ok, _ := links.Get(ctx, pub.LinkToken); !ok || id != fx.test.ID {
			t.Fatalf("link not cached: %q %v", id, ok)
		}

		view, err := svc.GetTestByLink(ctx, pub.LinkToken)
		if err != nil {
			t.Fatal(err)
		}
		if len(view.Questions) != 3 {
			t.Fatalf("questions = %d", len(view.Questions))
		}
		for _, q := range view.Questions {
			if q.CorrectAnswer != "" {
				t.Fatalf("respondent view leaks key of %s", q.ID)
			}
			b, _ := json.Marshal(q)
			if strings.Contains(string(b), "correct_answer") {
				t.Fatalf("key serialized: %s", b)
			}
		}
		if _, err := svc.GetTestByLink(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("unknown link: %v", err)
		}

		if err := svc.DeleteTest(ctx, fx.test.ID, author); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := links.Get(ctx, pub.LinkToken); ok {
			t.Fatal("deleted test still cached")
		}
		if _, err := svc.GetTestByLink(ctx, pub.LinkToken); !errors.Is(err, ErrNotFound) {
			t.Fatalf("link of deleted test: %v", err)
		}
	})
}

func TestAuthoring_DeleteCascades(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc, _ := newTestService(store)
		fx := seedTest(t, svc)
		a, _ := svc.StartAttempt(ctx, fx.test.ID, respondent)
		_, _ = svc.SubmitAnswer(ctx, a.ID, fx.single.ID, 1, respondent)
		_, _ = svc.SubmitAnswer(ctx, a.ID, fx.text.ID, "Paris", respondent)

		if err := svc.DeleteQuestion(ctx, fx.test.ID, fx.text.ID, author); err != nil {
			t.Fatal(err)
		}
		answers, _ := store.ListAnswers(ctx, a.ID)
		if len(answers) != 1 || answers[0].QuestionID != fx.single.ID {
			t.Fatalf("answers after question delete: %+v", answers)
		}

		if err := svc.DeleteTest(ctx, fx.test.ID, author); err != nil {
			t.Fatal(err)
		}
		if _, err := store.GetAttempt(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("attempt survived: %v", err)
		}
		if _, err := store.GetQuestion(ctx, fx.single.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("question survived: %v", err)
		}
		if answers, _ := store.ListAnswers(ctx, a.ID); len(answers) != 0 {
			t.Fatalf("answers survived: %+v", answers)
		}
	})
}

func TestListTests_Pagination(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		svc, _ := newTestService(store)
		for _, title := range []string{"one", "two", "three"} {
			if _, err := svc.CreateTest(ctx, author, TestInput{Title: title}); err != nil {
				t.Fatal(err)
			}
		}
		_, _ = svc.CreateTest(ctx, "someone-else", TestInput{Title: "theirs"})

		page, err := svc.ListTests(ctx, author, Page{Skip: 1, Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 1 || page[0].Title != "two" {
			t.Fatalf("page = %+v", page)
		}
		all, _ := svc.ListTests(ctx, author, Page{Limit: 100})
		if len(all) != 3 || all[0].Title != "three" {
			t.Fatalf("newest first: %+v", all)
		}
		if _, err := svc.ListTests(ctx, author, Page{Limit: 0}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("limit 0: %v", err)
		}
		if _, err := svc.ListTests(ctx, author, Page{Skip: -1, Limit: 10}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("negative skip: %v", err)
		}
	})
}

// mapCache is an in-process LinkCache.
type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapCache() *mapCache { return &mapCache{m: map[string]string{}} }

func (c *mapCache) Get(_ context.Context, token string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[token]
	return id, ok, nil
}

func (c *mapCache) Set(_ context.Context, token, testID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[token] = testID
	return nil
}

func (c *mapCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, token)
	return nil
}
