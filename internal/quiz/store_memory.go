package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

type answerSlot struct{ attemptID, questionID string }

// memoryStore keeps every row in maps keyed by id; children carry their
// parent's id and are removed explicitly when the parent goes.
type memoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	questions map[string]Question
	attempts  map[string]Attempt
	answers   map[string]Answer
	slots     map[answerSlot]string // unique (attempt, question) -> answer id
}

func NewInMemoryStore() Store {
	return &memoryStore{
		tests:     map[string]Test{},
		questions: map[string]Question{},
		attempts:  map[string]Attempt{},
		answers:   map[string]Answer{},
		slots:     map[answerSlot]string{},
	}
}

func (m *memoryStore) CreateTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Questions = nil
	t.AttemptsCount = 0
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrNotFound
	}
	return m.withCounts(t), nil
}

func (m *memoryStore) GetTestByLink(_ context.Context, token string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if token == "" {
		return Test{}, ErrNotFound
	}
	for _, t := range m.tests {
		if t.LinkToken == token {
			return m.withCounts(t), nil
		}
	}
	return Test{}, ErrNotFound
}

func (m *memoryStore) ListTestsByAuthor(_ context.Context, authorID string, page Page) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Test{}
	for _, t := range m.tests {
		if t.AuthorID == authorID {
			out = append(out, m.withCounts(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, page), nil
}

func (m *memoryStore) CountTestsByAuthor(_ context.Context, authorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tests {
		if t.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) UpdateTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tests[t.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = t.Title
	cur.Description = t.Description
	cur.UpdatedAt = t.UpdatedAt
	m.tests[t.ID] = cur
	return nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return ErrNotFound
	}
	for qid, q := range m.questions {
		if q.TestID == id {
			m.deleteQuestionLocked(qid)
		}
	}
	for aid, a := range m.attempts {
		if a.TestID == id {
			m.deleteAttemptLocked(aid)
		}
	}
	delete(m.tests, id)
	return nil
}

func (m *memoryStore) PublishTest(_ context.Context, id, token string, at time.Time) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrNotFound
	}
	if m.questionCountLocked(id) == 0 {
		return Test{}, ErrNoQuestions
	}
	if t.LinkToken == "" {
		t.LinkToken = token
	}
	t.IsPublished = true
	t.UpdatedAt = at
	m.tests[id] = t
	return m.withCounts(t), nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[q.TestID]; !ok {
		return ErrNotFound
	}
	q.Options = copyStrings(q.Options)
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	q.Options = copyStrings(q.Options)
	return q, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.questions[q.ID]
	if !ok {
		return ErrNotFound
	}
	q.TestID = cur.TestID
	q.Options = copyStrings(q.Options)
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	m.deleteQuestionLocked(id)
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, testID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.questionsLocked(testID), nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[a.TestID]; !ok {
		return ErrNotFound
	}
	a.FinishedAt, a.Score = nil, nil
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.FinishedOnly && !a.Finished() {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, opts.Page), nil
}

func (m *memoryStore) UpsertAnswer(_ context.Context, a Answer) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attempts[a.AttemptID]
	if !ok {
		return Answer{}, ErrNotFound
	}
	if at.Finished() {
		return Answer{}, ErrAlreadyFinished
	}
	if _, ok := m.questions[a.QuestionID]; !ok {
		return Answer{}, ErrNotFound
	}
	slot := answerSlot{a.AttemptID, a.QuestionID}
	if id, exists := m.slots[slot]; exists {
		a.ID = id
	}
	m.slots[slot] = a.ID
	m.answers[a.ID] = a
	return a, nil
}

func (m *memoryStore) ListAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.answersLocked(attemptID), nil
}

func (m *memoryStore) FinishAttempt(_ context.Context, attemptID string, at time.Time, score ScoreFunc) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	if a.Finished() {
		return Attempt{}, ErrAlreadyFinished
	}
	s := score(m.questionCountLocked(a.TestID), m.answersLocked(attemptID))
	a.Score = &s
	a.FinishedAt = &at
	m.attempts[attemptID] = a
	return a, nil
}

// --- locked helpers ---

func (m *memoryStore) withCounts(t Test) Test {
	n := 0
	for _, a := range m.attempts {
		if a.TestID == t.ID {
			n++
		}
	}
	t.AttemptsCount = n
	return t
}

func (m *memoryStore) questionCountLocked(testID string) int {
	n := 0
	for _, q := range m.questions {
		if q.TestID == testID {
			n++
		}
	}
	return n
}

func (m *memoryStore) questionsLocked(testID string) []Question {
	out := []Question{}
	for _, q := range m.questions {
		if q.TestID == testID {
			q.Options = copyStrings(q.Options)
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memoryStore) answersLocked(attemptID string) []Answer {
	out := []Answer{}
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) deleteQuestionLocked(id string) {
	for aid, a := range m.answers {
		if a.QuestionID == id {
			delete(m.slots, answerSlot{a.AttemptID, a.QuestionID})
			delete(m.answers, aid)
		}
	}
	delete(m.questions, id)
}

func (m *memoryStore) deleteAttemptLocked(id string) {
	for aid, a := range m.answers {
		if a.AttemptID == id {
			delete(m.slots, answerSlot{a.AttemptID, a.QuestionID})
			delete(m.answers, aid)
		}
	}
	delete(m.attempts, id)
}

func paginate[T any](in []T, p Page) []T {
	if p.Skip > 0 {
		if p.Skip >= len(in) {
			return in[:0]
		}
		in = in[p.Skip:]
	}
	if p.Limit > 0 && p.Limit < len(in) {
		in = in[:p.Limit]
	}
	return in
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
