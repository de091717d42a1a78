package grading

import "sort"

// Outcome is the result of grading one answer.
type Outcome int

const (
	// Ungraded means the question has no usable correct answer.
	Ungraded Outcome = iota
	Correct
	Incorrect
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "ungraded"
	}
}

// Bool maps the outcome to the nullable is_correct column.
func (o Outcome) Bool() *bool {
	switch o {
	case Correct:
		t := true
		return &t
	case Incorrect:
		f := false
		return &f
	default:
		return nil
	}
}

// OutcomeOf is the inverse of Outcome.Bool.
func OutcomeOf(b *bool) Outcome {
	switch {
	case b == nil:
		return Ungraded
	case *b:
		return Correct
	default:
		return Incorrect
	}
}

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type Type
	Key  Key
}

// Strategy compares answers for one question type.
type Strategy interface {
	// Comparable reports whether k can be graded against at all.
	Comparable(k Key) bool
	Match(k Key, a Answer) bool
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	// Grade normalizes raw and grades it. It never fails: answers that
	// cannot be normalized are Incorrect once a correct answer exists.
	Grade(q Q, raw interface{}) Outcome
	// GradeAnswer grades an already normalized answer.
	GradeAnswer(q Q, a Answer) Outcome
}

type defaultGrader struct {
	strategies map[Type]Strategy
}

func (g *defaultGrader) Grade(q Q, raw interface{}) Outcome {
	s, ok := g.comparable(q)
	if !ok {
		return Ungraded
	}
	a, err := Normalize(q.Type, raw)
	if err != nil {
		return Incorrect
	}
	return verdict(s.Match(q.Key, a))
}

func (g *defaultGrader) GradeAnswer(q Q, a Answer) Outcome {
	s, ok := g.comparable(q)
	if !ok {
		return Ungraded
	}
	return verdict(s.Match(q.Key, a))
}

func (g *defaultGrader) comparable(q Q) (Strategy, bool) {
	s, ok := g.strategies[q.Type]
	if !ok || !q.Key.Defined || !s.Comparable(q.Key) {
		return nil, false
	}
	return s, true
}

func verdict(ok bool) Outcome {
	if ok {
		return Correct
	}
	return Incorrect
}

type Option func(*defaultGrader)

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(t Type, s Strategy) Option {
	return func(g *defaultGrader) { g.strategies[t] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	g := &defaultGrader{
		strategies: map[Type]Strategy{
			TypeSingle:   singleStrategy{},
			TypeMultiple: multipleStrategy{},
			TypeText:     textStrategy{},
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Grade grades with the default strategies.
func Grade(q Q, raw interface{}) Outcome {
	return defaultEngine.Grade(q, raw)
}

var defaultEngine = NewDefaultGrader()

// --- Strategies ---

type singleStrategy struct{}

func (singleStrategy) Comparable(Key) bool { return true }

func (singleStrategy) Match(k Key, a Answer) bool {
	return k.HasIndex && a.Kind == KindInt && a.Int == k.Index
}

type multipleStrategy struct{}

func (multipleStrategy) Comparable(k Key) bool { return k.IsSet }

func (multipleStrategy) Match(k Key, a Answer) bool {
	if a.Kind != KindIntSet || len(a.Ints) != len(k.Set) {
		return false
	}
	got := sortedCopy(a.Ints)
	want := sortedCopy(k.Set)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

type textStrategy struct{}

func (textStrategy) Comparable(Key) bool { return true }

func (textStrategy) Match(k Key, a Answer) bool {
	if a.Kind != KindText {
		return false
	}
	return foldText(a.Text) == foldText(k.Text)
}

func sortedCopy(v []int64) []int64 {
	out := append([]int64(nil), v...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
