package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidKey is returned by CanonicalKey for correct answers that do not
// fit the question.
var ErrInvalidKey = errors.New("invalid correct answer")

// Key is a question's correct answer resolved from its stored form.
// The bare-integer and one-element-list encodings of a single-choice key
// both resolve to Index here.
type Key struct {
	Defined bool

	Index    int64
	HasIndex bool // single: stored value held an integer index

	Set   []int64
	IsSet bool // multiple: stored value was a list of integers

	Text string
}

// ParseKey resolves a stored JSON-encoded correct answer. Empty, null or
// undecodable input yields an undefined key.
func ParseKey(t Type, stored string) Key {
	if strings.TrimSpace(stored) == "" {
		return Key{}
	}
	var v interface{}
	if err := json.Unmarshal([]byte(stored), &v); err != nil {
		return Key{}
	}
	return KeyFromValue(t, v)
}

// KeyFromValue resolves an already decoded correct answer.
func KeyFromValue(t Type, v interface{}) Key {
	if v == nil {
		return Key{}
	}
	k := Key{Defined: true}
	switch t {
	case TypeSingle:
		if list, ok := v.([]interface{}); ok {
			if len(list) == 0 {
				return k
			}
			v = list[0]
		}
		k.Index, k.HasIndex = exactInt(v)
	case TypeMultiple:
		list, ok := v.([]interface{})
		if !ok {
			return k
		}
		set := make([]int64, 0, len(list))
		for _, e := range list {
			i, ok := exactInt(e)
			if !ok {
				return k
			}
			set = append(set, i)
		}
		k.Set, k.IsSet = set, true
	default:
		k.Text = stringify(v)
	}
	return k
}

// exactInt accepts only integral numbers; stored keys are never coerced.
func exactInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// CanonicalKey validates an author-supplied correct answer and returns the
// value to persist: a one-element list for single, a list for multiple and a
// string for text. A nil input means "no correct answer" and returns nil.
func CanonicalKey(t Type, v interface{}, optionCount int) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeSingle:
		if list, ok := v.([]interface{}); ok {
			if len(list) == 0 {
				return nil, fmt.Errorf("%w: empty list for single choice", ErrInvalidKey)
			}
			v = list[0]
		}
		i, ok := toInt(v)
		if !ok {
			if s, isStr := v.(string); isStr {
				n, err := parseIntLoose(s)
				if err != nil {
					return nil, fmt.Errorf("%w: must be an option number", ErrInvalidKey)
				}
				i = n
			} else {
				return nil, fmt.Errorf("%w: must be an option number", ErrInvalidKey)
			}
		}
		if err := checkIndex(i, optionCount); err != nil {
			return nil, err
		}
		return []int64{i}, nil
	case TypeMultiple:
		list, err := normalizeMultiple(v)
		if err != nil {
			return nil, fmt.Errorf("%w: for multiple type, correct_answer must be a list", ErrInvalidKey)
		}
		for _, i := range list {
			if err := checkIndex(i, optionCount); err != nil {
				return nil, err
			}
		}
		return list, nil
	case TypeText:
		return stringify(v), nil
	}
	return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidKey, t)
}

func checkIndex(i int64, optionCount int) error {
	if i < 0 || i >= int64(optionCount) {
		return fmt.Errorf("%w: index %d outside options [0,%d)", ErrInvalidKey, i, optionCount)
	}
	return nil
}
