package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidAnswerFormat is returned when a submitted value cannot be
// brought into the shape its question type requires.
var ErrInvalidAnswerFormat = errors.New("invalid answer format")

// Type is a question type.
type Type string

const (
	TypeSingle   Type = "single"
	TypeMultiple Type = "multiple"
	TypeText     Type = "text"
)

// Valid reports whether t is one of the known question types.
func (t Type) Valid() bool {
	switch t {
	case TypeSingle, TypeMultiple, TypeText:
		return true
	}
	return false
}

// Kind tags which field of an Answer is set.
type Kind int

const (
	KindInt Kind = iota + 1
	KindIntSet
	KindText
)

// Answer is a submitted answer in canonical form.
// Exactly one of Int, Ints or Text is meaningful, selected by Kind.
type Answer struct {
	Kind Kind
	Int  int64
	Ints []int64
	Text string
}

func IntAnswer(i int64) Answer      { return Answer{Kind: KindInt, Int: i} }
func IntSetAnswer(v []int64) Answer { return Answer{Kind: KindIntSet, Ints: v} }
func TextAnswer(s string) Answer    { return Answer{Kind: KindText, Text: s} }

// Value returns the JSON-shaped value stored for the answer.
func (a Answer) Value() interface{} {
	switch a.Kind {
	case KindInt:
		return a.Int
	case KindIntSet:
		if a.Ints == nil {
			return []int64{}
		}
		return a.Ints
	default:
		return a.Text
	}
}

// MarshalJSON encodes the canonical value, not the tagged struct.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

// Normalize converts a raw submitted value into the canonical answer for
// question type t. Raw values may be native numbers, strings, JSON-encoded
// strings, or lists, as produced by encoding/json or passed by Go callers.
func Normalize(t Type, raw interface{}) (Answer, error) {
	switch t {
	case TypeSingle:
		i, err := normalizeSingle(raw)
		if err != nil {
			return Answer{}, err
		}
		return IntAnswer(i), nil
	case TypeMultiple:
		v, err := normalizeMultiple(raw)
		if err != nil {
			return Answer{}, err
		}
		return IntSetAnswer(v), nil
	case TypeText:
		return TextAnswer(stringify(raw)), nil
	default:
		return Answer{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswerFormat, t)
	}
}

func normalizeSingle(raw interface{}) (int64, error) {
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			switch d := decoded.(type) {
			case float64:
				return truncInt(d)
			case bool:
				return boolIndex(d), nil
			case string:
				if i, err := parseIntLoose(d); err == nil {
					return i, nil
				}
			}
		}
		return parseIntLoose(s)
	}
	if i, ok := toInt(raw); ok {
		return i, nil
	}
	if b, ok := raw.(bool); ok {
		return boolIndex(b), nil
	}
	return 0, fmt.Errorf("%w: expected an option index, got %T", ErrInvalidAnswerFormat, raw)
}

func normalizeMultiple(raw interface{}) ([]int64, error) {
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("%w: expected a JSON list of option indices", ErrInvalidAnswerFormat)
		}
		raw = decoded
	}
	switch v := raw.(type) {
	case []int64:
		return append([]int64{}, v...), nil
	case []int:
		out := make([]int64, len(v))
		for i, e := range v {
			out[i] = int64(e)
		}
		return out, nil
	case []string:
		out := make([]int64, len(v))
		for i, e := range v {
			n, err := parseIntLoose(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []interface{}:
		out := make([]int64, len(v))
		for i, e := range v {
			if s, ok := e.(string); ok {
				n, err := parseIntLoose(s)
				if err != nil {
					return nil, err
				}
				out[i] = n
				continue
			}
			if b, ok := e.(bool); ok {
				out[i] = boolIndex(b)
				continue
			}
			n, ok := toInt(e)
			if !ok {
				return nil, fmt.Errorf("%w: list element %d is %T, not an index", ErrInvalidAnswerFormat, i, e)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected a list of option indices, got %T", ErrInvalidAnswerFormat, raw)
}

// boolIndex maps true and false to option 1 and 0.
func boolIndex(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// toInt coerces native numeric values. Floats are truncated toward zero.
func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		i, err := truncInt(float64(n))
		return i, err == nil
	case float64:
		i, err := truncInt(n)
		return i, err == nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			i, err := truncInt(f)
			return i, err == nil
		}
	}
	return 0, false
}

func truncInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v is not an index", ErrInvalidAnswerFormat, f)
	}
	return int64(math.Trunc(f)), nil
}

func parseIntLoose(s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an index", ErrInvalidAnswerFormat, s)
	}
	return i, nil
}

// stringify renders any raw value the way a text answer is compared:
// null, booleans and containers print as None, True/False and ['a', 1].
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return t.String()
	}
	if i, ok := toInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = reprElem(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		vals := make(map[string]string, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := reprElem(k.Interface())
			keys = append(keys, ks)
			vals[ks] = reprElem(rv.MapIndex(k).Interface())
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + vals[k]
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// reprElem quotes strings inside containers; everything else prints as
// stringify does.
func reprElem(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return stringify(v)
	}
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
	}
	r := strings.NewReplacer(`\`, `\\`, "'", `\'`)
	return "'" + r.Replace(s) + "'"
}
