package dsl

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

func invalidType(hint string) versioner.Issues {
	return versioner.Issues{{Path: "/", Code: versioner.CodeInvalidType, Message: i18n.T(versioner.CodeInvalidType, nil), Hint: hint}}
}

func rootIssue(code string, params map[string]any) versioner.Issues {
	return versioner.Issues{versioner.IssueAt(versioner.Root(), code, i18n.T(code, nil), params)}
}

// ---- string ----

// StringSchema validates strings with optional rune-length bounds.
type StringSchema struct {
	minLen int
	maxLen int
}

var _ versioner.Schema[string] = (*StringSchema)(nil)

// String returns a string schema without length constraints.
func String() *StringSchema { return &StringSchema{minLen: -1, maxLen: -1} }

// Min sets the minimum length in runes.
func (s *StringSchema) Min(n int) *StringSchema { s.minLen = n; return s }

// Max sets the maximum length in runes.
func (s *StringSchema) Max(n int) *StringSchema { s.maxLen = n; return s }

func (s *StringSchema) Parse(ctx context.Context, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", invalidType("expected string")
	}
	n := utf8.RuneCountInString(str)
	if s.minLen >= 0 && n < s.minLen {
		return "", rootIssue(versioner.CodeTooShort, map[string]any{"min": s.minLen, "got": n})
	}
	if s.maxLen >= 0 && n > s.maxLen {
		return "", rootIssue(versioner.CodeTooLong, map[string]any{"max": s.maxLen, "got": n})
	}
	return str, nil
}

func (s *StringSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (s *StringSchema) JSONSchema() (*js.Schema, error) {
	out := &js.Schema{Type: "string"}
	if s.minLen >= 0 {
		n := s.minLen
		out.MinLength = &n
	}
	if s.maxLen >= 0 {
		n := s.maxLen
		out.MaxLength = &n
	}
	return out, nil
}

func (s *StringSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[string](s) }

// ---- bool ----

// BoolSchema validates booleans.
type BoolSchema struct{}

// Bool returns the bool schema.
func Bool() BoolSchema { return BoolSchema{} }

func (BoolSchema) Parse(ctx context.Context, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, invalidType("expected boolean")
	}
	return b, nil
}

func (s BoolSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (BoolSchema) JSONSchema() (*js.Schema, error) { return &js.Schema{Type: "boolean"}, nil }

func (s BoolSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[bool](s) }

// ---- number ----

// NumberSchema accepts any Go numeric kind or json.Number and normalizes to
// float64.
type NumberSchema struct {
	min *float64
	max *float64
}

var _ versioner.Schema[float64] = (*NumberSchema)(nil)

// Number returns a number schema without bounds.
func Number() *NumberSchema { return &NumberSchema{} }

// Min sets an inclusive lower bound.
func (s *NumberSchema) Min(n float64) *NumberSchema { s.min = &n; return s }

// Max sets an inclusive upper bound.
func (s *NumberSchema) Max(n float64) *NumberSchema { s.max = &n; return s }

func (s *NumberSchema) Parse(ctx context.Context, v any) (float64, error) {
	f, ok := versioner.ToFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidType("expected number")
	}
	if err := checkBounds(f, s.min, s.max); err != nil {
		return 0, err
	}
	return f, nil
}

func (s *NumberSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (s *NumberSchema) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "number", Minimum: s.min, Maximum: s.max}, nil
}

func (s *NumberSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[float64](s) }

// IntSchema accepts integral numbers and normalizes to int64.
type IntSchema struct {
	min *float64
	max *float64
}

var _ versioner.Schema[int64] = (*IntSchema)(nil)

// Int returns an integer schema without bounds.
func Int() *IntSchema { return &IntSchema{} }

// Min sets an inclusive lower bound.
func (s *IntSchema) Min(n int64) *IntSchema { f := float64(n); s.min = &f; return s }

// Max sets an inclusive upper bound.
func (s *IntSchema) Max(n int64) *IntSchema { f := float64(n); s.max = &f; return s }

func (s *IntSchema) Parse(ctx context.Context, v any) (int64, error) {
	f, ok := versioner.ToFloat64(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, invalidType("expected integer")
	}
	if err := checkBounds(f, s.min, s.max); err != nil {
		return 0, err
	}
	return int64(f), nil
}

func (s *IntSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (s *IntSchema) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "integer", Minimum: s.min, Maximum: s.max}, nil
}

func (s *IntSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[int64](s) }

func checkBounds(f float64, min, max *float64) error {
	if min != nil && f < *min {
		return rootIssue(versioner.CodeTooSmall, map[string]any{"min": *min, "got": f})
	}
	if max != nil && f > *max {
		return rootIssue(versioner.CodeTooBig, map[string]any{"max": *max, "got": f})
	}
	return nil
}

// ---- literal / enum ----

// LiteralSchema accepts exactly one value. Numeric literals compare by value
// across numeric kinds (1, int64(1), 1.0 and json.Number("1") all match 1) and
// parse to the declared literal itself.
type LiteralSchema struct {
	value any
}

var _ versioner.Schema[any] = LiteralSchema{}

// Literal returns a schema accepting only value.
func Literal(value any) LiteralSchema { return LiteralSchema{value: value} }

// Value returns the declared literal.
func (s LiteralSchema) Value() any { return s.value }

func (s LiteralSchema) Parse(ctx context.Context, v any) (any, error) {
	if want, ok := versioner.ToFloat64(s.value); ok {
		got, ok := versioner.ToFloat64(v)
		if !ok {
			return nil, invalidType("expected number")
		}
		if got != want {
			return nil, s.mismatch(v)
		}
		return s.value, nil
	}
	if v == nil || reflect.TypeOf(v) != reflect.TypeOf(s.value) {
		return nil, invalidType(fmt.Sprintf("expected %T", s.value))
	}
	if !reflect.DeepEqual(v, s.value) {
		return nil, s.mismatch(v)
	}
	return s.value, nil
}

func (s LiteralSchema) mismatch(got any) versioner.Issues {
	return versioner.Issues{{
		Path:    "/",
		Code:    versioner.CodeInvalidValue,
		Message: i18n.T(versioner.CodeInvalidValue, nil),
		Hint:    fmt.Sprintf("expected %v", s.value),
		Params:  map[string]any{"expected": s.value, "got": got},
	}}
}

func (s LiteralSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (s LiteralSchema) JSONSchema() (*js.Schema, error) { return &js.Schema{Const: s.value}, nil }

func (s LiteralSchema) Adapter() AnyAdapter {
	ad := anyAdapterFromSchema[any](s)
	ad.literal = s.value
	ad.hasLiteral = true
	return ad
}

// EnumSchema accepts one of a fixed set of strings.
type EnumSchema struct {
	values []string
}

// Enum returns a schema accepting only the given strings.
func Enum(values ...string) EnumSchema { return EnumSchema{values: append([]string(nil), values...)} }

func (s EnumSchema) Parse(ctx context.Context, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", invalidType("expected string")
	}
	for _, want := range s.values {
		if str == want {
			return str, nil
		}
	}
	return "", rootIssue(versioner.CodeInvalidEnum, map[string]any{"allowed": s.values, "got": str})
}

func (s EnumSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (s EnumSchema) JSONSchema() (*js.Schema, error) {
	enum := make([]any, len(s.values))
	for i, v := range s.values {
		enum[i] = v
	}
	return &js.Schema{Type: "string", Enum: enum}, nil
}

func (s EnumSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[string](s) }
