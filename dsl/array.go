package dsl

import (
	"context"
	"reflect"
	"strconv"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

// ArraySchema validates every element with the element schema and enforces
// optional length bounds. Elements are normalized by the element schema.
type ArraySchema struct {
	elem   AnyAdapter
	minLen int
	maxLen int
}

var _ versioner.Schema[[]any] = (*ArraySchema)(nil)

// Array returns an array schema with the given element schema.
func Array(elem Adaptable) *ArraySchema {
	return &ArraySchema{elem: elem.Adapter(), minLen: -1, maxLen: -1}
}

// Min sets the minimum length.
func (a *ArraySchema) Min(n int) *ArraySchema { a.minLen = n; return a }

// Max sets the maximum length.
func (a *ArraySchema) Max(n int) *ArraySchema { a.maxLen = n; return a }

func (a *ArraySchema) Parse(ctx context.Context, v any) ([]any, error) {
	items, ok := toSlice(v)
	if !ok {
		return nil, invalidType("expected array")
	}
	if a.minLen >= 0 && len(items) < a.minLen {
		return nil, versioner.Issues{{Path: "/", Code: versioner.CodeTooShort, Message: i18n.T(versioner.CodeTooShort, nil), Params: map[string]any{"min": a.minLen, "got": len(items)}}}
	}
	if a.maxLen >= 0 && len(items) > a.maxLen {
		return nil, versioner.Issues{{Path: "/", Code: versioner.CodeTooLong, Message: i18n.T(versioner.CodeTooLong, nil), Params: map[string]any{"max": a.maxLen, "got": len(items)}}}
	}
	out := make([]any, 0, len(items))
	var iss versioner.Issues
	for i, it := range items {
		parsed, err := a.elem.parse(ctx, it)
		if err != nil {
			iss = versioner.AppendIssues(iss, versioner.Rebase("/"+strconv.Itoa(i), issuesFromErr("/", err))...)
			if versioner.IsFailFast(ctx) {
				return nil, iss
			}
			continue
		}
		out = append(out, parsed)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

func (a *ArraySchema) Validate(ctx context.Context, v any) error {
	_, err := a.Parse(ctx, v)
	return err
}

func (a *ArraySchema) JSONSchema() (*js.Schema, error) {
	out := &js.Schema{Type: "array"}
	if a.elem.jsonSchema != nil {
		items, err := a.elem.jsonSchema()
		if err != nil {
			return nil, err
		}
		out.Items = items
	}
	if a.minLen >= 0 {
		n := a.minLen
		out.MinItems = &n
	}
	if a.maxLen >= 0 {
		n := a.maxLen
		out.MaxItems = &n
	}
	return out, nil
}

func (a *ArraySchema) Adapter() AnyAdapter { return anyAdapterFromSchema[[]any](a) }

// toSlice accepts []any as well as typed slices produced by Go callers.
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
