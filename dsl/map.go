package dsl

import (
	"context"
	"sort"

	versioner "github.com/reoring/versioner"
	js "github.com/reoring/versioner/jsonschema"
)

// MapSchema validates JSON objects with arbitrary keys whose values all match
// one schema. Values are normalized by that schema.
type MapSchema struct {
	val AnyAdapter
}

var _ versioner.Schema[map[string]any] = (*MapSchema)(nil)

// Map returns a schema for string-keyed objects validated value by value.
func Map(val Adaptable) *MapSchema { return &MapSchema{val: val.Adapter()} }

// MapAny accepts any object and keeps its values untouched.
func MapAny() *MapSchema { return Map(Any()) }

func (m *MapSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, invalidType("expected object")
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(src))
	var iss versioner.Issues
	for _, k := range keys {
		parsed, err := m.val.parse(ctx, src[k])
		if err != nil {
			iss = versioner.AppendIssues(iss, versioner.Rebase(versioner.Root().Field(k).Pointer(), issuesFromErr("/", err))...)
			if versioner.IsFailFast(ctx) {
				return nil, iss
			}
			continue
		}
		out[k] = parsed
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

func (m *MapSchema) Validate(ctx context.Context, v any) error {
	_, err := m.Parse(ctx, v)
	return err
}

func (m *MapSchema) JSONSchema() (*js.Schema, error) {
	var additional any = true
	if m.val.jsonSchema != nil {
		s, err := m.val.jsonSchema()
		if err != nil {
			return nil, err
		}
		if s != nil {
			additional = s
		}
	}
	return &js.Schema{Type: "object", AdditionalProperties: additional}, nil
}

func (m *MapSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[map[string]any](m) }
