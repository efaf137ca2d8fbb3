package dsl

import (
	"context"

	versioner "github.com/reoring/versioner"
	js "github.com/reoring/versioner/jsonschema"
)

// Adaptable is implemented by every dsl schema and by AnyAdapter itself, so
// any of them can be passed to Field, Array and Nullable.
type Adaptable interface {
	Adapter() AnyAdapter
}

// AnyAdapter adapts Schema[T] to an any-typed DSL wrapper.
// It keeps the original schema to support default application, literal
// inspection and JSON Schema augmentation.
type AnyAdapter struct {
	parse        func(context.Context, any) (any, error)
	applyDefault func(context.Context) (any, error)
	jsonSchema   func() (*js.Schema, error)
	literal      any
	hasLiteral   bool
	orig         any
}

// Adapter returns ad itself.
func (ad AnyAdapter) Adapter() AnyAdapter { return ad }

// Orig returns the original underlying schema used to create this adapter.
func (ad AnyAdapter) Orig() any { return ad.orig }

// Literal reports the constant this adapter accepts, if any.
func (ad AnyAdapter) Literal() (any, bool) { return ad.literal, ad.hasLiteral }

// anyAdapterFromSchema wraps a strongly typed Schema[T] as AnyAdapter for Field builders.
func anyAdapterFromSchema[T any](s versioner.Schema[T]) AnyAdapter {
	return AnyAdapter{
		parse:      func(ctx context.Context, v any) (any, error) { return s.Parse(ctx, v) },
		jsonSchema: s.JSONSchema,
		orig:       s,
	}
}

// SchemaOf adapts an arbitrary Schema[T] (including ones defined outside this
// package) for use in Field.
func SchemaOf[T any](s versioner.Schema[T]) AnyAdapter { return anyAdapterFromSchema[T](s) }

// Nullable wraps a schema to accept nulls. When the input value is nil,
// parsing succeeds and returns nil.
func Nullable(s Adaptable) AnyAdapter {
	ad := s.Adapter()
	prevParse := ad.parse
	prevJSON := ad.jsonSchema
	out := ad
	out.hasLiteral = false
	out.parse = func(ctx context.Context, v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		if prevParse == nil {
			return v, nil
		}
		return prevParse(ctx, v)
	}
	out.jsonSchema = func() (*js.Schema, error) {
		if prevJSON == nil {
			return &js.Schema{}, nil
		}
		inner, err := prevJSON()
		if err != nil {
			return nil, err
		}
		return &js.Schema{OneOf: []*js.Schema{inner, {Type: "null"}}}, nil
	}
	return out
}

// Any accepts every value unchanged.
func Any() AnyAdapter {
	return AnyAdapter{
		parse:      func(_ context.Context, v any) (any, error) { return v, nil },
		jsonSchema: func() (*js.Schema, error) { return &js.Schema{}, nil },
	}
}
