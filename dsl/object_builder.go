package dsl

import (
	"context"
	"sort"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

type objectBuilder struct {
	fields        map[string]AnyAdapter
	required      map[string]struct{}
	unknownPolicy keyPolicy
	refines       []objRefine
	title         string
	err           error
}

type fieldStep struct {
	b    *objectBuilder
	name string
}

// Object creates a new object builder with safe defaults (UnknownStrict).
func Object() *objectBuilder {
	return &objectBuilder{
		fields:        map[string]AnyAdapter{},
		required:      map[string]struct{}{},
		unknownPolicy: rejectUnknown,
	}
}

// Extend starts a builder holding a copy of base's fields, required set,
// unknown policy and refinements. Fields declared afterwards replace inherited
// ones with the same name, which is how a new version literal is set.
func Extend(base *ObjectSchema) *objectBuilder {
	b := Object()
	if base == nil {
		b.err = versioner.Issues{{Path: "/", Code: versioner.CodeParseError, Message: i18n.T(versioner.CodeParseError, nil), Hint: "Extend requires a built object schema"}}
		return b
	}
	for k, ad := range base.fields {
		b.fields[k] = ad
	}
	for k := range base.required {
		b.required[k] = struct{}{}
	}
	b.unknownPolicy = base.unknownPolicy
	b.refines = append(b.refines, base.refines...)
	return b
}

// Field registers a field with its schema. Fields are optional until marked
// Required.
func (b *objectBuilder) Field(name string, s Adaptable) *fieldStep {
	b.fields[name] = s.Adapter()
	return &fieldStep{b: b, name: name}
}

// Version declares the required "v" field as the integer literal n.
func (b *objectBuilder) Version(n int) *objectBuilder {
	return b.Field(versioner.VersionField, Literal(n)).Required()
}

// Title sets the JSON Schema title.
func (b *objectBuilder) Title(t string) *objectBuilder {
	b.title = t
	return b
}

// Omit removes fields (for example ones inherited through Extend).
func (b *objectBuilder) Omit(names ...string) *objectBuilder {
	for _, n := range names {
		delete(b.fields, n)
		delete(b.required, n)
	}
	return b
}

// Required marks the field as required and returns the builder.
func (f *fieldStep) Required() *objectBuilder {
	f.b.required[f.name] = struct{}{}
	return f.b
}

// Optional marks the field as optional (default) and returns the builder.
func (f *fieldStep) Optional() *objectBuilder {
	delete(f.b.required, f.name)
	return f.b
}

// Default sets a default for the current field, used when it is missing, and
// exports it to JSON Schema.
func (f *fieldStep) Default(v any) *objectBuilder {
	ad := f.b.fields[f.name]
	// Apply default by parsing via the field schema so it is normalized too
	ad.applyDefault = func(ctx context.Context) (any, error) { return ad.parse(ctx, v) }
	prev := ad.jsonSchema
	ad.jsonSchema = func() (*js.Schema, error) {
		if prev == nil {
			return &js.Schema{Default: v}, nil
		}
		s, err := prev()
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = &js.Schema{}
		}
		s.Default = v
		return s, nil
	}
	f.b.fields[f.name] = ad
	return f.b
}

func (f *fieldStep) Field(name string, s Adaptable) *fieldStep { return f.b.Field(name, s) }
func (f *fieldStep) Build() (*ObjectSchema, error)             { return f.b.Build() }
func (f *fieldStep) MustBuild() *ObjectSchema                  { return f.b.MustBuild() }

// Require marks one or more fields as required.
func (b *objectBuilder) Require(names ...string) *objectBuilder {
	for _, n := range names {
		b.required[n] = struct{}{}
	}
	return b
}

// UnknownStrict rejects keys that are not declared.
func (b *objectBuilder) UnknownStrict() *objectBuilder {
	b.unknownPolicy = rejectUnknown
	return b
}

// UnknownStrip drops keys that are not declared.
func (b *objectBuilder) UnknownStrip() *objectBuilder {
	b.unknownPolicy = stripUnknown
	return b
}

// UnknownPassthrough keeps undeclared keys unvalidated in the output.
func (b *objectBuilder) UnknownPassthrough() *objectBuilder {
	b.unknownPolicy = keepUnknown
	return b
}

// Refine adds an object-level check executed after all fields parsed.
func (b *objectBuilder) Refine(name string, fn func(context.Context, map[string]any) error) *objectBuilder {
	if fn == nil {
		return b
	}
	b.refines = append(b.refines, objRefine{name: name, fn: fn})
	return b
}

// Build validates the builder and returns the schema. Every call returns a
// distinct schema.
func (b *objectBuilder) Build() (*ObjectSchema, error) {
	if b.err != nil {
		return nil, b.err
	}
	for k := range b.required {
		if _, ok := b.fields[k]; !ok {
			return nil, versioner.Issues{{Path: versioner.Root().Field(k).Pointer(), Code: versioner.CodeParseError, Message: i18n.T(versioner.CodeParseError, nil), Hint: "required field has no schema"}}
		}
	}
	fields := make(map[string]AnyAdapter, len(b.fields))
	for k, ad := range b.fields {
		fields[k] = ad
	}
	required := make(map[string]struct{}, len(b.required))
	for k := range b.required {
		required[k] = struct{}{}
	}
	// cache sorted keys for deterministic order without per-parse sorting
	kfs := make([]string, 0, len(fields))
	for k := range fields {
		kfs = append(kfs, k)
	}
	sort.Strings(kfs)
	return &ObjectSchema{
		fields:        fields,
		required:      required,
		unknownPolicy: b.unknownPolicy,
		refines:       append([]objRefine(nil), b.refines...),
		title:         b.title,
		sortedKeys:    kfs,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *objectBuilder) MustBuild() *ObjectSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
