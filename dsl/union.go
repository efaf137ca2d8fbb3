package dsl

import (
	"context"
	"sort"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

// UnionSchema is a discriminated union over object schemas: the string value
// of the discriminator field selects the variant that parses the value.
type UnionSchema struct {
	discriminator string
	variants      map[string]*ObjectSchema
	tags          []string
}

var _ versioner.Schema[map[string]any] = (*UnionSchema)(nil)

// Union returns a union keyed by the discriminator field. Add variants with
// Variant.
func Union(discriminator string) *UnionSchema {
	return &UnionSchema{discriminator: discriminator, variants: map[string]*ObjectSchema{}}
}

// Variant registers s for records whose discriminator equals tag. A repeated
// tag replaces the earlier variant.
func (u *UnionSchema) Variant(tag string, s *ObjectSchema) *UnionSchema {
	if _, exists := u.variants[tag]; !exists {
		u.tags = append(u.tags, tag)
		sort.Strings(u.tags)
	}
	u.variants[tag] = s
	return u
}

func (u *UnionSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalidType("expected object")
	}
	at := versioner.Root().Field(u.discriminator).Pointer()
	tag, _ := m[u.discriminator].(string)
	if tag == "" {
		return nil, versioner.Issues{{Path: at, Code: versioner.CodeRequired, Message: i18n.T(versioner.CodeRequired, nil), Hint: "discriminator missing"}}
	}
	s, ok := u.variants[tag]
	if !ok {
		return nil, versioner.Issues{{Path: at, Code: versioner.CodeInvalidEnum, Message: i18n.T(versioner.CodeInvalidEnum, nil), Hint: "unknown variant: '" + tag + "'", Params: map[string]any{"got": tag, "allowed": append([]string(nil), u.tags...)}}}
	}
	return s.Parse(ctx, m)
}

func (u *UnionSchema) Validate(ctx context.Context, v any) error {
	_, err := u.Parse(ctx, v)
	return err
}

// JSONSchema renders the variants as oneOf in tag order.
func (u *UnionSchema) JSONSchema() (*js.Schema, error) {
	out := &js.Schema{OneOf: make([]*js.Schema, 0, len(u.tags))}
	for _, tag := range u.tags {
		vs, err := u.variants[tag].JSONSchema()
		if err != nil {
			return nil, err
		}
		out.OneOf = append(out.OneOf, vs)
	}
	return out, nil
}

func (u *UnionSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[map[string]any](u) }
