package versioner

import (
	"context"
	"reflect"

	js "github.com/reoring/versioner/jsonschema"
)

// Schema is the validator capability consumed by the chain.
type Schema[T any] interface {
	// Parse validates an unknown input and returns the normalized value. It
	// returns Issues when validation fails.
	Parse(ctx context.Context, v any) (T, error)

	// Validate reports whether v conforms without producing a value.
	Validate(ctx context.Context, v any) error

	// JSONSchema projects the schema into a JSON Schema representation.
	JSONSchema() (*js.Schema, error)
}

// Versioned is a record schema that declares its own version literal in the
// "v" field. It is the unit registered on a Chain.
type Versioned interface {
	Schema[map[string]any]
	// VersionLiteral returns the integer literal declared for "v", or false
	// when the schema does not pin the version to a single integer.
	VersionLiteral() (int, bool)
}

// Is returns true if v conforms to the schema s.
func Is[T any](ctx context.Context, s Schema[T], v any) bool {
	_, err := s.Parse(ctx, v)
	return err == nil
}

// sameSchema compares schemas by identity. Dynamic types that are not
// comparable are never considered the same.
func sameSchema(a, b Versioned) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// ---- Parse-time context options (exported for subpackages) ----

type contextKey int

const (
	_ctxKeyFailFast contextKey = iota
)

// WithFailFast returns a child context that marks fail-fast parsing behavior.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether the current parse should stop on the first issue.
func IsFailFast(ctx context.Context) bool {
	v := ctx.Value(_ctxKeyFailFast)
	b, _ := v.(bool)
	return b
}
