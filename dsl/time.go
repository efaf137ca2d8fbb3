package dsl

import (
	"context"
	"time"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

// DateTimeSchema accepts RFC3339 timestamps. Values are normalized to UTC in
// RFC3339Nano form so records stay JSON-shaped and compare byte for byte.
type DateTimeSchema struct{}

var _ versioner.Schema[string] = DateTimeSchema{}

// DateTime returns the RFC3339 timestamp schema. time.Time values are
// accepted as well.
func DateTime() DateTimeSchema { return DateTimeSchema{} }

func (DateTimeSchema) Parse(ctx context.Context, v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return "", versioner.Issues{{Path: "/", Code: versioner.CodeInvalidFormat, Message: i18n.T(versioner.CodeInvalidFormat, nil), Hint: "expected RFC3339 timestamp", Cause: err}}
		}
		return ts.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", invalidType("expected string")
	}
}

func (s DateTimeSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (DateTimeSchema) JSONSchema() (*js.Schema, error) {
	return &js.Schema{Type: "string", Format: "date-time"}, nil
}

func (s DateTimeSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[string](s) }
