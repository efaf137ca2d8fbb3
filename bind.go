package versioner

import (
	"context"

	json "github.com/goccy/go-json"
)

// Bind projects a normalized record onto struct type T using its json tags.
func Bind[T any](rec map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(rec)
	if err != nil {
		return out, Issues{{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err}}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, Issues{{Path: "/", Code: CodeInvalidType, Message: err.Error(), Hint: "record does not fit the target type", Cause: err}}
	}
	return out, nil
}

// UpgradeInto migrates data to the latest version and binds the result to T.
func UpgradeInto[T any](ctx context.Context, c *Chain, data any) (T, error) {
	rec, err := c.SafeUpgradeToLatest(ctx, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return Bind[T](rec)
}
