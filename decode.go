package versioner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/versioner/i18n"
)

// DecodeJSON decodes a JSON document into an untyped value suitable for the
// Chain. Numbers are kept as json.Number. Malformed input yields a parse_error
// issue.
func DecodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, parseIssue(err)
	}
	// reject trailing documents
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, parseIssue(err)
	}
	return v, nil
}

// DecodeYAML decodes a single YAML document into an untyped value. Mapping
// keys are normalized to strings; non-string keys are dropped.
func DecodeYAML(b []byte) (any, error) {
	var node any
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, parseIssue(err)
	}
	return yamlNormalizeValue(node), nil
}

// EncodeJSON renders a record as JSON with keys in sorted order.
func EncodeJSON(rec map[string]any) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("versioner: encode record: %w", err)
	}
	return b, nil
}

// UpgradeJSON decodes a JSON record and migrates it to the latest version.
func (c *Chain) UpgradeJSON(ctx context.Context, b []byte) (map[string]any, error) {
	v, err := DecodeJSON(b)
	if err != nil {
		return nil, err
	}
	return c.SafeUpgradeToLatest(ctx, v)
}

// UpgradeYAML decodes a YAML record and migrates it to the latest version.
func (c *Chain) UpgradeYAML(ctx context.Context, b []byte) (map[string]any, error) {
	v, err := DecodeYAML(b)
	if err != nil {
		return nil, err
	}
	return c.SafeUpgradeToLatest(ctx, v)
}

func parseIssue(err error) Issues {
	return Issues{{Path: "/", Code: CodeParseError, Message: i18n.T(CodeParseError, nil), Hint: err.Error(), Cause: err}}
}

func yamlNormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = yamlNormalizeValue(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalizeValue(t[i])
		}
		return arr
	default:
		return v
	}
}
