package dsl

import (
	"context"
	"math"
	"sort"

	versioner "github.com/reoring/versioner"
	"github.com/reoring/versioner/i18n"
	js "github.com/reoring/versioner/jsonschema"
)

// keyPolicy selects what Parse does with keys an object does not declare.
type keyPolicy int

const (
	rejectUnknown keyPolicy = iota // unknown_key issue per undeclared key
	stripUnknown                   // drop undeclared keys
	keepUnknown                    // copy undeclared keys unvalidated
)

// ObjectSchema validates map[string]any records. Built by Object().
type ObjectSchema struct {
	fields        map[string]AnyAdapter
	required      map[string]struct{}
	unknownPolicy keyPolicy
	refines       []objRefine
	title         string
	sortedKeys    []string
}

// Ensure ObjectSchema can be registered on a versioner.Chain.
var _ versioner.Versioned = (*ObjectSchema)(nil)

type objRefine struct {
	name string
	fn   func(context.Context, map[string]any) error
}

// VersionLiteral reports the integer literal declared for "v".
func (o *ObjectSchema) VersionLiteral() (int, bool) {
	ad, ok := o.fields[versioner.VersionField]
	if !ok {
		return 0, false
	}
	lit, ok := ad.Literal()
	if !ok {
		return 0, false
	}
	f, ok := versioner.ToFloat64(lit)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Keys returns the declared field names in sorted order.
func (o *ObjectSchema) Keys() []string { return append([]string(nil), o.sortedKeys...) }

// issuesFromErr converts an error into Issues, wrapping non-Issues with CodeParseError.
func issuesFromErr(path string, err error) versioner.Issues {
	if err == nil {
		return nil
	}
	if i2, ok := versioner.AsIssues(err); ok {
		return i2
	}
	return versioner.Issues{versioner.Issue{Path: path, Code: versioner.CodeParseError, Message: err.Error(), Cause: err}}
}

// collectKnown parses known fields and applies defaults, in sorted key order.
func (o *ObjectSchema) collectKnown(ctx context.Context, src map[string]any) (map[string]any, versioner.Issues) {
	out := make(map[string]any, len(src))
	var iss versioner.Issues
	for _, k := range o.sortedKeys {
		ad := o.fields[k]
		base := versioner.Root().Field(k).Pointer()
		if val, exists := src[k]; exists {
			parsed, err := ad.parse(ctx, val)
			if err != nil {
				// If child returned Issues, rebase them under "/field"
				iss = versioner.AppendIssues(iss, versioner.Rebase(base, issuesFromErr("/", err))...)
				if versioner.IsFailFast(ctx) {
					return out, iss
				}
				continue
			}
			out[k] = parsed
			continue
		}
		// missing: apply default if provided; otherwise enforce required
		if ad.applyDefault != nil {
			dv, err := ad.applyDefault(ctx)
			if err != nil {
				iss = versioner.AppendIssues(iss, versioner.Rebase(base, issuesFromErr("/", err))...)
			} else {
				out[k] = dv
			}
			continue
		}
		if _, req := o.required[k]; req {
			iss = versioner.AppendIssues(iss, versioner.Issue{Path: base, Code: versioner.CodeRequired, Message: i18n.T(versioner.CodeRequired, nil), Hint: "required property missing"})
			if versioner.IsFailFast(ctx) {
				return out, iss
			}
		}
	}
	return out, iss
}

// collectUnknown processes unknown keys according to unknownPolicy and may write into out for passthrough.
func (o *ObjectSchema) collectUnknown(src map[string]any, out map[string]any) versioner.Issues {
	var iss versioner.Issues
	// unknown keys in key-sorted order
	uks := make([]string, 0, len(src))
	for k := range src {
		if _, known := o.fields[k]; !known {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	for _, k := range uks {
		switch o.unknownPolicy {
		case rejectUnknown:
			iss = versioner.AppendIssues(iss, versioner.Issue{Path: versioner.Root().Field(k).Pointer(), Code: versioner.CodeUnknownKey, Message: i18n.T(versioner.CodeUnknownKey, nil)})
		case stripUnknown:
			// drop
		case keepUnknown:
			out[k] = src[k]
		}
	}
	return iss
}

// Parse validates v and returns a new normalized map. The input is never
// modified.
func (o *ObjectSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, invalidType("expected object")
	}
	out, iss := o.collectKnown(ctx, src)
	if versioner.IsFailFast(ctx) && len(iss) > 0 {
		return nil, iss
	}
	if issUnknown := o.collectUnknown(src, out); len(issUnknown) > 0 {
		iss = versioner.AppendIssues(iss, issUnknown...)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if err := o.refine(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *ObjectSchema) Validate(ctx context.Context, v any) error {
	_, err := o.Parse(ctx, v)
	return err
}

func (o *ObjectSchema) JSONSchema() (*js.Schema, error) {
	props := make(map[string]*js.Schema, len(o.fields))
	for k, ad := range o.fields {
		if ad.jsonSchema != nil {
			ps, err := ad.jsonSchema()
			if err != nil {
				return nil, err
			}
			if ps != nil {
				props[k] = ps
				continue
			}
		}
		props[k] = &js.Schema{}
	}
	// Required list (sorted for deterministic output)
	req := make([]string, 0, len(o.required))
	for k := range o.required {
		req = append(req, k)
	}
	sort.Strings(req)
	var additional any
	switch o.unknownPolicy {
	case rejectUnknown:
		additional = false
	case stripUnknown, keepUnknown:
		// Runtime accepts unknown keys, so JSON Schema marks them as accepted.
		additional = true
	}
	return &js.Schema{Title: o.title, Type: "object", Properties: props, Required: req, AdditionalProperties: additional}, nil
}

func (o *ObjectSchema) Adapter() AnyAdapter { return anyAdapterFromSchema[map[string]any](o) }

func (o *ObjectSchema) refine(ctx context.Context, v map[string]any) error {
	if len(o.refines) == 0 {
		return nil
	}
	var iss versioner.Issues
	for _, r := range o.refines {
		if err := r.fn(ctx, v); err != nil {
			if i2, ok := versioner.AsIssues(err); ok {
				iss = versioner.AppendIssues(iss, i2...)
			} else {
				iss = versioner.AppendIssues(iss, versioner.Issue{Path: "/", Code: versioner.CodeCustom, Message: err.Error(), Cause: err, Params: map[string]any{"rule": r.name}})
			}
			if versioner.IsFailFast(ctx) {
				return iss
			}
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}
