package versioner

import (
	"encoding/json"
	"math"
	"reflect"

	"github.com/reoring/versioner/i18n"
)

// VersionField is the record field carrying the schema version.
const VersionField = "v"

// readVersion performs the minimal structural check that precedes any schema
// validation: data must be an object with a numeric "v". It returns a shallow
// copy of the record so callers may overwrite fields without touching input.
func readVersion(data any) (map[string]any, float64, error) {
	at := Root().Field(VersionField)
	rec, ok := data.(map[string]any)
	if !ok {
		return nil, 0, Issues{{Path: at.Pointer(), Code: CodeInvalidType, Message: i18n.T(CodeInvalidType, nil), Hint: "expected object"}}
	}
	raw, exists := rec[VersionField]
	if !exists {
		return nil, 0, Issues{{Path: at.Pointer(), Code: CodeRequired, Message: i18n.T(CodeRequired, nil), Hint: "version field missing"}}
	}
	n, ok := ToFloat64(raw)
	if !ok {
		return nil, 0, Issues{{Path: at.Pointer(), Code: CodeInvalidType, Message: i18n.T(CodeInvalidType, nil), Hint: "expected number"}}
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, n, nil
}

// asVersion reports whether n is an integral number usable as a version.
func asVersion(n float64) (int, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, false
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

// ToFloat64 converts any Go numeric kind or json.Number into float64.
// Strings and other kinds report false.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
