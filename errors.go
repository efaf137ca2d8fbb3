package versioner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/versioner/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeInvalidValue  = "invalid_value"
	CodeUnknownKey    = "unknown_key"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeParseError    = "parse_error"
	CodeCustom        = "custom"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected shapes, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"supported": []int{1, 2}})
	// for i18n and observability.
	Params map[string]any
}

// Segments decodes the JSON Pointer into its reference tokens. The root
// pointer yields an empty slice.
func (it Issue) Segments() []string { return ParsePointer(it.Path) }

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /v
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Rebase prefixes every issue path with base. Child issues reported at the
// root ("/" or "") are attributed to base itself.
func Rebase(base string, iss Issues) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case p[0] == '/':
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out = append(out, it)
	}
	return out
}

var (
	// ErrNoVersions is returned by migration entry points on a chain without
	// any registered version.
	ErrNoVersions = errors.New("versioner: no versions registered")
	// ErrUnknownTargetVersion matches *UnknownTargetError via errors.Is.
	ErrUnknownTargetVersion = errors.New("versioner: target version is not registered")
	// ErrDuplicateVersion matches *RegistrationError for a repeated version number or schema.
	ErrDuplicateVersion = errors.New("versioner: version or schema already registered")
)

// UnknownTargetError reports a partial migration towards a version that was
// never registered. It is not an Issues value: it describes the caller's
// argument, not the data.
type UnknownTargetError struct {
	Target     int
	Registered []int
}

func (e *UnknownTargetError) Error() string {
	return i18n.T(i18n.KeyUnknownTarget, map[string]string{"target": strconv.Itoa(e.Target), "supported": joinInts(e.Registered)})
}

func (e *UnknownTargetError) Is(target error) bool { return target == ErrUnknownTargetVersion }

// RegistrationError describes a rejected Register call.
type RegistrationError struct {
	Version  int
	Conflict bool // a handler with the same version or schema exists
	Existing int  // version of the conflicting handler when Conflict is set
	Reason   string
}

func (e *RegistrationError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("version registration error: version %d or schema is already registered. Existing version: %d", e.Version, e.Existing)
	}
	return "version registration error: " + e.Reason
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrDuplicateVersion && e.Conflict
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
