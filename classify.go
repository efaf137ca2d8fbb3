package versioner

// IsInvalidVersionType reports whether err carries an issue at "v" classified
// as a type mismatch: the record was not an object, or "v" was not numeric.
func IsInvalidVersionType(err error) bool { return hasVersionIssue(err, CodeInvalidType) }

// IsUnsupportedVersion reports whether err carries an issue at "v" classified
// as an invalid value: "v" was numeric but not among the reachable versions.
func IsUnsupportedVersion(err error) bool { return hasVersionIssue(err, CodeInvalidValue) }

// IsMissingVersion reports whether err carries a required issue at "v".
// It is disjoint from the two helpers above.
func IsMissingVersion(err error) bool { return hasVersionIssue(err, CodeRequired) }

func hasVersionIssue(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code != code {
			continue
		}
		if seg := it.Segments(); len(seg) > 0 && seg[0] == VersionField {
			return true
		}
	}
	return false
}
