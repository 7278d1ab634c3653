package tree

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Separator joins path segments.
const Separator = "/"

// RootPath returns the path of a root node named name.
func RootPath(name string) string {
	return Separator + name
}

// JoinPath returns the path of a child named name under parentPath.
func JoinPath(parentPath, name string) string {
	return parentPath + Separator + name
}

// NormalizeName returns name in Unicode NFC, so that visually identical
// names map to the same path.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// CleanPath normalizes an externally supplied path: NFC, a single leading
// separator, no trailing separator. An empty or all-separator input yields "".
func CleanPath(path string) string {
	path = strings.Trim(norm.NFC.String(path), Separator)
	if path == "" {
		return ""
	}
	return Separator + path
}

// ValidateName checks that name can be used as a path segment.
func ValidateName(name string) error {
	if name == "" {
		return NewInvalidInputError("name is required")
	}
	if strings.Contains(name, Separator) {
		return NewInvalidInputError("name %q must not contain %q", name, Separator)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return NewInvalidInputError("name %q must not contain control characters", name)
	}
	return nil
}

// ValidateKey checks a property key.
func ValidateKey(key string) error {
	if key == "" {
		return NewInvalidInputError("key is required")
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return NewInvalidInputError("key %q must not contain control characters", key)
	}
	return nil
}

// ValidateValue rejects NaN and infinities, which neither JSON nor SQLite REAL
// columns can represent.
func ValidateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewInvalidInputError("value %v is not a finite number", v)
	}
	return nil
}
