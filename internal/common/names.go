package common

import "strings"

// CanonicalName normalizes a crate name the way the Cargo client does:
// lower-cased, with hyphens replaced by underscores. Uniqueness checks are
// performed on the canonical form.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
