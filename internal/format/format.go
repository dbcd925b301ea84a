// Shared text helpers for the preview and broadcast renderers.
// Both sides must agree on what counts as a real value, so the
// predicate lives here and nowhere else.

package format

import "strings"

// HasValue reports whether s carries a meaningful value. The upstream
// extraction service fills unknown fields with "N/A", so the sentinel is
// treated as absent, case-insensitively.
func HasValue(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	return !strings.EqualFold(trimmed, "n/a")
}

// Truncate cuts s to at most max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
