// Package slug turns job titles into URL-safe identifiers. Operator input is
// frequently non-ASCII (accented company names, Vietnamese locations), so
// the generator transliterates before hyphenating.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 80

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Make builds a slug from the given parts: diacritics stripped, lowercased,
// non-alphanumerics collapsed to single hyphens, capped at 80 chars.
func Make(parts ...string) string {
	joined := strings.Join(parts, " ")
	if ascii, _, err := transform.String(stripDiacritics, joined); err == nil {
		joined = ascii
	}

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(joined) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	if s == "" {
		s = "job"
	}
	return s
}

// Checker reports whether a slug is already taken.
type Checker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// MakeUnique probes the base slug and numeric suffixes against the store
// until a free one is found. The first record keeps the bare slug.
func MakeUnique(ctx context.Context, checker Checker, parts ...string) (string, error) {
	base := Make(parts...)
	candidate := base
	for i := 2; ; i++ {
		taken, err := checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
