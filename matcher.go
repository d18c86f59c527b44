package complete

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PrefixMatcher decides whether a candidate text starts with the typed prefix.
type PrefixMatcher struct {
	prefix        string
	caseSensitive bool
}

// NewPrefixMatcher returns a matcher for prefix.
func NewPrefixMatcher(prefix string, caseSensitive bool) PrefixMatcher {
	return PrefixMatcher{prefix: prefix, caseSensitive: caseSensitive}
}

// Prefix returns the prefix the matcher filters by.
func (m PrefixMatcher) Prefix() string {
	return m.prefix
}

// CaseSensitive reports whether the matcher compares case exactly.
func (m PrefixMatcher) CaseSensitive() bool {
	return m.caseSensitive
}

// WithPrefix returns a matcher with the same case policy and a new prefix.
func (m PrefixMatcher) WithPrefix(prefix string) PrefixMatcher {
	return PrefixMatcher{prefix: prefix, caseSensitive: m.caseSensitive}
}

// Matches reports whether text is accepted by the matcher.
func (m PrefixMatcher) Matches(text string) bool {
	return Matches(text, m.prefix, m.caseSensitive)
}

// Matches reports whether candidate starts with prefix. Empty candidates never
// match; an empty prefix matches everything else.
func Matches(candidate, prefix string, caseSensitive bool) bool {
	if candidate == "" {
		return false
	}

	if caseSensitive {
		return strings.HasPrefix(candidate, prefix)
	}

	return hasPrefixFold(candidate, prefix)
}

// hasPrefixFold is strings.HasPrefix under simple Unicode case folding.
func hasPrefixFold(s, prefix string) bool {
	for prefix != "" {
		if s == "" {
			return false
		}

		pr, pn := utf8.DecodeRuneInString(prefix)
		sr, sn := utf8.DecodeRuneInString(s)

		if !equalFoldRune(sr, pr) {
			return false
		}

		prefix = prefix[pn:]
		s = s[sn:]
	}

	return true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}

	// SimpleFold iterates the orbit of equivalent runes.
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}

	return false
}
