package fs

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeMatcher checks root-relative paths against a set of glob patterns.
// Matching is case-insensitive, `**` crosses path separators, dot-prefixed
// names are matchable like any other, and brace expansion is disabled.
// Patterns are matched against the '/'-normalized path relative to the scan
// root; the root itself is the path ".".
type ExcludeMatcher struct {
	patterns []string
}

// NewExcludeMatcher compiles the given patterns. Compilation is the only
// place patterns are validated; a bad pattern fails the whole set.
func NewExcludeMatcher(rawPatterns []string) (*ExcludeMatcher, error) {
	patterns := make([]string, 0, len(rawPatterns))
	for _, raw := range rawPatterns {
		p := compilePattern(raw)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", raw)
		}
		patterns = append(patterns, p)
		// "p/**" names a subtree; the directory itself goes with it, so the
		// walker can prune without descending.
		if trimmed, ok := strings.CutSuffix(p, "/**"); ok && trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return &ExcludeMatcher{patterns: patterns}, nil
}

// compilePattern normalizes one raw pattern: case-folded, and braces escaped
// so they match literally instead of expanding.
func compilePattern(raw string) string {
	p := strings.ToLower(raw)
	p = strings.ReplaceAll(p, "{", `\{`)
	p = strings.ReplaceAll(p, "}", `\}`)
	return p
}

// Excluded reports whether the given root-relative path matches any pattern.
// An empty pattern set never matches and returns without evaluating anything.
func (m *ExcludeMatcher) Excluded(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	candidate := strings.ToLower(relativePath)
	for _, p := range m.patterns {
		// Patterns are validated at compile time, so Match cannot fail here.
		matched, _ := doublestar.Match(p, candidate)
		if matched {
			return true
		}
	}
	return false
}
