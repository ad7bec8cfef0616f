package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// FoldSpace lowercases a string and collapses runs of whitespace into a
// single space.
func FoldSpace(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// ContainsFold reports whether `substr` is within `s`, ignoring case and
// differences in whitespace.
func ContainsFold(s, substr string) bool {
	return strings.Contains(FoldSpace(s), FoldSpace(substr))
}

// Dedupe removes empty and repeated strings while keeping the order in which
// they were first seen.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
