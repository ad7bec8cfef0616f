package course

import (
	"fmt"
	"regexp"

	"profrank-backend/internal/scrapers/ratings"
)

// Matcher decides whether a review is about a course. It is deliberately
// permissive: a bare course number anywhere in a review is enough, so
// "taught me 375 other things" matches course 375.
//
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	token    Token
	patterns []*regexp.Regexp
}

func NewMatcher(token Token) *Matcher {
	m := &Matcher{token: token}
	if token.Number == "" {
		return m
	}
	number := regexp.QuoteMeta(token.Number)
	if token.DeptCode != "" {
		m.patterns = append(m.patterns, regexp.MustCompile(
			fmt.Sprintf(`(?i)\b%s\s*-?\s*%s\b`, regexp.QuoteMeta(token.DeptCode), number),
		))
	}
	m.patterns = append(m.patterns, regexp.MustCompile(fmt.Sprintf(`(?i)\b%s\b`, number)))
	return m
}

func (m *Matcher) Token() Token {
	return m.token
}

// MatchesText reports whether any of the texts mention the course.
func (m *Matcher) MatchesText(texts ...string) bool {
	for _, text := range texts {
		for _, p := range m.patterns {
			if p.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// Matches looks for the course in the comment and every populated
// class-like field of the review.
func (m *Matcher) Matches(review ratings.ReviewRecord) bool {
	return m.MatchesText(review.MatchableText()...)
}

// Filter returns the reviews that match, in their original order.
func (m *Matcher) Filter(reviews []ratings.ReviewRecord) []ratings.ReviewRecord {
	var out []ratings.ReviewRecord
	for _, r := range reviews {
		if m.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
