package course

import (
	"testing"

	"profrank-backend/internal/scrapers/ratings"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		expected Token
	}{
		{raw: "cis 375", expected: Token{DeptCode: "CIS", Number: "375"}},
		{raw: "CIS375", expected: Token{DeptCode: "CIS", Number: "375"}},
		{raw: "CIS-375", expected: Token{DeptCode: "CIS", Number: "375"}},
		{raw: "  cis - 375 ", expected: Token{DeptCode: "CIS", Number: "375"}},
		{raw: "bio 101l", expected: Token{DeptCode: "BIO", Number: "101L"}},
		{raw: "375", expected: Token{Number: "375"}},
		{raw: "Intro to CIS 375", expected: Token{DeptCode: "CIS", Number: "375"}},
		{raw: "course #375", expected: Token{Number: "375"}},
		{raw: "Data Structures", expected: Token{}},
		{raw: "", expected: Token{}},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, Normalize(c.raw), c.raw)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	expected := Normalize("cis 375")
	for _, raw := range []string{"CIS375", "CIS-375", "Cis 375"} {
		require.Equal(t, expected, Normalize(raw), raw)
	}
	require.Equal(t, expected, Normalize(expected.String()))
}

func TestWithDeptOverride(t *testing.T) {
	token := Normalize("375").WithDeptOverride(" cis ")
	require.Equal(t, Token{DeptCode: "CIS", Number: "375"}, token)

	token = Normalize("MATH 375").WithDeptOverride("cis")
	require.Equal(t, Token{DeptCode: "CIS", Number: "375"}, token)

	token = Normalize("MATH 375").WithDeptOverride("  ")
	require.Equal(t, Token{DeptCode: "MATH", Number: "375"}, token)
}

func review(comment string, classValues ...string) ratings.ReviewRecord {
	r := ratings.ReviewRecord{Comment: comment}
	for _, v := range classValues {
		r.ClassValues = append(r.ClassValues, ratings.FieldValue{Field: "class", Value: v})
	}
	return r
}

func TestMatcher(t *testing.T) {
	cases := []struct {
		name     string
		token    Token
		review   ratings.ReviewRecord
		expected bool
	}{
		{name: "dept and number", token: Token{"CIS", "375"}, review: review("Great CIS 375 class!"), expected: true},
		{name: "other number", token: Token{"CIS", "375"}, review: review("Took CIS 376 with him"), expected: false},
		{name: "joined", token: Token{"CIS", "375"}, review: review("cis375 was fine"), expected: true},
		{name: "dash", token: Token{"CIS", "375"}, review: review("CIS-375 was fine"), expected: true},
		{name: "class field", token: Token{"CIS", "375"}, review: review("fair grader", "CIS375"), expected: true},
		{name: "other class field", token: Token{"CIS", "375"}, review: review("fair grader", "CIS101"), expected: false},
		{name: "bare number", token: Token{"", "375"}, review: review("my 375 midterm"), expected: true},
		{name: "longer number", token: Token{"", "375"}, review: review("section 3750 only"), expected: false},
		{name: "bare number with dept", token: Token{"CIS", "375"}, review: review("", "375"), expected: true},
		{name: "permissive", token: Token{"CIS", "375"}, review: review("taught me 375 other things"), expected: true},
		{name: "other dept", token: Token{"CIS", "375"}, review: review("MATH375 was hard"), expected: false},
		{name: "no number", token: Token{"CIS", ""}, review: review("CIS is great, CIS 375"), expected: false},
		{name: "empty review", token: Token{"CIS", "375"}, review: ratings.ReviewRecord{}, expected: false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, NewMatcher(c.token).Matches(c.review))
		})
	}
}

func TestMatcherFilter(t *testing.T) {
	matcher := NewMatcher(Normalize("CIS375"))
	reviews := []ratings.ReviewRecord{
		{ID: "1", Comment: "CIS 101 was easy"},
		{ID: "2", Comment: "Great CIS 375 class!"},
		{ID: "3", ClassValues: []ratings.FieldValue{{Field: "course", Value: "CIS375"}}},
	}
	filtered := matcher.Filter(reviews)
	require.Len(t, filtered, 2)
	require.Equal(t, "2", filtered[0].ID)
	require.Equal(t, "3", filtered[1].ID)
	require.Equal(t, Token{DeptCode: "CIS", Number: "375"}, matcher.Token())
}
