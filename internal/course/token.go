package course

import (
	"regexp"
	"strings"
)

// Token is a course identifier split into its department code and number,
// ex. `CIS 375` -> {CIS, 375}.
type Token struct {
	// DeptCode is upper-case, empty when unknown.
	DeptCode string
	// Number may carry a letter suffix, ex. `101L`. An empty Number never
	// matches anything.
	Number string
}

func (t Token) String() string {
	if t.DeptCode == "" {
		return t.Number
	}
	return t.DeptCode + " " + t.Number
}

var (
	codeNumberRegex = regexp.MustCompile(`^([A-Za-z]{1,6})\s*[-_.]?\s*(\d{2,4}[A-Za-z]?)$`)
	bareNumberRegex = regexp.MustCompile(`^(\d{2,4}[A-Za-z]?)$`)
	embeddedRegex   = regexp.MustCompile(`\b([A-Za-z]{1,6})\s*-?\s*(\d{2,4}[A-Za-z]?)\b`)
	anyNumberRegex  = regexp.MustCompile(`\b\d{2,4}[A-Za-z]?\b`)
)

// Normalize parses a free-form course string. `cis 375`, `CIS375` and
// `CIS-375` all yield {CIS, 375}. Strings that are not shaped like a
// course fall back to the first code and number found within them, then to
// the first number alone.
func Normalize(raw string) Token {
	s := strings.TrimSpace(raw)

	if match := codeNumberRegex.FindStringSubmatch(s); match != nil {
		return Token{
			DeptCode: strings.ToUpper(match[1]),
			Number:   strings.ToUpper(match[2]),
		}
	}
	if match := bareNumberRegex.FindStringSubmatch(s); match != nil {
		return Token{Number: strings.ToUpper(match[1])}
	}

	if match := embeddedRegex.FindStringSubmatch(s); match != nil {
		return Token{
			DeptCode: strings.ToUpper(match[1]),
			Number:   strings.ToUpper(match[2]),
		}
	}
	if number := anyNumberRegex.FindString(s); number != "" {
		return Token{Number: strings.ToUpper(number)}
	}
	return Token{}
}

// WithDeptOverride replaces the department code if override is not blank.
func (t Token) WithDeptOverride(override string) Token {
	override = strings.TrimSpace(override)
	if override == "" {
		return t
	}
	t.DeptCode = strings.ToUpper(override)
	return t
}
