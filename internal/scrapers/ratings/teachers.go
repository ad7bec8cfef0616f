package ratings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"profrank-backend/lib/numutil"
	"profrank-backend/lib/textutil"
)

const (
	report_teachers_search   = "teachers.search"
	report_teachers_fallback = "teachers.fallback"
	report_teachers_coerce   = "teachers.coerce"
)

// Defaults applied to teacher statistics that are missing or not numeric.
const (
	DefaultAvgRating             = 0.0
	DefaultAvgDifficulty         = 3.0
	DefaultWouldTakeAgainPercent = 0.0
)

type TeacherCandidate struct {
	ID                    string
	FirstName             string
	LastName              string
	Department            string
	NumRatings            int
	AvgRating             float64
	AvgDifficulty         float64
	WouldTakeAgainPercent float64
}

func (t TeacherCandidate) Name() string {
	return strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
}

type rawTeacher struct {
	ID                    string          `json:"id"`
	FirstName             *string         `json:"firstName"`
	LastName              *string         `json:"lastName"`
	Department            *string         `json:"department"`
	NumRatings            json.RawMessage `json:"numRatings"`
	AvgRating             json.RawMessage `json:"avgRating"`
	AvgDifficulty         json.RawMessage `json:"avgDifficulty"`
	WouldTakeAgainPercent json.RawMessage `json:"wouldTakeAgainPercent"`
}

func (t rawTeacher) NodeID() string {
	return t.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toCandidate coerces the loosely typed statistics of a teacher, a
// negative value is the remote's way of saying "unknown" and is defaulted too.
func (c *Client) toCandidate(raw rawTeacher) TeacherCandidate {
	coerce := func(field string, value json.RawMessage, def float64) float64 {
		out, defaulted := numutil.CoerceRaw(value, def)
		if !defaulted && out < 0 {
			out, defaulted = def, true
		}
		if defaulted {
			c.tel.ReportDebug(report_teachers_coerce, raw.ID, field, string(value))
		}
		return out
	}

	numRatings := coerce("numRatings", raw.NumRatings, 0)
	return TeacherCandidate{
		ID:                    raw.ID,
		FirstName:             deref(raw.FirstName),
		LastName:              deref(raw.LastName),
		Department:            deref(raw.Department),
		NumRatings:            int(numRatings),
		AvgRating:             coerce("avgRating", raw.AvgRating, DefaultAvgRating),
		AvgDifficulty:         coerce("avgDifficulty", raw.AvgDifficulty, DefaultAvgDifficulty),
		WouldTakeAgainPercent: coerce("wouldTakeAgainPercent", raw.WouldTakeAgainPercent, DefaultWouldTakeAgainPercent),
	}
}

type TeacherSearch struct {
	SchoolID string
	// Department is passed as the free text of the search and used as the
	// local filter of the fallback.
	Department string
	PageSize   int
	MaxPages   int
	// FallbackMaxPages caps the walk over the whole teacher index of the
	// school, used when the filtered search fails or finds nothing.
	FallbackMaxPages int
	Pacing           time.Duration
}

func (c *Client) walkTeachers(ctx context.Context, search TeacherSearch, text string, maxPages int) ([]TeacherCandidate, error) {
	var out []TeacherCandidate
	err := Walk(ctx, c, PageRequest{
		Name:  teacherSearchQueryName,
		Query: teacherSearchQuery,
		Variables: map[string]any{
			"text":     text,
			"schoolID": search.SchoolID,
		},
		Path:     []string{"newSearch", "teachers"},
		PageSize: search.PageSize,
		MaxPages: maxPages,
		Pacing:   search.Pacing,
	}, func(raw rawTeacher) error {
		out = append(out, c.toCandidate(raw))
		return nil
	})
	return out, err
}

// SearchTeachers returns the teachers of a school whose department contains
// search.Department. The remote's text search is tried first, when it
// errors or finds nobody every teacher of the school is paged through and
// filtered locally.
func (c *Client) SearchTeachers(ctx context.Context, search TeacherSearch) ([]TeacherCandidate, error) {
	ctx, span := tracer.Start(ctx, "SearchTeachers")
	defer span.End()

	candidates, err := c.walkTeachers(ctx, search, search.Department, search.MaxPages)
	if err != nil {
		c.tel.ReportWarning(report_teachers_search, err, search.SchoolID, search.Department)
	}
	if err == nil && len(candidates) > 0 {
		return candidates, nil
	}

	c.tel.ReportDebug(report_teachers_fallback, search.SchoolID, search.Department)
	maxPages := search.FallbackMaxPages
	if maxPages <= 0 {
		maxPages = search.MaxPages
	}
	all, err := c.walkTeachers(ctx, search, "", maxPages)

	var filtered []TeacherCandidate
	for _, t := range all {
		if textutil.ContainsFold(t.Department, search.Department) {
			filtered = append(filtered, t)
		}
	}
	return filtered, err
}
