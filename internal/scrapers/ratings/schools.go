package ratings

import (
	"context"
	"strings"
	"time"

	"profrank-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

type School struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

func (s School) NodeID() string {
	return s.ID
}

type SchoolSearch struct {
	Name     string
	PageSize int
	MaxPages int
	Pacing   time.Duration
}

func (c *Client) SearchSchools(ctx context.Context, search SchoolSearch) ([]School, error) {
	ctx, span := tracer.Start(ctx, "SearchSchools")
	defer span.End()

	return Collect[School](ctx, c, PageRequest{
		Name:      schoolSearchQueryName,
		Query:     schoolSearchQuery,
		Variables: map[string]any{"text": search.Name},
		Path:      []string{"newSearch", "schools"},
		PageSize:  search.PageSize,
		MaxPages:  search.MaxPages,
		Pacing:    search.Pacing,
	})
}

// minSchoolSimilarity is the Jaro-Winkler similarity a school name needs
// to be chosen when neither an exact nor a substring match exists.
const minSchoolSimilarity = 0.92

// SelectSchool chooses the school matching `name` out of search results:
// the exact name (ignoring case and surrounding space), else the first name
// that contains it, else the most similar name above minSchoolSimilarity,
// else the first school. ok is false when there are no schools at all.
func SelectSchool(schools []School, name string) (school School, ok bool) {
	if len(schools) == 0 {
		return School{}, false
	}
	target := strings.ToLower(strings.TrimSpace(name))

	for _, s := range schools {
		if strings.ToLower(strings.TrimSpace(s.Name)) == target {
			return s, true
		}
	}
	for _, s := range schools {
		if strings.Contains(strings.ToLower(s.Name), target) {
			return s, true
		}
	}

	best := -1
	var bestSimilarity float64
	normalizedTarget := textutil.FoldSpace(name)
	for i, s := range schools {
		similarity := matchr.JaroWinkler(normalizedTarget, textutil.FoldSpace(s.Name), false)
		if similarity > bestSimilarity {
			best = i
			bestSimilarity = similarity
		}
	}
	if best >= 0 && bestSimilarity >= minSchoolSimilarity {
		return schools[best], true
	}

	return schools[0], true
}
