package ranking

import (
	"math"
	"slices"
	"strings"

	"profrank-backend/lib/numutil"
)

type InstructorSummary struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Department            string   `json:"department"`
	AvgRating             float64  `json:"avg_rating"`
	AvgDifficulty         float64  `json:"avg_difficulty"`
	WouldTakeAgainPercent float64  `json:"would_take_again_percent"`
	NumRatings            int      `json:"num_ratings"`
	Tags                  []string `json:"tags"`
	// LatestComments holds at most 3 comments, newest first.
	LatestComments []string `json:"latest_comments"`
	MatchedReviews int      `json:"matched_reviews"`
}

type ScoredInstructor struct {
	InstructorSummary
	BaseScore      float64 `json:"base_score"`
	MatchScore     float64 `json:"match_score"`
	CompositeScore float64 `json:"composite_score"`
}

// Weights are the constants of the ranking. A zero weight drops its
// signal, the zero Weights stands for DefaultWeights.
type Weights struct {
	Rating     float64 `json:"rating"`
	TakeAgain  float64 `json:"take_again"`
	Difficulty float64 `json:"difficulty"`
	// Alpha is the share of the composite score given to the base score,
	// the rest goes to the preference match score.
	Alpha float64 `json:"alpha"`
	// MatchDefault is the match score used when there are no preferences or
	// no comments to look for them in.
	MatchDefault float64 `json:"match_default"`
	// MatchStep is added to MatchDefault for every preference found.
	MatchStep    float64 `json:"match_step"`
	MatchFloor   float64 `json:"match_floor"`
	MatchCeiling float64 `json:"match_ceiling"`
}

func DefaultWeights() Weights {
	return Weights{
		Rating:       0.5,
		TakeAgain:    0.3,
		Difficulty:   0.2,
		Alpha:        0.65,
		MatchDefault: 0.35,
		MatchStep:    0.15,
		MatchFloor:   0.1,
		MatchCeiling: 0.9,
	}
}

func orDefault(value, def float64) float64 {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return def
	}
	return value
}

// WithDefaults replaces negative and non-finite weights by their default
// and clamps Alpha to [0, 1].
func (w Weights) WithDefaults() Weights {
	def := DefaultWeights()
	if w == (Weights{}) {
		return def
	}
	return Weights{
		Rating:       orDefault(w.Rating, def.Rating),
		TakeAgain:    orDefault(w.TakeAgain, def.TakeAgain),
		Difficulty:   orDefault(w.Difficulty, def.Difficulty),
		Alpha:        numutil.Clamp(orDefault(w.Alpha, def.Alpha), 0, 1),
		MatchDefault: orDefault(w.MatchDefault, def.MatchDefault),
		MatchStep:    orDefault(w.MatchStep, def.MatchStep),
		MatchFloor:   orDefault(w.MatchFloor, def.MatchFloor),
		MatchCeiling: orDefault(w.MatchCeiling, def.MatchCeiling),
	}
}

// WeightsConfig is how weights are configured, a weight that is not set
// keeps its default while an explicit 0 drops the signal.
type WeightsConfig struct {
	Rating       *float64 `json:"rating,omitempty"`
	TakeAgain    *float64 `json:"take_again,omitempty"`
	Difficulty   *float64 `json:"difficulty,omitempty"`
	Alpha        *float64 `json:"alpha,omitempty"`
	MatchDefault *float64 `json:"match_default,omitempty"`
	MatchStep    *float64 `json:"match_step,omitempty"`
	MatchFloor   *float64 `json:"match_floor,omitempty"`
	MatchCeiling *float64 `json:"match_ceiling,omitempty"`
}

func (c WeightsConfig) Weights() Weights {
	out := DefaultWeights()
	set := func(dst *float64, value *float64) {
		if value != nil {
			*dst = orDefault(*value, *dst)
		}
	}
	set(&out.Rating, c.Rating)
	set(&out.TakeAgain, c.TakeAgain)
	set(&out.Difficulty, c.Difficulty)
	set(&out.Alpha, c.Alpha)
	set(&out.MatchDefault, c.MatchDefault)
	set(&out.MatchStep, c.MatchStep)
	set(&out.MatchFloor, c.MatchFloor)
	set(&out.MatchCeiling, c.MatchCeiling)
	out.Alpha = numutil.Clamp(out.Alpha, 0, 1)
	return out
}

// Defaults of instructor statistics that are missing or not finite.
const (
	DefaultRating     = 0.0
	DefaultTakeAgain  = 0.0
	DefaultDifficulty = 3.0
)

func normalized(value, def, upper float64) float64 {
	value, _ = numutil.Coerce(value, def)
	return numutil.Clamp(value, 0, upper)
}

// BaseScore weighs the numeric statistics of an instructor, a higher
// rating and take again percentage raise it, a higher difficulty lowers it.
func (w Weights) BaseScore(s InstructorSummary) float64 {
	rating := normalized(s.AvgRating, DefaultRating, 5)
	takeAgain := normalized(s.WouldTakeAgainPercent, DefaultTakeAgain, 100)
	difficulty := normalized(s.AvgDifficulty, DefaultDifficulty, 5)

	return w.Rating*rating/5 +
		w.TakeAgain*takeAgain/100 +
		w.Difficulty*(1-difficulty/5)
}

// NormalizePreferences lowercases and trims preference tags, dropping
// blank and repeated ones.
func NormalizePreferences(preferences []string) []string {
	out := make([]string, 0, len(preferences))
	for _, p := range preferences {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MatchScore counts the (normalized) preferences found as substrings of
// the comments.
func (w Weights) MatchScore(preferences, comments []string) float64 {
	if len(preferences) == 0 || len(comments) == 0 {
		return w.MatchDefault
	}
	text := strings.ToLower(strings.Join(comments, " "))
	hits := 0
	for _, p := range preferences {
		if strings.Contains(text, p) {
			hits++
		}
	}
	return numutil.Clamp(w.MatchDefault+w.MatchStep*float64(hits), w.MatchFloor, w.MatchCeiling)
}

func (w Weights) Composite(base, match float64) float64 {
	return w.Alpha*numutil.Clamp(base, 0, 1) + (1-w.Alpha)*match
}

// Scorer ranks instructors, it has no state besides its weights.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) Scorer {
	return Scorer{weights: weights.WithDefaults()}
}

func (s Scorer) Weights() Weights {
	return s.weights
}

// Rank scores every instructor against the preference tags and sorts them
// best first. Ties are broken by average rating, then name, then id, so the
// order is fully deterministic.
func (s Scorer) Rank(preferences []string, instructors []InstructorSummary) []ScoredInstructor {
	weights := s.weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	preferences = NormalizePreferences(preferences)

	out := make([]ScoredInstructor, len(instructors))
	for i, instructor := range instructors {
		base := weights.BaseScore(instructor)
		match := weights.MatchScore(preferences, instructor.LatestComments)
		out[i] = ScoredInstructor{
			InstructorSummary: instructor,
			BaseScore:         base,
			MatchScore:        match,
			CompositeScore:    weights.Composite(base, match),
		}
	}

	slices.SortStableFunc(out, compareScored)
	return out
}

func compareScored(a, b ScoredInstructor) int {
	ratingA := normalized(a.AvgRating, DefaultRating, 5)
	ratingB := normalized(b.AvgRating, DefaultRating, 5)
	switch {
	case a.CompositeScore != b.CompositeScore:
		return cmpDesc(a.CompositeScore, b.CompositeScore)
	case ratingA != ratingB:
		return cmpDesc(ratingA, ratingB)
	case a.Name != b.Name:
		return strings.Compare(a.Name, b.Name)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

func cmpDesc(a, b float64) int {
	if a > b {
		return -1
	}
	return 1
}
