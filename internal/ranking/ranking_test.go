package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeightsWithDefaults(t *testing.T) {
	require.Equal(t, DefaultWeights(), Weights{}.WithDefaults())

	w := Weights{Rating: 0.7, TakeAgain: -1, Alpha: 3, MatchStep: math.NaN()}.WithDefaults()
	require.Equal(t, 0.7, w.Rating)
	require.Equal(t, 0.3, w.TakeAgain)
	require.Equal(t, 0.0, w.Difficulty)
	require.Equal(t, 1.0, w.Alpha)
	require.Equal(t, 0.15, w.MatchStep)
}

func TestWeightsConfig(t *testing.T) {
	require.Equal(t, DefaultWeights(), WeightsConfig{}.Weights())

	zero := 0.0
	negative := -2.0
	alpha := 0.4
	w := WeightsConfig{TakeAgain: &zero, Difficulty: &zero, Rating: &negative, Alpha: &alpha}.Weights()
	require.Equal(t, 0.5, w.Rating)
	require.Equal(t, 0.0, w.TakeAgain)
	require.Equal(t, 0.0, w.Difficulty)
	require.Equal(t, 0.4, w.Alpha)
	require.Equal(t, 0.35, w.MatchDefault)

	// only the rating is left in the blend
	base := w.BaseScore(InstructorSummary{AvgRating: 4, WouldTakeAgainPercent: 100, AvgDifficulty: 0})
	require.InDelta(t, 0.5*0.8, base, 1e-9)
}

func TestBaseScore(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		name     string
		summary  InstructorSummary
		expected float64
	}{
		{
			name:     "best",
			summary:  InstructorSummary{AvgRating: 5, WouldTakeAgainPercent: 100, AvgDifficulty: 0},
			expected: 1,
		},
		{
			name:     "worst",
			summary:  InstructorSummary{AvgRating: 0, WouldTakeAgainPercent: 0, AvgDifficulty: 5},
			expected: 0,
		},
		{
			name:     "typical",
			summary:  InstructorSummary{AvgRating: 4, WouldTakeAgainPercent: 80, AvgDifficulty: 2.5},
			expected: 0.5*0.8 + 0.3*0.8 + 0.2*0.5,
		},
		{
			name:     "out of range",
			summary:  InstructorSummary{AvgRating: 9, WouldTakeAgainPercent: 250, AvgDifficulty: -3},
			expected: 1,
		},
		{
			name:     "not finite",
			summary:  InstructorSummary{AvgRating: math.NaN(), WouldTakeAgainPercent: math.Inf(1), AvgDifficulty: math.NaN()},
			expected: 0.2 * (1 - 3.0/5),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.InDelta(t, c.expected, w.BaseScore(c.summary), 1e-9)
		})
	}
}

func TestMatchScore(t *testing.T) {
	w := DefaultWeights()
	comments := []string{"Very CARING and clear lectures", "Tough grader but fair"}

	require.Equal(t, 0.35, w.MatchScore(nil, comments))
	require.Equal(t, 0.35, w.MatchScore([]string{"caring"}, nil))
	require.InDelta(t, 0.35, w.MatchScore([]string{"funny"}, comments), 1e-9)
	require.InDelta(t, 0.5, w.MatchScore([]string{"caring"}, comments), 1e-9)
	require.InDelta(t, 0.8, w.MatchScore([]string{"caring", "clear", "fair"}, comments), 1e-9)
	require.InDelta(t, 0.9, w.MatchScore([]string{"caring", "clear", "fair", "tough", "lectures"}, comments), 1e-9)

	negative := DefaultWeights()
	negative.MatchDefault = 0.05
	require.InDelta(t, 0.1, negative.MatchScore([]string{"funny"}, comments), 1e-9)
}

func TestNormalizePreferences(t *testing.T) {
	require.Equal(t,
		[]string{"caring", "clear grading"},
		NormalizePreferences([]string{" Caring", "", "caring ", "Clear Grading", "   "}),
	)
}

func TestRankMonotonic(t *testing.T) {
	scorer := NewScorer(Weights{})
	score := func(s InstructorSummary) float64 {
		return scorer.Rank([]string{"caring"}, []InstructorSummary{s})[0].CompositeScore
	}
	base := InstructorSummary{
		ID:                    "1",
		Name:                  "Ada Lovelace",
		AvgRating:             0,
		AvgDifficulty:         3,
		WouldTakeAgainPercent: 50,
		LatestComments:        []string{"caring"},
	}

	previous := math.Inf(-1)
	for rating := 0.0; rating <= 6; rating += 0.25 {
		s := base
		s.AvgRating = rating
		current := score(s)
		require.GreaterOrEqual(t, current, previous, "rating %v", rating)
		previous = current
	}

	previous = math.Inf(1)
	for difficulty := 0.0; difficulty <= 6; difficulty += 0.25 {
		s := base
		s.AvgDifficulty = difficulty
		current := score(s)
		require.LessOrEqual(t, current, previous, "difficulty %v", difficulty)
		previous = current
	}
}

func TestRankOrder(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	instructors := []InstructorSummary{
		{ID: "4", Name: "Dana", AvgRating: 4, AvgDifficulty: 3, WouldTakeAgainPercent: 50},
		{ID: "2", Name: "Bob", AvgRating: 3, AvgDifficulty: 1, WouldTakeAgainPercent: 50},
		{ID: "1", Name: "Alice", AvgRating: 5, AvgDifficulty: 2, WouldTakeAgainPercent: 90, LatestComments: []string{"so caring"}},
		{ID: "3", Name: "Dana", AvgRating: 4, AvgDifficulty: 3, WouldTakeAgainPercent: 50},
		{ID: "5", Name: "Carl", AvgRating: 4, AvgDifficulty: 3, WouldTakeAgainPercent: 50},
	}

	ranked := scorer.Rank([]string{"Caring"}, instructors)
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	// Carl and both Danas score the same, they are ordered by name then id
	require.Equal(t, []string{"1", "5", "3", "4", "2"}, ids)

	require.InDelta(t, 0.5, ranked[0].MatchScore, 1e-9)
	require.InDelta(t, 0.35, ranked[1].MatchScore, 1e-9)
	for i := 1; i < len(ranked); i++ {
		require.GreaterOrEqual(t, ranked[i-1].CompositeScore, ranked[i].CompositeScore)
	}

	// input is left untouched
	require.Equal(t, "4", instructors[0].ID)
}

func TestCompareScored(t *testing.T) {
	scored := func(id, name string, composite, rating float64) ScoredInstructor {
		return ScoredInstructor{
			InstructorSummary: InstructorSummary{ID: id, Name: name, AvgRating: rating},
			CompositeScore:    composite,
		}
	}
	cases := []struct {
		name     string
		a, b     ScoredInstructor
		expected int
	}{
		{name: "composite", a: scored("1", "B", 0.7, 1), b: scored("2", "A", 0.6, 5), expected: -1},
		{name: "rating", a: scored("1", "B", 0.6, 3), b: scored("2", "A", 0.6, 4), expected: 1},
		{name: "name", a: scored("2", "A", 0.6, 4), b: scored("1", "B", 0.6, 4), expected: -1},
		{name: "id", a: scored("2", "A", 0.6, 4), b: scored("1", "A", 0.6, 4), expected: 1},
		{name: "clamped rating", a: scored("1", "A", 0.6, 7), b: scored("2", "A", 0.6, 5), expected: -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, compareScored(c.a, c.b))
		})
	}
}

func TestRankEmpty(t *testing.T) {
	require.Empty(t, Scorer{}.Rank([]string{"caring"}, nil))
}
