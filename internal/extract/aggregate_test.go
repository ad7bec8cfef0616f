package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/scrapers/ratings"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSortByDate(t *testing.T) {
	reviews := []ratings.ReviewRecord{
		{ID: "1", Date: "2022-01-01 10:00:00 +0000 UTC"},
		{ID: "2", Date: "garbage"},
		{ID: "3", Date: "2024-03-01T00:00:00Z"},
		{ID: "4", Date: ""},
		{ID: "5", Date: "2022-01-01 10:00:00 +0000 UTC"},
		{ID: "6", Date: "2023-06-15"},
	}

	var ids []string
	for _, r := range SortByDate(reviews) {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"3", "6", "1", "5", "2", "4"}, ids); diff != "" {
		t.Fatal(diff)
	}
	// the input is not reordered
	require.Equal(t, "1", reviews[0].ID)
}

func TestAggregate(t *testing.T) {
	candidate := ratings.TeacherCandidate{
		ID:                    "T1",
		FirstName:             "Ada ",
		LastName:              "Lovelace",
		Department:            "Computer Science",
		NumRatings:            10,
		AvgRating:             4.2,
		AvgDifficulty:         2.9,
		WouldTakeAgainPercent: 88,
	}

	var matched []ratings.ReviewRecord
	for i := 0; i < 10; i++ {
		matched = append(matched, ratings.ReviewRecord{
			ID:      fmt.Sprint(i),
			Date:    fmt.Sprintf("2024-01-%02d", i+1),
			Comment: fmt.Sprintf("CIS 375 review %d", i),
		})
	}
	// missing comment on the newest review
	matched[9].Comment = ""

	tel := telemetry.NewRecorderAPI()
	lookups := 0
	summary := Aggregate(context.Background(), tel, candidate, matched, func(_ context.Context, id string) ([]string, error) {
		lookups++
		require.Equal(t, "T1", id)
		return []string{"Caring", "Respected", "Caring", ""}, nil
	})

	require.Equal(t, 1, lookups)
	require.Len(t, summary.LatestComments, MaxLatestComments)
	require.Equal(t, []string{"", "CIS 375 review 8", "CIS 375 review 7"}, summary.LatestComments)
	require.Equal(t, []string{"Caring", "Respected"}, summary.Tags)
	require.Equal(t, "Ada Lovelace", summary.Name)
	require.Equal(t, 10, summary.MatchedReviews)
	require.Equal(t, 4.2, summary.AvgRating)
	require.Equal(t, 2.9, summary.AvgDifficulty)
	require.Equal(t, 88.0, summary.WouldTakeAgainPercent)
	require.Equal(t, "Computer Science", summary.Department)
	require.Empty(t, tel.Reports(telemetry.ReportKindWarning))
}

func TestAggregateTags(t *testing.T) {
	candidate := ratings.TeacherCandidate{ID: "T1", FirstName: "Ada", LastName: "Lovelace"}
	matched := []ratings.ReviewRecord{{ID: "1", Comment: "CIS 375", Tags: []string{"Tough grader"}}}

	tel := telemetry.NewRecorderAPI()
	summary := Aggregate(context.Background(), tel, candidate, matched, nil)
	require.NotNil(t, summary.Tags)
	require.Empty(t, summary.Tags)
	require.Equal(t, []string{"CIS 375"}, summary.LatestComments)

	summary = Aggregate(context.Background(), tel, candidate, matched, func(context.Context, string) ([]string, error) {
		return nil, errors.New("boom")
	})
	require.Empty(t, summary.Tags)
	require.True(t, tel.Has(telemetry.ReportKindWarning, "aggregate.tags"))
}
