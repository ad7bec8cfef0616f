package extract

import (
	"context"
	"slices"

	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/ranking"
	"profrank-backend/internal/scrapers/ratings"
	"profrank-backend/lib/textutil"
)

const report_aggregate_tags = "aggregate.tags"

// MaxLatestComments is the amount of comments kept on a summary.
const MaxLatestComments = 3

// TagLookup fetches the aggregated tags of a teacher.
type TagLookup func(ctx context.Context, teacherID string) ([]string, error)

// SortByDate orders reviews newest first. Reviews whose date cannot be
// parsed go last, the order of reviews with equal dates is kept.
func SortByDate(reviews []ratings.ReviewRecord) []ratings.ReviewRecord {
	type dated struct {
		review ratings.ReviewRecord
		date   int64
		ok     bool
	}
	items := make([]dated, len(reviews))
	for i, r := range reviews {
		date, ok := r.ParsedDate()
		items[i] = dated{review: r, date: date.UnixNano(), ok: ok}
	}
	slices.SortStableFunc(items, func(a, b dated) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok && !b.ok, a.date == b.date:
			return 0
		case a.date > b.date:
			return -1
		default:
			return 1
		}
	})

	out := make([]ratings.ReviewRecord, len(items))
	for i, item := range items {
		out[i] = item.review
	}
	return out
}

// Aggregate reduces a teacher and the reviews that matched the course into
// a summary. It must only be called with at least one matched review.
// lookup may be nil when the remote has no teacher tags, a failing lookup
// is reported and yields no tags.
func Aggregate(
	ctx context.Context,
	tel telemetry.API,
	candidate ratings.TeacherCandidate,
	matched []ratings.ReviewRecord,
	lookup TagLookup,
) ranking.InstructorSummary {
	sorted := SortByDate(matched)
	comments := make([]string, 0, MaxLatestComments)
	for _, r := range sorted[:min(len(sorted), MaxLatestComments)] {
		comments = append(comments, r.Comment)
	}

	tags := []string{}
	if lookup != nil {
		fetched, err := lookup(ctx, candidate.ID)
		if err != nil {
			tel.ReportWarning(report_aggregate_tags, err, candidate.ID)
		} else {
			tags = textutil.Dedupe(fetched)
		}
	}

	return ranking.InstructorSummary{
		ID:                    candidate.ID,
		Name:                  candidate.Name(),
		Department:            candidate.Department,
		AvgRating:             candidate.AvgRating,
		AvgDifficulty:         candidate.AvgDifficulty,
		WouldTakeAgainPercent: candidate.WouldTakeAgainPercent,
		NumRatings:            candidate.NumRatings,
		Tags:                  tags,
		LatestComments:        comments,
		MatchedReviews:        len(matched),
	}
}
