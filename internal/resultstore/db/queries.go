package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ExtractionRun struct {
	ID           string
	StartedAt    int64
	FinishedAt   int64
	SchoolID     string
	SchoolName   string
	Department   string
	Course       string
	DeptCode     string
	CourseNumber string
	Preferences  string
	Candidates   int64
	Partial      bool
}

type RankedInstructor struct {
	RunID                 string
	Rank                  int64
	InstructorID          string
	Name                  string
	Department            string
	AvgRating             float64
	AvgDifficulty         float64
	WouldTakeAgainPercent float64
	NumRatings            int64
	MatchedReviews        int64
	BaseScore             float64
	MatchScore            float64
	CompositeScore        float64
	Tags                  string
	LatestComments        string
}

const createRun = `insert into extraction_run (
    id, started_at, finished_at, school_id, school_name, department,
    course, dept_code, course_number, preferences, candidates, partial
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRun(ctx context.Context, arg ExtractionRun) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.StartedAt,
		arg.FinishedAt,
		arg.SchoolID,
		arg.SchoolName,
		arg.Department,
		arg.Course,
		arg.DeptCode,
		arg.CourseNumber,
		arg.Preferences,
		arg.Candidates,
		arg.Partial,
	)
	return err
}

const createRankedInstructor = `insert into ranked_instructor (
    run_id, rank, instructor_id, name, department, avg_rating, avg_difficulty,
    would_take_again_percent, num_ratings, matched_reviews, base_score,
    match_score, composite_score, tags, latest_comments
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRankedInstructor(ctx context.Context, arg RankedInstructor) error {
	_, err := q.db.ExecContext(ctx, createRankedInstructor,
		arg.RunID,
		arg.Rank,
		arg.InstructorID,
		arg.Name,
		arg.Department,
		arg.AvgRating,
		arg.AvgDifficulty,
		arg.WouldTakeAgainPercent,
		arg.NumRatings,
		arg.MatchedReviews,
		arg.BaseScore,
		arg.MatchScore,
		arg.CompositeScore,
		arg.Tags,
		arg.LatestComments,
	)
	return err
}

const listRuns = `select
    id, started_at, finished_at, school_id, school_name, department,
    course, dept_code, course_number, preferences, candidates, partial
from extraction_run
order by started_at desc, id asc
limit ?`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]ExtractionRun, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExtractionRun
	for rows.Next() {
		var i ExtractionRun
		if err := rows.Scan(
			&i.ID,
			&i.StartedAt,
			&i.FinishedAt,
			&i.SchoolID,
			&i.SchoolName,
			&i.Department,
			&i.Course,
			&i.DeptCode,
			&i.CourseNumber,
			&i.Preferences,
			&i.Candidates,
			&i.Partial,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRunInstructors = `select
    run_id, rank, instructor_id, name, department, avg_rating, avg_difficulty,
    would_take_again_percent, num_ratings, matched_reviews, base_score,
    match_score, composite_score, tags, latest_comments
from ranked_instructor
where run_id = ?
order by rank asc`

func (q *Queries) GetRunInstructors(ctx context.Context, runID string) ([]RankedInstructor, error) {
	rows, err := q.db.QueryContext(ctx, getRunInstructors, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RankedInstructor
	for rows.Next() {
		var i RankedInstructor
		if err := rows.Scan(
			&i.RunID,
			&i.Rank,
			&i.InstructorID,
			&i.Name,
			&i.Department,
			&i.AvgRating,
			&i.AvgDifficulty,
			&i.WouldTakeAgainPercent,
			&i.NumRatings,
			&i.MatchedReviews,
			&i.BaseScore,
			&i.MatchScore,
			&i.CompositeScore,
			&i.Tags,
			&i.LatestComments,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
