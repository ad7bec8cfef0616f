package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"profrank-backend/internal/course"
	"profrank-backend/internal/extract"
	"profrank-backend/internal/ranking"
	"profrank-backend/internal/resultstore/db"
	"profrank-backend/internal/scrapers/ratings"

	"github.com/google/uuid"
)

// Open opens (and creates if needed) the database runs are exported to.
// `libsql://`, `http://` and `https://` urls are opened with the libsql
// client, anything else is a path to a local sqlite file.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database was not specified")
	}

	var database *sql.DB
	var err error
	switch {
	case strings.HasPrefix(dsn, "libsql://"),
		strings.HasPrefix(dsn, "http://"),
		strings.HasPrefix(dsn, "https://"):
		database, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	default:
		database, err = openSqlite(dsn)
		if err != nil {
			return nil, err
		}
	}

	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return database, nil
}

func openSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection avoids "database is locked" errors with
	// concurrent writers, it also keeps `:memory:` a single database
	database.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, err
		}
	}
	return database, nil
}

type Run struct {
	// ID is generated when empty.
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Request    extract.Request
	School     ratings.School
	Token      course.Token
	Candidates int
	Partial    bool
	// Instructors are stored in rank order.
	Instructors []ranking.ScoredInstructor
}

// RunSummary is a stored run without its instructors.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Request    extract.Request
	School     ratings.School
	Token      course.Token
	Candidates int
	Partial    bool
}

type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
}

func NewStore(database *sql.DB) Store {
	return Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
	}
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	out, err := json.Marshal(values)
	return string(out), err
}

func decodeList(value string) ([]string, error) {
	out := []string{}
	err := json.Unmarshal([]byte(value), &out)
	return out, err
}

// SaveRun writes a run and its ranked instructors in a single transaction,
// it returns the id of the run.
func (s Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	preferences, err := encodeList(run.Request.PreferenceTags)
	if err != nil {
		return "", err
	}

	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return "", err
	}
	defer discard()

	err = txqry.CreateRun(ctx, db.ExtractionRun{
		ID:           run.ID,
		StartedAt:    run.StartedAt.UnixMilli(),
		FinishedAt:   run.FinishedAt.UnixMilli(),
		SchoolID:     run.School.ID,
		SchoolName:   run.School.Name,
		Department:   run.Request.Department,
		Course:       run.Request.Course,
		DeptCode:     run.Token.DeptCode,
		CourseNumber: run.Token.Number,
		Preferences:  preferences,
		Candidates:   int64(run.Candidates),
		Partial:      run.Partial,
	})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	for i, instructor := range run.Instructors {
		tags, err := encodeList(instructor.Tags)
		if err != nil {
			return "", err
		}
		comments, err := encodeList(instructor.LatestComments)
		if err != nil {
			return "", err
		}
		err = txqry.CreateRankedInstructor(ctx, db.RankedInstructor{
			RunID:                 run.ID,
			Rank:                  int64(i + 1),
			InstructorID:          instructor.ID,
			Name:                  instructor.Name,
			Department:            instructor.Department,
			AvgRating:             instructor.AvgRating,
			AvgDifficulty:         instructor.AvgDifficulty,
			WouldTakeAgainPercent: instructor.WouldTakeAgainPercent,
			NumRatings:            int64(instructor.NumRatings),
			MatchedReviews:        int64(instructor.MatchedReviews),
			BaseScore:             instructor.BaseScore,
			MatchScore:            instructor.MatchScore,
			CompositeScore:        instructor.CompositeScore,
			Tags:                  tags,
			LatestComments:        comments,
		})
		if err != nil {
			return "", fmt.Errorf("create ranked instructor %s: %w", instructor.ID, err)
		}
	}

	err = commit()
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs first.
func (s Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]RunSummary, len(rows))
	for i, row := range rows {
		preferences, err := decodeList(row.Preferences)
		if err != nil {
			return nil, fmt.Errorf("run %s: decode preferences: %w", row.ID, err)
		}
		out[i] = RunSummary{
			ID:         row.ID,
			StartedAt:  time.UnixMilli(row.StartedAt),
			FinishedAt: time.UnixMilli(row.FinishedAt),
			Request: extract.Request{
				SchoolName:     row.SchoolName,
				Department:     row.Department,
				Course:         row.Course,
				PreferenceTags: preferences,
			},
			School:     ratings.School{ID: row.SchoolID, Name: row.SchoolName},
			Token:      course.Token{DeptCode: row.DeptCode, Number: row.CourseNumber},
			Candidates: int(row.Candidates),
			Partial:    row.Partial,
		}
	}
	return out, nil
}

// RunInstructors returns the instructors of a run in rank order.
func (s Store) RunInstructors(ctx context.Context, runID string) ([]ranking.ScoredInstructor, error) {
	rows, err := s.qry.GetRunInstructors(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := make([]ranking.ScoredInstructor, len(rows))
	for i, row := range rows {
		tags, err := decodeList(row.Tags)
		if err != nil {
			return nil, fmt.Errorf("instructor %s: decode tags: %w", row.InstructorID, err)
		}
		comments, err := decodeList(row.LatestComments)
		if err != nil {
			return nil, fmt.Errorf("instructor %s: decode comments: %w", row.InstructorID, err)
		}
		out[i] = ranking.ScoredInstructor{
			InstructorSummary: ranking.InstructorSummary{
				ID:                    row.InstructorID,
				Name:                  row.Name,
				Department:            row.Department,
				AvgRating:             row.AvgRating,
				AvgDifficulty:         row.AvgDifficulty,
				WouldTakeAgainPercent: row.WouldTakeAgainPercent,
				NumRatings:            int(row.NumRatings),
				Tags:                  tags,
				LatestComments:        comments,
				MatchedReviews:        int(row.MatchedReviews),
			},
			BaseScore:      row.BaseScore,
			MatchScore:     row.MatchScore,
			CompositeScore: row.CompositeScore,
		}
	}
	return out, nil
}
