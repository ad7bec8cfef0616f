package ratings_test

import (
	"testing"

	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/scrapers/ratings"
	"profrank-backend/internal/scrapers/ratings/ratingstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func teacherFixture() ratingstest.Fixture {
	fixture := ratingstest.DefaultFixture()
	fixture.Teachers = []ratingstest.Teacher{
		{
			ID: "T1", FirstName: "Ada", LastName: "Lovelace", Department: "Computer Science",
			NumRatings: 12, AvgRating: 4.5, AvgDifficulty: 2.5, WouldTakeAgainPercent: 91.5,
		},
		{
			ID: "T2", FirstName: " Alan", LastName: "Turing ", Department: "Computer  science",
			NumRatings: "3", AvgRating: "not rated", AvgDifficulty: nil, WouldTakeAgainPercent: -1,
		},
		{
			ID: "T3", FirstName: "Emmy", LastName: "Noether", Department: "Mathematics",
			NumRatings: 7, AvgRating: 4.9, AvgDifficulty: 4.1, WouldTakeAgainPercent: 80,
		},
	}
	return fixture
}

func TestSearchTeachers(t *testing.T) {
	env := newTestEnv(t)
	env.server.Serve(teacherFixture())

	teachers, err := env.client.SearchTeachers(testContext(t), ratings.TeacherSearch{
		SchoolID:   "S1",
		Department: "computer science",
		PageSize:   1,
		MaxPages:   10,
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := []ratings.TeacherCandidate{
		{
			ID: "T1", FirstName: "Ada", LastName: "Lovelace", Department: "Computer Science",
			NumRatings: 12, AvgRating: 4.5, AvgDifficulty: 2.5, WouldTakeAgainPercent: 91.5,
		},
	}
	if diff := cmp.Diff(expected, teachers); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 1, env.server.Calls("SearchTeachers"))

	requests := env.server.Requests("SearchTeachers")
	require.Equal(t, "S1", requests[0].String("schoolID"))
	require.Equal(t, "computer science", requests[0].String("text"))
}

func TestSearchTeachersFallback(t *testing.T) {
	cases := []struct {
		name     string
		filtered ratingstest.HandlerFunc
	}{
		{
			name: "empty search",
			filtered: func(req ratingstest.Request) ratingstest.Response {
				return ratingstest.Response{Data: map[string]any{
					"newSearch": map[string]any{"teachers": ratingstest.Connection(nil, req)},
				}}
			},
		},
		{
			name: "failing search",
			filtered: func(ratingstest.Request) ratingstest.Response {
				return ratingstest.Response{Errors: []ratingstest.Error{{Message: "unknown argument text"}}}
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.server.Serve(teacherFixture())

			env.server.Handle("SearchTeachers", func(req ratingstest.Request) ratingstest.Response {
				if req.String("text") != "" {
					return c.filtered(req)
				}
				return allTeachers(req)
			})

			teachers, err := env.client.SearchTeachers(testContext(t), ratings.TeacherSearch{
				SchoolID:         "S1",
				Department:       "Computer Science",
				PageSize:         2,
				MaxPages:         1,
				FallbackMaxPages: 5,
			})
			if err != nil {
				t.Fatal(err)
			}

			var ids []string
			for _, teacher := range teachers {
				ids = append(ids, teacher.ID)
			}
			require.Equal(t, []string{"T1", "T2"}, ids)
			require.Equal(t, "Alan Turing", teachers[1].Name())
			require.Equal(t, 3, teachers[1].NumRatings)
			require.Equal(t, ratings.DefaultAvgRating, teachers[1].AvgRating)
			require.Equal(t, ratings.DefaultAvgDifficulty, teachers[1].AvgDifficulty)
			require.Equal(t, ratings.DefaultWouldTakeAgainPercent, teachers[1].WouldTakeAgainPercent)

			// 1 filtered request, then 2 pages of 2 teachers
			require.Equal(t, 3, env.server.Calls("SearchTeachers"))
			require.True(t, env.tel.Has(telemetry.ReportKindDebug, "teachers.fallback"))
			require.True(t, env.tel.Has(telemetry.ReportKindDebug, "teachers.coerce"))
		})
	}
}

func allTeachers(req ratingstest.Request) ratingstest.Response {
	fixture := teacherFixture()
	nodes := make([]any, len(fixture.Teachers))
	for i, t := range fixture.Teachers {
		nodes[i] = map[string]any{
			"id":                    t.ID,
			"firstName":             t.FirstName,
			"lastName":              t.LastName,
			"department":            t.Department,
			"numRatings":            t.NumRatings,
			"avgRating":             t.AvgRating,
			"avgDifficulty":         t.AvgDifficulty,
			"wouldTakeAgainPercent": t.WouldTakeAgainPercent,
		}
	}
	return ratingstest.Response{Data: map[string]any{
		"newSearch": map[string]any{"teachers": ratingstest.Connection(nodes, req)},
	}}
}
