package ratings_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"profrank-backend/internal/components/telemetry"
	"profrank-backend/internal/scrapers/ratings"
	"profrank-backend/internal/scrapers/ratings/ratingstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const schoolsQuery = `query Schools($first: Int!, $after: String) { schools { id } }`

func schoolPage(ids []string, hasNextPage bool, cursor any) ratingstest.Response {
	edges := make([]any, len(ids))
	for i, id := range ids {
		edges[i] = map[string]any{"node": map[string]any{"id": id, "name": "School " + id}}
	}
	return ratingstest.Response{Data: map[string]any{
		"schools": map[string]any{
			"pageInfo": map[string]any{"hasNextPage": hasNextPage, "endCursor": cursor},
			"edges":    edges,
		},
	}}
}

func schoolIDs(schools []ratings.School) []string {
	ids := make([]string, len(schools))
	for i, s := range schools {
		ids[i] = s.ID
	}
	return ids
}

func walkRequest(maxPages int) ratings.PageRequest {
	return ratings.PageRequest{
		Name:     "Schools",
		Query:    schoolsQuery,
		Path:     []string{"schools"},
		PageSize: 2,
		MaxPages: maxPages,
		Pacing:   70 * time.Millisecond,
	}
}

func TestWalkMaxPages(t *testing.T) {
	env := newTestEnv(t)
	page := 0
	env.server.Handle("Schools", func(ratingstest.Request) ratingstest.Response {
		page++
		return schoolPage([]string{string(rune('a' + page))}, true, "next")
	})

	schools, err := ratings.Collect[ratings.School](testContext(t), env.client, walkRequest(3))
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, 3, env.server.Calls("Schools"))
	require.Len(t, schools, 3)
	require.Equal(t, []time.Duration{70 * time.Millisecond, 70 * time.Millisecond}, env.clock.Sleeps())
	require.True(t, env.tel.Has(telemetry.ReportKindWarning, "pager.max-pages"))
}

func TestWalkCursors(t *testing.T) {
	env := newTestEnv(t)
	env.server.Handle("Schools", func(req ratingstest.Request) ratingstest.Response {
		switch req.String("after") {
		case "":
			return schoolPage([]string{"1", "2"}, true, "c1")
		case "c1":
			// overlapping page
			return schoolPage([]string{"2", "3"}, true, "c2")
		default:
			return schoolPage([]string{"4"}, false, nil)
		}
	})

	schools, err := ratings.Collect[ratings.School](testContext(t), env.client, walkRequest(10))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, schoolIDs(schools)); diff != "" {
		t.Fatal(diff)
	}

	requests := env.server.Requests("Schools")
	require.Len(t, requests, 3)
	require.Nil(t, requests[0].Variables["after"])
	require.Equal(t, "c1", requests[1].String("after"))
	require.Equal(t, "c2", requests[2].String("after"))
	require.Equal(t, 2, requests[0].Int("first"))
	require.False(t, env.tel.Has(telemetry.ReportKindWarning, "pager.max-pages"))

	// a fresh walk starts over from the first page
	_, err = ratings.Collect[ratings.School](testContext(t), env.client, walkRequest(10))
	if err != nil {
		t.Fatal(err)
	}
	require.Nil(t, env.server.Requests("Schools")[3].Variables["after"])
}

func TestWalkErrorsKeepCollected(t *testing.T) {
	cases := []struct {
		name   string
		second ratingstest.Response
		target error
	}{
		{
			name: "graphql errors",
			second: ratingstest.Response{
				Data:   nil,
				Errors: []ratingstest.Error{{Message: "rate limited"}},
			},
			target: ratings.ErrRemoteSchema,
		},
		{
			name:   "transport",
			second: ratingstest.Response{Status: http.StatusServiceUnavailable, Raw: "<html>unavailable</html>"},
			target: ratings.ErrRemoteTransport,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.server.Handle("Schools", func(req ratingstest.Request) ratingstest.Response {
				if req.String("after") == "" {
					return schoolPage([]string{"1", "2"}, true, "c1")
				}
				return c.second
			})

			schools, err := ratings.Collect[ratings.School](testContext(t), env.client, walkRequest(10))
			require.ErrorIs(t, err, c.target)
			require.Equal(t, []string{"1", "2"}, schoolIDs(schools))
			require.Equal(t, 2, env.server.Calls("Schools"))
		})
	}
}

func TestWalkEnds(t *testing.T) {
	cases := []struct {
		name     string
		response ratingstest.Response
		expected []string
	}{
		{
			name:     "missing connection",
			response: ratingstest.Response{Data: map[string]any{"schools": nil}},
		},
		{
			name:     "no cursor",
			response: schoolPage([]string{"1"}, true, ""),
			expected: []string{"1"},
		},
		{
			name: "null nodes",
			response: ratingstest.Response{Data: map[string]any{
				"schools": map[string]any{
					"pageInfo": map[string]any{"hasNextPage": false},
					"edges": []any{
						map[string]any{"node": nil},
						map[string]any{"node": map[string]any{"id": "1"}},
					},
				},
			}},
			expected: []string{"1"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.server.Handle("Schools", func(ratingstest.Request) ratingstest.Response {
				return c.response
			})

			schools, err := ratings.Collect[ratings.School](testContext(t), env.client, walkRequest(10))
			if err != nil {
				t.Fatal(err)
			}
			require.Equal(t, 1, env.server.Calls("Schools"))
			if diff := cmp.Diff(c.expected, schoolIDs(schools)); len(c.expected) > 0 && diff != "" {
				t.Fatal(diff)
			}
			require.Len(t, schools, len(c.expected))
		})
	}
}

func TestWalkStop(t *testing.T) {
	env := newTestEnv(t)
	env.server.Handle("Schools", func(ratingstest.Request) ratingstest.Response {
		return schoolPage([]string{"1", "2"}, true, "next")
	})

	var visited []string
	err := ratings.Walk(testContext(t), env.client, walkRequest(10), func(s ratings.School) error {
		visited = append(visited, s.ID)
		return ratings.ErrStopWalk
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{"1"}, visited)
	require.Equal(t, 1, env.server.Calls("Schools"))
}

func TestWalkCancelledPacing(t *testing.T) {
	env := newTestEnv(t)
	env.server.Handle("Schools", func(ratingstest.Request) ratingstest.Response {
		return schoolPage([]string{"1"}, true, "next")
	})

	ctx, cancel := context.WithCancel(testContext(t))
	err := ratings.Walk(ctx, env.client, walkRequest(10), func(ratings.School) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ratings.ErrRemoteTransport)
	require.Equal(t, 1, env.server.Calls("Schools"))
}
