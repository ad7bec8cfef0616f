// Package ratingstest serves a fake ratings graphql endpoint for tests.
package ratingstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type Error struct {
	Message string `json:"message"`
}

type Response struct {
	Data   any     `json:"data"`
	Errors []Error `json:"errors,omitempty"`
	// Status overrides the 200 status code when non-zero.
	Status int `json:"-"`
	// Raw is written as-is instead of the json encoded response when non-empty.
	Raw string `json:"-"`
}

type Request struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

func (r Request) String(name string) string {
	s, _ := r.Variables[name].(string)
	return s
}

func (r Request) Int(name string) int {
	f, _ := r.Variables[name].(float64)
	return int(f)
}

type HandlerFunc func(req Request) Response

// Server dispatches requests on their operationName and counts them.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	requests map[string][]Request
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		handlers: map[string]HandlerFunc{},
		requests: map[string][]Request{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Handle(operation string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[operation] = handler
}

func (s *Server) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests[operation])
}

func (s *Server) Requests(operation string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests[operation]...)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests[req.OperationName] = append(s.requests[req.OperationName], req)
	handler, ok := s.handlers[req.OperationName]
	s.mu.Unlock()

	res := Response{Errors: []Error{{Message: "unknown operation " + req.OperationName}}}
	if ok {
		res = handler(req)
	}

	w.Header().Set("content-type", "application/json")
	if res.Status != 0 {
		w.WriteHeader(res.Status)
	}
	if res.Raw != "" {
		w.Write([]byte(res.Raw))
		return
	}
	json.NewEncoder(w).Encode(res)
}

// Connection renders one page of nodes, the cursor of each page is the
// index of its first node.
func Connection(nodes []any, req Request) map[string]any {
	start, _ := strconv.Atoi(req.String("after"))
	first := req.Int("first")
	if first <= 0 {
		first = len(nodes)
	}
	start = min(start, len(nodes))
	end := min(start+first, len(nodes))

	edges := make([]any, 0, end-start)
	for _, n := range nodes[start:end] {
		edges = append(edges, map[string]any{"node": n})
	}
	var cursor any
	if end < len(nodes) {
		cursor = strconv.Itoa(end)
	}
	return map[string]any{
		"pageInfo": map[string]any{
			"hasNextPage": end < len(nodes),
			"endCursor":   cursor,
		},
		"edges": edges,
	}
}

func scalar(name string) map[string]any {
	return map[string]any{"name": name, "type": map[string]any{"kind": "SCALAR", "name": "String"}}
}

// listOf returns a field typed `[<typeName>!]`.
func listOf(name, typeName string) map[string]any {
	return map[string]any{
		"name": name,
		"type": map[string]any{
			"kind": "LIST",
			"name": nil,
			"ofType": map[string]any{
				"kind": "NON_NULL",
				"name": nil,
				"ofType": map[string]any{"kind": "OBJECT", "name": typeName},
			},
		},
	}
}

func introspected(name string, fields []any) Response {
	if len(fields) == 0 {
		return Response{Data: map[string]any{"__type": nil}}
	}
	return Response{Data: map[string]any{
		"__type": map[string]any{"name": name, "kind": "OBJECT", "fields": fields},
	}}
}

type School struct {
	ID    string
	Name  string
	City  string
	State string
}

type Teacher struct {
	ID         string
	FirstName  string
	LastName   string
	Department string
	// any of the numeric fields may be left nil or set to a non-numeric value
	NumRatings            any
	AvgRating             any
	AvgDifficulty         any
	WouldTakeAgainPercent any
	// Reviews are review nodes as returned by the remote, newest first.
	Reviews []map[string]any
	Tags    []string
}

func (t Teacher) node() map[string]any {
	return map[string]any{
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

const TagTypeName = "TeacherRatingTag"

// Fixture describes a whole remote.
type Fixture struct {
	ReviewFields  []string
	TeacherFields []string
	// TeacherTagField is typed as a list of TagTypeName, it must also be
	// listed in TeacherFields to be introspected.
	TeacherTagField string
	TagNameFields   []string
	Schools         []School
	Teachers        []Teacher
}

// DefaultFixture returns a fixture with the field names of the public
// ratings schema and no data.
func DefaultFixture() Fixture {
	return Fixture{
		ReviewFields:    []string{"id", "date", "class", "comment", "ratingTags", "helpfulRating"},
		TeacherFields:   []string{"id", "firstName", "lastName", "department", "teacherRatingTags"},
		TeacherTagField: "teacherRatingTags",
		TagNameFields:   []string{"id", "tagCount", "tagName"},
	}
}

func (f Fixture) teacher(id string) (Teacher, bool) {
	for _, t := range f.Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return Teacher{}, false
}

// Serve installs a handler for every operation the ratings client issues.
func (s *Server) Serve(f Fixture) {
	s.Handle("IntrospectType", func(req Request) Response {
		var fields []any
		switch name := req.String("typeName"); name {
		case "Rating":
			for _, n := range f.ReviewFields {
				fields = append(fields, scalar(n))
			}
		case "Teacher":
			for _, n := range f.TeacherFields {
				if n == f.TeacherTagField {
					fields = append(fields, listOf(n, TagTypeName))
					continue
				}
				fields = append(fields, scalar(n))
			}
		case TagTypeName:
			for _, n := range f.TagNameFields {
				fields = append(fields, scalar(n))
			}
		}
		return introspected(req.String("typeName"), fields)
	})

	s.Handle("SearchSchools", func(req Request) Response {
		text := strings.ToLower(req.String("text"))
		var nodes []any
		for _, school := range f.Schools {
			if strings.Contains(strings.ToLower(school.Name), text) {
				nodes = append(nodes, map[string]any{
					"id":    school.ID,
					"name":  school.Name,
					"city":  school.City,
					"state": school.State,
				})
			}
		}
		return Response{Data: map[string]any{
			"newSearch": map[string]any{"schools": Connection(nodes, req)},
		}}
	})

	s.Handle("SearchTeachers", func(req Request) Response {
		text := strings.ToLower(req.String("text"))
		var nodes []any
		for _, t := range f.Teachers {
			name := strings.ToLower(t.FirstName + " " + t.LastName)
			if text == "" ||
				strings.Contains(strings.ToLower(t.Department), text) ||
				strings.Contains(name, text) {
				nodes = append(nodes, t.node())
			}
		}
		return Response{Data: map[string]any{
			"newSearch": map[string]any{"teachers": Connection(nodes, req)},
		}}
	})

	s.Handle("Ratings", func(req Request) Response {
		t, ok := f.teacher(req.String("id"))
		if !ok {
			return Response{Data: map[string]any{"node": nil}}
		}
		nodes := make([]any, len(t.Reviews))
		for i, r := range t.Reviews {
			nodes[i] = r
		}
		return Response{Data: map[string]any{
			"node": map[string]any{"ratings": Connection(nodes, req)},
		}}
	})

	s.Handle("TeacherTags", func(req Request) Response {
		t, ok := f.teacher(req.String("id"))
		if !ok {
			return Response{Data: map[string]any{"node": nil}}
		}
		tags := make([]any, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = map[string]any{"tagName": tag}
		}
		return Response{Data: map[string]any{
			"node": map[string]any{f.TeacherTagField: tags},
		}}
	})
}
