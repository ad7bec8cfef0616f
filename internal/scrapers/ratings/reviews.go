package ratings

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"profrank-backend/lib/htmlutil"
	"profrank-backend/lib/textutil"
)

const report_reviews_decode = "reviews.decode"

// FieldValue is the value a class-like field carried on a review.
type FieldValue struct {
	Field string
	Value string
}

type ReviewRecord struct {
	ID   string
	Date string
	// Comment is plain text, markup and entities are stripped on ingestion.
	Comment string
	// ClassValues only holds the class-like fields that were present and
	// non-empty on the review, in field map order.
	ClassValues []FieldValue
	// Tags is nil when the remote has no review tag field.
	Tags []string
}

// MatchableText returns the comment followed by every class value, these
// are the texts a course is looked for in.
func (r ReviewRecord) MatchableText() []string {
	out := make([]string, 0, len(r.ClassValues)+1)
	if r.Comment != "" {
		out = append(out, r.Comment)
	}
	for _, v := range r.ClassValues {
		out = append(out, v.Value)
	}
	return out
}

var reviewDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05 -0700",
	time.DateTime,
	time.DateOnly,
}

// ParsedDate parses the loosely formatted review date, ok is false when
// none of the known layouts apply.
func (r ReviewRecord) ParsedDate() (time.Time, bool) {
	date := strings.TrimSpace(r.Date)
	if date == "" {
		return time.Time{}, false
	}
	for _, layout := range reviewDateLayouts {
		parsed, err := time.Parse(layout, date)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

type rawReview map[string]json.RawMessage

func (r rawReview) NodeID() string {
	return scalarString(r["id"])
}

// scalarString renders a json string, number or bool as a string, anything
// else (including null) yields "".
func scalarString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// parseTags accepts the shapes review tags come in: a single string with
// tags separated by "--", a list of strings, or a list of objects holding
// one of the usual tag name fields.
func parseTags(raw json.RawMessage) ([]string, bool) {
	if isNull(raw) {
		return []string{}, true
	}

	var joined string
	if json.Unmarshal(raw, &joined) == nil {
		parts := strings.Split(joined, "--")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return textutil.Dedupe(parts), true
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return nil, false
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s := strings.TrimSpace(scalarString(item)); s != "" {
			tags = append(tags, s)
			continue
		}
		var object map[string]json.RawMessage
		if json.Unmarshal(item, &object) != nil {
			continue
		}
		for _, key := range tagNameFieldNames {
			if s := strings.TrimSpace(scalarString(object[key])); s != "" {
				tags = append(tags, s)
				break
			}
		}
	}
	return textutil.Dedupe(tags), true
}

func (c *Client) toReview(raw rawReview, fields SchemaFieldMap) ReviewRecord {
	review := ReviewRecord{
		ID:      raw.NodeID(),
		Date:    scalarString(raw["date"]),
		Comment: htmlutil.PlainText(scalarString(raw[fields.commentField()])),
	}
	for _, field := range fields.classLikeFields() {
		value := strings.TrimSpace(scalarString(raw[field]))
		if value == "" {
			continue
		}
		review.ClassValues = append(review.ClassValues, FieldValue{Field: field, Value: value})
	}
	if fields.TagsField != "" {
		tags, ok := parseTags(raw[fields.TagsField])
		if !ok {
			c.tel.ReportDebug(report_reviews_decode, "unrecognized tags", review.ID, string(raw[fields.TagsField]))
			tags = []string{}
		}
		review.Tags = tags
	}
	return review
}

type ReviewFetch struct {
	TeacherID string
	Query     QueryDocument
	Fields    SchemaFieldMap
	PageSize  int
	MaxPages  int
	Pacing    time.Duration
}

// Reviews walks the reviews of one teacher with the rendered review query.
// Reviews collected before an error are returned along with it.
func (c *Client) Reviews(ctx context.Context, fetch ReviewFetch) ([]ReviewRecord, error) {
	ctx, span := tracer.Start(ctx, "Reviews")
	defer span.End()

	var out []ReviewRecord
	err := Walk(ctx, c, PageRequest{
		Name:      fetch.Query.Name,
		Query:     fetch.Query.Text,
		Variables: map[string]any{"id": fetch.TeacherID},
		Path:      []string{"node", "ratings"},
		PageSize:  fetch.PageSize,
		MaxPages:  fetch.MaxPages,
		Pacing:    fetch.Pacing,
	}, func(raw rawReview) error {
		out = append(out, c.toReview(raw, fetch.Fields))
		return nil
	})
	return out, err
}
