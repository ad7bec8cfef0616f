package ratings

import (
	"context"
	"encoding/json"
	"strings"

	"profrank-backend/lib/textutil"
)

// TeacherTags fetches the aggregated tags of one teacher with a query from
// BuildTeacherTagsQuery. The tag field may hold a single tag object or a
// list of them, a missing teacher yields no tags.
func (c *Client) TeacherTags(ctx context.Context, teacherID string, doc QueryDocument) ([]string, error) {
	ctx, span := tracer.Start(ctx, "TeacherTags")
	defer span.End()

	if len(doc.Fields) != 2 {
		return nil, nil
	}
	tagField, nameField := doc.Fields[0], doc.Fields[1]

	var res struct {
		Node map[string]json.RawMessage `json:"node"`
	}
	err := graphqlQuery(ctx, c, doc.Name, doc.Text, map[string]any{"id": teacherID}, &res)
	if err != nil {
		return nil, err
	}

	raw := res.Node[tagField]
	if isNull(raw) {
		return []string{}, nil
	}

	var items []map[string]json.RawMessage
	err = json.Unmarshal(raw, &items)
	if err != nil {
		var single map[string]json.RawMessage
		if json.Unmarshal(raw, &single) != nil {
			return nil, transportError(doc.Name, "decode tags", err)
		}
		items = []map[string]json.RawMessage{single}
	}

	tags := make([]string, 0, len(items))
	for _, item := range items {
		tags = append(tags, strings.TrimSpace(scalarString(item[nameField])))
	}
	return textutil.Dedupe(tags), nil
}
