package ratings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	report_probe_review_type  = "probe.review-type"
	report_probe_teacher_type = "probe.teacher-type"
	report_probe_tag_type     = "probe.tag-type"
)

const (
	DefaultReviewTypeName  = "Rating"
	DefaultTeacherTypeName = "Teacher"
)

// classLikeFieldNames is the allow-list of review fields that may carry a
// course identifier, discovered fields keep this order.
var classLikeFieldNames = []string{"class", "course", "courseType", "className"}

var teacherTagFieldNames = []string{"teacherRatingTags", "teacherTags", "topTags", "tags", "tagStats"}

var tagNameFieldNames = []string{"tagName", "name", "label"}

// SchemaFieldMap holds the field names the remote schema actually uses. It is
// computed once by ProbeSchema and must be treated as read-only afterwards.
type SchemaFieldMap struct {
	CommentField    string
	ClassLikeFields []string
	// TagsField is the review level tag field, empty if there is none.
	TagsField string
	// TeacherTagField and TeacherTagNameField are both empty when teacher
	// tags are not supported by the remote.
	TeacherTagField     string
	TeacherTagNameField string
	// Discovered is false when introspection failed and the defaults are
	// used for the review fields.
	Discovered bool
}

// DefaultFieldMap is the field map used when introspection yields nothing usable.
func DefaultFieldMap() SchemaFieldMap {
	return SchemaFieldMap{
		CommentField:    "comment",
		ClassLikeFields: slices.Clone(classLikeFieldNames),
		TagsField:       "ratingTags",
	}
}

func (m SchemaFieldMap) HasTeacherTags() bool {
	return m.TeacherTagField != "" && m.TeacherTagNameField != ""
}

func (m SchemaFieldMap) commentField() string {
	if m.CommentField == "" {
		return "comment"
	}
	return m.CommentField
}

func (m SchemaFieldMap) classLikeFields() []string {
	if len(m.ClassLikeFields) == 0 {
		return classLikeFieldNames
	}
	return m.ClassLikeFields
}

const introspectTypeQuery = `query IntrospectType($typeName: String!) {
  __type(name: $typeName) {
    name
    kind
    fields {
      name
      type {
        kind
        name
        ofType { kind name ofType { kind name ofType { kind name } } }
      }
    }
  }
}`

type typeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *typeRef `json:"ofType"`
}

// named unwraps NON_NULL and LIST wrappers down to the named type.
func (t *typeRef) named() string {
	for t != nil {
		if t.Name != nil && *t.Name != "" {
			return *t.Name
		}
		t = t.OfType
	}
	return ""
}

type introspectedField struct {
	Name string   `json:"name"`
	Type *typeRef `json:"type"`
}

type introspectedType struct {
	Name   string              `json:"name"`
	Kind   string              `json:"kind"`
	Fields []introspectedField `json:"fields"`
}

func (t introspectedType) fieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

func (t introspectedType) field(name string) (introspectedField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return introspectedField{}, false
}

var errTypeNotFound = errors.New("type not found")

func (c *Client) introspectType(ctx context.Context, name string) (introspectedType, error) {
	var res struct {
		Type *introspectedType `json:"__type"`
	}
	err := graphqlQuery(ctx, c, "IntrospectType", introspectTypeQuery, map[string]any{
		"typeName": name,
	}, &res)
	if err != nil {
		return introspectedType{}, err
	}
	if res.Type == nil || len(res.Type.Fields) == 0 {
		return introspectedType{}, fmt.Errorf("introspect %s: %w", name, errTypeNotFound)
	}
	return *res.Type, nil
}

// pickReviewFields chooses the comment, class-like and tag fields out of the
// fields of the review type.
func pickReviewFields(fieldNames []string) (comment string, classLike []string, tags string) {
	comment = "comment"
	if !slices.Contains(fieldNames, "comment") && len(fieldNames) > 0 {
		comment = fieldNames[0]
	}

	for _, candidate := range classLikeFieldNames {
		if slices.Contains(fieldNames, candidate) {
			classLike = append(classLike, candidate)
		}
	}
	if len(classLike) == 0 {
		classLike = slices.Clone(classLikeFieldNames)
	}

	switch {
	case slices.Contains(fieldNames, "ratingTags"):
		tags = "ratingTags"
	case slices.Contains(fieldNames, "tags"):
		tags = "tags"
	}
	return comment, classLike, tags
}

// pickTeacherTagField chooses the field of the teacher type holding its
// aggregated tags, "" if there is none.
func pickTeacherTagField(fieldNames []string) string {
	for _, candidate := range teacherTagFieldNames {
		if slices.Contains(fieldNames, candidate) {
			return candidate
		}
	}
	for _, name := range fieldNames {
		if strings.Contains(strings.ToLower(name), "tag") {
			return name
		}
	}
	return ""
}

func pickTagNameField(fieldNames []string) string {
	for _, candidate := range tagNameFieldNames {
		if slices.Contains(fieldNames, candidate) {
			return candidate
		}
	}
	if len(fieldNames) > 0 {
		return fieldNames[0]
	}
	return ""
}

type ProbeOptions struct {
	ReviewTypeName  string
	TeacherTypeName string
}

// ProbeSchema discovers the field names used by the remote. It never fails,
// anything that cannot be discovered falls back to DefaultFieldMap or
// disables teacher tags.
func (c *Client) ProbeSchema(ctx context.Context, opts ProbeOptions) SchemaFieldMap {
	ctx, span := tracer.Start(ctx, "ProbeSchema")
	defer span.End()

	reviewTypeName := opts.ReviewTypeName
	if reviewTypeName == "" {
		reviewTypeName = DefaultReviewTypeName
	}
	teacherTypeName := opts.TeacherTypeName
	if teacherTypeName == "" {
		teacherTypeName = DefaultTeacherTypeName
	}

	out := DefaultFieldMap()

	reviewType, err := c.introspectType(ctx, reviewTypeName)
	if err != nil {
		c.tel.ReportWarning(report_probe_review_type, err, reviewTypeName)
	} else {
		out.CommentField, out.ClassLikeFields, out.TagsField = pickReviewFields(reviewType.fieldNames())
		out.Discovered = true
	}

	teacherType, err := c.introspectType(ctx, teacherTypeName)
	if err != nil {
		c.tel.ReportWarning(report_probe_teacher_type, err, teacherTypeName)
		return out
	}

	tagField := pickTeacherTagField(teacherType.fieldNames())
	if tagField == "" {
		c.tel.ReportDebug(report_probe_teacher_type, "no teacher tag field, tags disabled")
		return out
	}

	field, _ := teacherType.field(tagField)
	tagTypeName := field.Type.named()
	if tagTypeName == "" {
		c.tel.ReportWarning(report_probe_tag_type, "could not unwrap tag type", tagField)
		return out
	}
	tagType, err := c.introspectType(ctx, tagTypeName)
	if err != nil {
		c.tel.ReportWarning(report_probe_tag_type, err, tagTypeName)
		return out
	}
	tagNameField := pickTagNameField(tagType.fieldNames())
	if tagNameField == "" {
		c.tel.ReportWarning(report_probe_tag_type, "no tag name field", tagTypeName)
		return out
	}

	out.TeacherTagField = tagField
	out.TeacherTagNameField = tagNameField
	c.tel.ReportDebug(report_probe_teacher_type, "teacher tags", tagField, tagNameField)
	return out
}
