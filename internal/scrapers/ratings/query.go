package ratings

import (
	"fmt"
	"strings"

	"profrank-backend/lib/textutil"
)

// QueryDocument is a rendered graphql document along with the review fields
// it selects.
type QueryDocument struct {
	Name   string
	Text   string
	Fields []string
}

// ReviewFields returns the deduplicated review selection for a field map:
// id, date, the comment field, every class-like field and the tag field.
func ReviewFields(fields SchemaFieldMap) []string {
	selection := []string{"id", "date", fields.commentField()}
	selection = append(selection, fields.classLikeFields()...)
	if fields.TagsField != "" {
		selection = append(selection, fields.TagsField)
	}
	return textutil.Dedupe(selection)
}

const reviewQueryName = "Ratings"

// BuildReviewQuery renders the paginated review query of a single teacher.
// It is a pure function of the field map.
func BuildReviewQuery(fields SchemaFieldMap) QueryDocument {
	selection := ReviewFields(fields)

	text := fmt.Sprintf(`query %s($id: ID!, $first: Int!, $after: String) {
  node(id: $id) {
    ... on Teacher {
      ratings(first: $first, after: $after) {
        pageInfo { hasNextPage endCursor }
        edges {
          node {
            %s
          }
        }
      }
    }
  }
}`, reviewQueryName, strings.Join(selection, "\n            "))

	return QueryDocument{
		Name:   reviewQueryName,
		Text:   text,
		Fields: selection,
	}
}

const teacherTagsQueryName = "TeacherTags"

// BuildTeacherTagsQuery renders the query for the aggregated tags of a
// single teacher, ok is false when the remote does not support them.
func BuildTeacherTagsQuery(fields SchemaFieldMap) (doc QueryDocument, ok bool) {
	if !fields.HasTeacherTags() {
		return QueryDocument{}, false
	}
	text := fmt.Sprintf(`query %s($id: ID!) {
  node(id: $id) {
    ... on Teacher {
      %s {
        %s
      }
    }
  }
}`, teacherTagsQueryName, fields.TeacherTagField, fields.TeacherTagNameField)

	return QueryDocument{
		Name:   teacherTagsQueryName,
		Text:   text,
		Fields: []string{fields.TeacherTagField, fields.TeacherTagNameField},
	}, true
}

const schoolSearchQueryName = "SearchSchools"

const schoolSearchQuery = `query SearchSchools($text: String!, $first: Int!, $after: String) {
  newSearch {
    schools(query: { text: $text }, first: $first, after: $after) {
      pageInfo { hasNextPage endCursor }
      edges { node { id name city state } }
    }
  }
}`

const teacherSearchQueryName = "SearchTeachers"

const teacherSearchQuery = `query SearchTeachers($text: String!, $schoolID: ID!, $first: Int!, $after: String) {
  newSearch {
    teachers(query: { text: $text, schoolID: $schoolID }, first: $first, after: $after) {
      pageInfo { hasNextPage endCursor }
      edges {
        node {
          id
          firstName
          lastName
          department
          numRatings
          avgRating
          avgDifficulty
          wouldTakeAgainPercent
        }
      }
    }
  }
}`
