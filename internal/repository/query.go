package repository

import (
	"strings"
)

// Searchable project fields.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldLink        = "link"
	FieldUser        = "user"
)

var searchFields = map[string]bool{
	FieldName:        true,
	FieldDescription: true,
	FieldLink:        true,
	FieldUser:        true,
}

// Term is one search condition. An empty Field matches any searchable field.
type Term struct {
	Field string
	Value string
}

// Query is a conjunction of terms. The zero Query matches everything.
type Query struct {
	Terms []Term
}

// MatchAll reports whether the query has no conditions.
func (q Query) MatchAll() bool {
	return len(q.Terms) == 0
}

// ParseQuery turns the user's search box text into a Query.
//
//	""                  → match all
//	"*"                 → match all
//	"chess bot"         → name/description/link/user contain "chess" AND "bot"
//	"user:octocat go"   → owner contains "octocat" AND any field contains "go"
//
// Values are lowercased. Unknown field prefixes are treated as plain text, so
// "http://x" searches for the literal string.
func ParseQuery(raw string) Query {
	var q Query
	for _, word := range strings.Fields(raw) {
		if word == "*" {
			continue
		}
		term := Term{Value: strings.ToLower(word)}
		if field, value, ok := strings.Cut(word, ":"); ok {
			field = strings.ToLower(field)
			if searchFields[field] && value != "" && value != "*" {
				term = Term{Field: field, Value: strings.ToLower(value)}
			} else if searchFields[field] {
				continue // "name:*" or "name:" restrict nothing
			}
		}
		term.Value = strings.Trim(term.Value, "*")
		if term.Value == "" {
			continue
		}
		q.Terms = append(q.Terms, term)
	}
	return q
}

// String renders the query back into search box syntax.
func (q Query) String() string {
	if q.MatchAll() {
		return "*"
	}
	parts := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if t.Field != "" {
			parts = append(parts, t.Field+":"+t.Value)
		} else {
			parts = append(parts, t.Value)
		}
	}
	return strings.Join(parts, " ")
}

// LikePattern escapes a term value for use in a LIKE ... ESCAPE '\' clause.
func LikePattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(value) + "%"
}
