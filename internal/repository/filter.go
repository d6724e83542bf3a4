package repository

import (
	"strings"
)

// searchColumns maps query fields to project table columns. Both SQL
// backends share the same column names.
var searchColumns = map[string]string{
	FieldName:        "name",
	FieldDescription: "description",
	FieldLink:        "link",
	FieldUser:        "username",
}

// SearchFilter renders q as a SQL boolean expression over the projects
// table. placeholder(n) must return the driver's n-th (1-based) bind marker.
// The returned expression is "1=1" for a match-all query.
func SearchFilter(q Query, placeholder func(n int) string) (string, []any) {
	if q.MatchAll() {
		return "1=1", nil
	}

	var (
		clauses []string
		args    []any
	)
	like := func(column, value string) string {
		args = append(args, LikePattern(value))
		return "lower(" + column + ") LIKE " + placeholder(len(args)) + ` ESCAPE '\'`
	}

	for _, t := range q.Terms {
		if t.Field != "" {
			clauses = append(clauses, like(searchColumns[t.Field], t.Value))
			continue
		}
		ors := make([]string, 0, len(searchColumns))
		for _, field := range []string{FieldName, FieldDescription, FieldLink, FieldUser} {
			ors = append(ors, like(searchColumns[field], t.Value))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

// RelevanceOrder ranks projects whose name contains the first term ahead of
// the rest. The caller appends the bind value returned alongside.
func RelevanceOrder(q Query, placeholder func(n int) string, argc int) (string, []any) {
	if q.MatchAll() {
		return "date_updated ASC, key ASC", nil
	}
	return "CASE WHEN lower(name) LIKE " + placeholder(argc+1) + ` ESCAPE '\' THEN 0 ELSE 1 END, votes DESC, date_updated DESC, key ASC`,
		[]any{LikePattern(q.Terms[0].Value)}
}
