package view

import (
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultDateLayout marks the default dateFormat output, e.g. "Mar 1st, 2024".
const DefaultDateLayout = "Jan 2nd, 2006"

// Funcs are the helpers available to every page template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"dateFormat": DateFormat,
		"pluralize":  Pluralize,
		"comma":      Comma,
		"ago":        humanize.Time,
	}
}

// DateFormat formats t with layout, or as "Jan 2nd, 2006" when no layout is
// given. Go layouts have no ordinal day, so the default is assembled by hand.
func DateFormat(t time.Time, layout ...string) string {
	if t.IsZero() {
		return ""
	}
	if len(layout) > 0 && layout[0] != "" && layout[0] != DefaultDateLayout {
		return t.Format(layout[0])
	}
	return t.Format("Jan") + " " + humanize.Ordinal(t.Day()) + ", " + t.Format("2006")
}

// Pluralize picks single when n is exactly 1.
func Pluralize(n int, single, plural string) string {
	if n == 1 {
		return single
	}
	return plural
}

// Comma renders n with thousands separators.
func Comma(n int) string {
	return humanize.Comma(int64(n))
}
