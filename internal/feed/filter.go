package feed

import (
	"strings"

	"github.com/expothearchive/archive-backend/internal/archive"
)

// TypeFilter restricts the view to one entry type, or passes everything.
type TypeFilter string

const (
	FilterAll   TypeFilter = "all"
	FilterText  TypeFilter = "text"
	FilterImage TypeFilter = "image"
)

// ParseTypeFilter maps a query-string value onto a TypeFilter; anything
// unrecognized (including empty) means no type restriction.
func ParseTypeFilter(s string) TypeFilter {
	switch TypeFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterText:
		return FilterText
	case FilterImage:
		return FilterImage
	default:
		return FilterAll
	}
}

// Filter computes the displayed subset of entries: an entry is included iff
// it matches the type filter AND the search query. Pure — the input slice is
// never mutated and output order follows input order.
func Filter(entries []*archive.Entry, f TypeFilter, query string) []*archive.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*archive.Entry, 0, len(entries))
	for _, e := range entries {
		if f != FilterAll && string(e.Type) != string(f) {
			continue
		}
		if q != "" && !matchesQuery(e, q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// matchesQuery is a case-insensitive substring match over content, title and
// tags; any one hit includes the entry.
func matchesQuery(e *archive.Entry, q string) bool {
	return strings.Contains(strings.ToLower(e.Content), q) ||
		strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Tags), q)
}
