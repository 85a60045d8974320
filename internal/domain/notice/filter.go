package notice

import (
	"errors"
	"strings"
)

// Filter selects which notices a projection includes.
type Filter string

// FilterAll matches every notice regardless of category.
const FilterAll Filter = "all"

// ErrInvalidFilter is returned for filter values outside {all} ∪ categories.
var ErrInvalidFilter = errors.New("filter must be one of: all, announcement, event, reminder, important")

// Filters lists every recognised filter value in display order.
var Filters = []Filter{
	FilterAll,
	Filter(CategoryAnnouncement),
	Filter(CategoryEvent),
	Filter(CategoryReminder),
	Filter(CategoryImportant),
}

// ParseFilter converts raw input into a Filter.
// PRE: none
// POST: empty input yields FilterAll; unknown input yields FilterAll and ErrInvalidFilter
func ParseFilter(raw string) (Filter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return FilterAll, nil
	}
	f := Filter(raw)
	if f == FilterAll || Category(f).Valid() {
		return f, nil
	}
	return FilterAll, ErrInvalidFilter
}

// Matches reports whether n belongs in a projection with this filter.
// An unrecognised filter behaves like FilterAll.
func (f Filter) Matches(n Notice) bool {
	if f == FilterAll || !Category(f).Valid() {
		return true
	}
	return n.Category == Category(f)
}

// Label returns the chip label, e.g. "All" or "Event".
func (f Filter) Label() string {
	return titleCase(string(f))
}
