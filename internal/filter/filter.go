package filter

import (
	"strings"

	"eventcal/internal/calendar"
	"eventcal/internal/model"
)

// Filter is a conjunction of optional constraints. The zero value matches
// every event. Builders return modified copies, so a Filter can be shared.
type Filter struct {
	date     *calendar.Date
	text     string
	category *model.Category
	priority *model.Priority
}

// New returns the empty filter.
func New() Filter {
	return Filter{}
}

// OnDate keeps events on exactly d.
func (f Filter) OnDate(d calendar.Date) Filter {
	f.date = &d
	return f
}

// Today keeps events on the local current date.
func (f Filter) Today() Filter {
	return f.OnDate(calendar.Today())
}

// TextContains keeps events whose description contains s, ignoring case.
// An empty s imposes no constraint.
func (f Filter) TextContains(s string) Filter {
	f.text = strings.ToLower(s)
	return f
}

// InCategory keeps events of category c.
func (f Filter) InCategory(c model.Category) Filter {
	f.category = &c
	return f
}

// WithPriority keeps events of priority p.
func (f Filter) WithPriority(p model.Priority) Filter {
	f.priority = &p
	return f
}

// IsZero reports whether f imposes no constraint.
func (f Filter) IsZero() bool {
	return f.date == nil && f.text == "" && f.category == nil && f.priority == nil
}

// Match reports whether e satisfies every present constraint. Tombstones
// are the store's concern, not the filter's.
func (f Filter) Match(e model.Event) bool {
	if f.date != nil && calendar.CompareDates(e.Date, *f.date) != 0 {
		return false
	}
	if f.category != nil && e.Category != *f.category {
		return false
	}
	if f.priority != nil && e.Priority != *f.priority {
		return false
	}
	if f.text != "" && !strings.Contains(strings.ToLower(e.Description), f.text) {
		return false
	}
	return true
}

// String summarizes the active constraints for logs.
func (f Filter) String() string {
	if f.IsZero() {
		return "all"
	}
	parts := make([]string, 0, 4)
	if f.date != nil {
		parts = append(parts, "date="+f.date.String())
	}
	if f.text != "" {
		parts = append(parts, "text="+f.text)
	}
	if f.category != nil {
		parts = append(parts, "category="+f.category.String())
	}
	if f.priority != nil {
		parts = append(parts, "priority="+f.priority.String())
	}
	return strings.Join(parts, " ")
}
