package store

import (
	"eventcal/internal/filter"
	"eventcal/internal/model"
)

// Stats aggregates the visible events. Computed on demand, never cached.
type Stats struct {
	Total        int                      `json:"total"`
	AllDay       int                      `json:"all_day"`
	WithReminder int                      `json:"with_reminder"`
	ByPriority   [model.NumPriorities]int `json:"-"`
	ByCategory   [model.NumCategories]int `json:"-"`
}

func (s *Store) Stats() Stats {
	var st Stats
	for e := range s.Query(filter.Filter{}) {
		st.Total++
		if e.AllDay {
			st.AllDay++
		}
		if e.HasReminder() {
			st.WithReminder++
		}
		st.ByPriority[e.Priority]++
		st.ByCategory[e.Category]++
	}
	return st
}

// PriorityCounts keys ByPriority by name.
func (st Stats) PriorityCounts() map[string]int {
	out := make(map[string]int, model.NumPriorities)
	for i, n := range st.ByPriority {
		out[model.Priority(i).String()] = n
	}
	return out
}

// CategoryCounts keys ByCategory by name.
func (st Stats) CategoryCounts() map[string]int {
	out := make(map[string]int, model.NumCategories)
	for i, n := range st.ByCategory {
		out[model.Category(i).String()] = n
	}
	return out
}
