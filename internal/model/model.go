package model

import (
	"fmt"
	"math"
	"strings"

	"eventcal/internal/calendar"
)

// Text bounds, in bytes. Longer input is truncated on a rune boundary.
const (
	MaxDescriptionLen = 199
	MaxLocationLen    = 99
)

// Numeric bounds of a persisted event.
const (
	MinYear            = math.MinInt32
	MaxYear            = math.MaxInt32
	MaxReminderMinutes = math.MaxUint32
)

// Priority ranks how important an event is.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical

	NumPriorities = 4
)

var priorityNames = [NumPriorities]string{"Low", "Medium", "High", "Critical"}

func (p Priority) String() string {
	if !p.Valid() {
		return "Unknown"
	}
	return priorityNames[p]
}

func (p Priority) Valid() bool {
	return p < NumPriorities
}

// ParsePriority matches a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown priority %d", p)
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Category groups events by kind.
type Category uint8

const (
	CategoryWork Category = iota
	CategoryPersonal
	CategoryBirthday
	CategoryMeeting
	CategoryAppointment
	CategoryReminder
	CategoryHoliday
	CategoryOther

	NumCategories = 8
)

var categoryNames = [NumCategories]string{
	"Work", "Personal", "Birthday", "Meeting",
	"Appointment", "Reminder", "Holiday", "Other",
}

func (c Category) String() string {
	if !c.Valid() {
		return "Unknown"
	}
	return categoryNames[c]
}

func (c Category) Valid() bool {
	return c < NumCategories
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %d", c)
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Fields is everything a caller supplies for an event. The store owns the
// id and the tombstone.
type Fields struct {
	Date            calendar.Date `json:"date"`
	Start           calendar.Time `json:"start"`
	End             calendar.Time `json:"end"`
	Description     string        `json:"description"`
	Location        string        `json:"location"`
	Priority        Priority      `json:"priority"`
	Category        Category      `json:"category"`
	AllDay          bool          `json:"all_day"`
	ReminderMinutes int           `json:"reminder_minutes"`
}

// Event is a stored calendar entry.
type Event struct {
	ID int `json:"id"`
	Fields

	// Deleted marks a tombstone. Never persisted.
	Deleted bool `json:"-"`
}

// TimeRange renders "HH:MM-HH:MM", or "All Day" for all-day events.
func (e Event) TimeRange() string {
	if e.AllDay {
		return "All Day"
	}
	return e.Start.String() + "-" + e.End.String()
}

// HasReminder reports whether a reminder is set.
func (e Event) HasReminder() bool {
	return e.ReminderMinutes > 0
}

// Normalize truncates the bounded text fields and clears the times of
// all-day events.
func (f *Fields) Normalize() {
	f.Description = Truncate(f.Description, MaxDescriptionLen)
	f.Location = Truncate(f.Location, MaxLocationLen)
	if f.AllDay {
		f.Start = calendar.Time{}
		f.End = calendar.Time{}
	}
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	// step back to the start of the rune that straddles the limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
