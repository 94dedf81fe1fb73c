package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a naive local calendar date. No timezone is attached.
type Date struct {
	Day   int `json:"day" yaml:"day"`
	Month int `json:"month" yaml:"month"`
	Year  int `json:"year" yaml:"year"`
}

// Time is a naive wall-clock time of day.
type Time struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the number of days in month (1-12) of year.
// It returns 0 for a month outside 1-12; callers validate first.
func DaysInMonth(month, year int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month-1]
}

// CompareDates orders dates by (year, month, day). The result is negative,
// zero or positive like strings.Compare.
func CompareDates(a, b Date) int {
	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(a.Month - b.Month)
	default:
		return sign(a.Day - b.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Valid reports whether d names a real calendar day.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	return d.Day >= 1 && d.Day <= DaysInMonth(d.Month, d.Year)
}

// String formats the date as DD/MM/YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%d", d.Day, d.Month, d.Year)
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Today returns the local calendar date.
func Today() Date {
	return FromTime(time.Now())
}

// FromTime drops the clock and zone from t.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Day: d, Month: int(m), Year: y}
}

// ParseDate parses DD/MM/YYYY.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("calendar: date %q is not DD/MM/YYYY", s)
	}
	n, err := atoiAll(parts)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: date %q: %w", s, err)
	}
	d := Date{Day: n[0], Month: n[1], Year: n[2]}
	if !d.Valid() {
		return Date{}, fmt.Errorf("calendar: date %q does not exist", s)
	}
	return d, nil
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("calendar: date %q is not YYYY-MM-DD", s)
	}
	n, err := atoiAll(parts)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: date %q: %w", s, err)
	}
	d := Date{Day: n[2], Month: n[1], Year: n[0]}
	if !d.Valid() {
		return Date{}, fmt.Errorf("calendar: date %q does not exist", s)
	}
	return d, nil
}

// ParseAnyDate accepts either DD/MM/YYYY or YYYY-MM-DD.
func ParseAnyDate(s string) (Date, error) {
	if strings.Contains(s, "-") {
		return ParseISODate(s)
	}
	return ParseDate(s)
}

// Valid reports whether t is within 00:00-23:59.
func (t Time) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Minutes returns minutes since midnight.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats the time as HH:MM.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTime parses HH:MM.
func ParseTime(s string) (Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Time{}, fmt.Errorf("calendar: time %q is not HH:MM", s)
	}
	n, err := atoiAll(parts)
	if err != nil {
		return Time{}, fmt.Errorf("calendar: time %q: %w", s, err)
	}
	t := Time{Hour: n[0], Minute: n[1]}
	if !t.Valid() {
		return Time{}, fmt.Errorf("calendar: time %q out of range", s)
	}
	return t, nil
}

func atoiAll(parts []string) ([]int, error) {
	out := make([]int, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, errors.New("empty component")
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
