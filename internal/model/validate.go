package model

import (
	"errors"
)

var (
	ErrEmptyDescription      = errors.New("description is required")
	ErrInvalidDate           = errors.New("date does not exist")
	ErrInvalidTime           = errors.New("time must be between 00:00 and 23:59")
	ErrEndBeforeOrEqualStart = errors.New("end time must be after start time")
	ErrInvalidReminder       = errors.New("reminder minutes out of range")
	ErrInvalidPriority       = errors.New("unknown priority")
	ErrInvalidCategory       = errors.New("unknown category")
)

// ValidationError names the rejected field. It unwraps to one of the Err*
// values above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Validate checks f without modifying it. Times are only checked for events
// that are not all-day.
func (f Fields) Validate() error {
	if len(f.Description) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if !f.Date.Valid() || f.Date.Year < MinYear || f.Date.Year > MaxYear {
		return invalid("date", ErrInvalidDate)
	}
	if !f.AllDay {
		if !f.Start.Valid() {
			return invalid("start", ErrInvalidTime)
		}
		if !f.End.Valid() {
			return invalid("end", ErrInvalidTime)
		}
		if f.End.Minutes() <= f.Start.Minutes() {
			return invalid("end", ErrEndBeforeOrEqualStart)
		}
	}
	if f.ReminderMinutes < 0 || int64(f.ReminderMinutes) > MaxReminderMinutes {
		return invalid("reminder_minutes", ErrInvalidReminder)
	}
	if !f.Priority.Valid() {
		return invalid("priority", ErrInvalidPriority)
	}
	if !f.Category.Valid() {
		return invalid("category", ErrInvalidCategory)
	}
	return nil
}
