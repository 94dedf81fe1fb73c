package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/calendar"
)

func validFields() Fields {
	return Fields{
		Date:        calendar.Date{Day: 1, Month: 1, Year: 2024},
		Start:       calendar.Time{Hour: 10},
		End:         calendar.Time{Hour: 11},
		Description: "team sync",
		Priority:    PriorityHigh,
		Category:    CategoryWork,
	}
}

func TestFieldsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(f *Fields)
		wantErr error
	}{
		{name: "valid event", mutate: func(*Fields) {}},
		{name: "empty description", mutate: func(f *Fields) { f.Description = "" }, wantErr: ErrEmptyDescription},
		{name: "invalid date", mutate: func(f *Fields) { f.Date = calendar.Date{Day: 30, Month: 2, Year: 2024} }, wantErr: ErrInvalidDate},
		{name: "start hour out of range", mutate: func(f *Fields) { f.Start.Hour = 24 }, wantErr: ErrInvalidTime},
		{name: "end minute out of range", mutate: func(f *Fields) { f.End.Minute = 60 }, wantErr: ErrInvalidTime},
		{
			name: "end before start",
			mutate: func(f *Fields) {
				f.Start = calendar.Time{Hour: 10}
				f.End = calendar.Time{Hour: 9}
			},
			wantErr: ErrEndBeforeOrEqualStart,
		},
		{name: "end equals start", mutate: func(f *Fields) { f.End = f.Start }, wantErr: ErrEndBeforeOrEqualStart},
		{
			name: "all day ignores times",
			mutate: func(f *Fields) {
				f.AllDay = true
				f.Start = calendar.Time{Hour: 10}
				f.End = calendar.Time{Hour: 9}
			},
		},
		{
			name: "all day ignores out of range times",
			mutate: func(f *Fields) {
				f.AllDay = true
				f.Start = calendar.Time{Hour: 99}
			},
		},
		{name: "negative reminder", mutate: func(f *Fields) { f.ReminderMinutes = -1 }, wantErr: ErrInvalidReminder},
		{name: "largest reminder", mutate: func(f *Fields) { f.ReminderMinutes = MaxReminderMinutes }},
		{name: "reminder too large", mutate: func(f *Fields) { f.ReminderMinutes = MaxReminderMinutes + 1 }, wantErr: ErrInvalidReminder},
		{name: "largest year", mutate: func(f *Fields) { f.Date.Year = MaxYear }},
		{name: "smallest year", mutate: func(f *Fields) { f.Date.Year = MinYear }},
		{name: "year too large", mutate: func(f *Fields) { f.Date.Year = MaxYear + 1 }, wantErr: ErrInvalidDate},
		{name: "year too small", mutate: func(f *Fields) { f.Date.Year = MinYear - 1 }, wantErr: ErrInvalidDate},
		{name: "unknown priority", mutate: func(f *Fields) { f.Priority = 9 }, wantErr: ErrInvalidPriority},
		{name: "unknown category", mutate: func(f *Fields) { f.Category = 8 }, wantErr: ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := validFields()
			tt.mutate(&f)

			err := f.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Field)
		})
	}
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	f := validFields()
	f.Description = strings.Repeat("a", MaxDescriptionLen-1) + "é"
	f.Location = strings.Repeat("x", MaxLocationLen+20)
	f.Normalize()

	assert.Equal(t, strings.Repeat("a", MaxDescriptionLen-1), f.Description)
	assert.Len(t, f.Location, MaxLocationLen)
}

func TestNormalizeClearsAllDayTimes(t *testing.T) {
	t.Parallel()

	f := validFields()
	f.Normalize()
	assert.Equal(t, calendar.Time{Hour: 10}, f.Start, "timed events keep their times")

	f.AllDay = true
	f.Start = calendar.Time{Hour: 25, Minute: 70}
	f.End = calendar.Time{Hour: -1}
	f.Normalize()
	assert.Equal(t, calendar.Time{}, f.Start)
	assert.Equal(t, calendar.Time{}, f.End)
}

func TestEnumNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Critical", PriorityCritical.String())
	assert.Equal(t, "Appointment", CategoryAppointment.String())
	assert.Equal(t, "Unknown", Priority(7).String())

	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	c, err := ParseCategory(" Holiday ")
	require.NoError(t, err)
	assert.Equal(t, CategoryHoliday, c)

	_, err = ParseCategory("chores")
	assert.Error(t, err)
}

func TestTimeRange(t *testing.T) {
	t.Parallel()

	e := Event{ID: 1, Fields: validFields()}
	assert.Equal(t, "10:00-11:00", e.TimeRange())

	e.AllDay = true
	assert.Equal(t, "All Day", e.TimeRange())
}
