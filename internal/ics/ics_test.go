package ics

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/calendar"
	"eventcal/internal/model"
)

func sample() []model.Event {
	return []model.Event{
		{ID: 1, Fields: model.Fields{
			Date:            calendar.Date{Day: 5, Month: 3, Year: 2024},
			Start:           calendar.Time{Hour: 9, Minute: 15},
			End:             calendar.Time{Hour: 10, Minute: 45},
			Description:     "planning, with \"quotes\"",
			Location:        "room 4",
			Priority:        model.PriorityHigh,
			Category:        model.CategoryMeeting,
			ReminderMinutes: 30,
		}},
		{ID: 2, Fields: model.Fields{
			Date:        calendar.Date{Day: 29, Month: 2, Year: 2024},
			Description: "leap day",
			Priority:    model.PriorityCritical,
			Category:    model.CategoryBirthday,
			AllDay:      true,
		}},
		{ID: 3, Deleted: true, Fields: model.Fields{Description: "gone"}},
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestExportThenParse(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	x := &Exporter{Now: fixedNow}
	n, err := x.Write(&buf, slices.Values(sample()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	body := buf.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:"+UID(1))
	assert.NotContains(t, body, "gone")

	fields, skipped, err := ParseICS(buf.Bytes())
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, fields, 2)

	assert.Equal(t, sample()[0].Fields, fields[0])
	assert.Equal(t, sample()[1].Fields, fields[1])
}

func TestUIDIsStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UID(7), UID(7))
	assert.NotEqual(t, UID(7), UID(8))
}

func TestParseICSDefaultsAndClamping(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240110T220000",
		"DTEND:20240111T010000",
		"SUMMARY:late show",
		"CATEGORIES:Fun,Personal",
		"PRIORITY:8",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240112T080000",
		"SUMMARY:no end",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:c",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:no start",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	fields, skipped, err := ParseICS([]byte(body))
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.Len(t, skipped, 1)
	assert.ErrorContains(t, skipped[0], `vevent "c"`)
	assert.ErrorContains(t, skipped[0], "missing DTSTART")

	assert.Equal(t, calendar.Time{Hour: 23, Minute: 59}, fields[0].End)
	assert.Equal(t, model.CategoryPersonal, fields[0].Category)
	assert.Equal(t, model.PriorityLow, fields[0].Priority)

	assert.Equal(t, calendar.Time{Hour: 9}, fields[1].End)
	assert.Equal(t, model.CategoryOther, fields[1].Category)
	assert.Equal(t, model.PriorityMedium, fields[1].Priority)
}

func TestParseICSRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, _, err := ParseICS(nil)
	assert.Error(t, err)
}

func TestParseTrigger(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"-PT15M":     15,
		"-PT1H30M":   90,
		"-P1D":       1440,
		"-P1W":       10080,
		"-P1DT2H":    1560,
		"-pt5m":      5,
		"-PT120S":    2,
		"PT15M":      0,
		"-PT":        0,
		"-PTXM":      0,
		"-P15M":      0,
		"-PT15":      0,
		"-PT0M":      0,
		"2024-01-01": 0,
	}

	for in, want := range tests {
		got, ok := parseTrigger(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want > 0, ok, in)
	}
}

func TestPriorityMapping(t *testing.T) {
	t.Parallel()

	for p := range model.Priority(model.NumPriorities) {
		assert.Equal(t, p, fromICSPriority(toICSPriority(p)))
	}
	assert.Equal(t, model.PriorityMedium, fromICSPriority(0))
}
