package ics

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"eventcal/internal/model"
)

const productID = "-//eventcal//Personal Event Tracker//EN"

// uidSpace derives stable UIDs so re-exports of the same event line up in
// calendar clients.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://eventcal.local/events"))

// Exporter renders events as an iCalendar (RFC 5545) document. Times are
// written as floating local times since events carry no zone.
type Exporter struct {
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

func NewExporter() *Exporter {
	return &Exporter{Now: time.Now}
}

// UID returns the iCalendar UID used for an event id.
func UID(id int) string {
	return uuid.NewSHA1(uidSpace, []byte(strconv.Itoa(id))).String()
}

// Write serializes visible events to w and returns how many were written.
func (x *Exporter) Write(w io.Writer, events iter.Seq[model.Event]) (int, error) {
	now := time.Now
	if x.Now != nil {
		now = x.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	n := 0
	for e := range events {
		if e.Deleted {
			continue
		}
		addEvent(cal, e, stamp)
		n++
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return 0, fmt.Errorf("write ics: %w", err)
	}
	return n, nil
}

func addEvent(cal *ical.Calendar, e model.Event, stamp time.Time) {
	ve := cal.AddEvent(UID(e.ID))
	ve.SetDtStampTime(stamp)
	ve.SetSummary(e.Description)
	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	ve.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(toICSPriority(e.Priority)))
	ve.SetProperty(ical.ComponentPropertyCategories, e.Category.String())

	// UTC only as a zone-free carrier; the layouts below print no offset.
	day := time.Date(e.Date.Year, time.Month(e.Date.Month), e.Date.Day, 0, 0, 0, 0, time.UTC)
	if e.AllDay {
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
	} else {
		start := time.Date(e.Date.Year, time.Month(e.Date.Month), e.Date.Day, e.Start.Hour, e.Start.Minute, 0, 0, time.UTC)
		end := time.Date(e.Date.Year, time.Month(e.Date.Month), e.Date.Day, e.End.Hour, e.End.Minute, 0, 0, time.UTC)
		ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
	}

	if e.HasReminder() {
		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetProperty(ical.ComponentPropertyDescription, e.Description)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", e.ReminderMinutes))
	}
}

// iCalendar PRIORITY runs 1 (highest) to 9 (lowest); 0 is undefined.
func toICSPriority(p model.Priority) int {
	switch p {
	case model.PriorityCritical:
		return 1
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 5
	default:
		return 9
	}
}

func fromICSPriority(n int) model.Priority {
	switch {
	case n == 0:
		return model.PriorityMedium
	case n <= 2:
		return model.PriorityCritical
	case n <= 4:
		return model.PriorityHigh
	case n == 5:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
