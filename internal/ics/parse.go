package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventcal/internal/calendar"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

const (
	floatingLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
	dateLayout     = "20060102"
)

// ParseICS converts the VEVENTs of an iCalendar payload into event fields
// ready for the store.
//
//   - DTSTART with VALUE=DATE, or without a time part, makes an all-day event.
//   - UTC times are converted to local wall-clock time; floating and TZID
//     times are taken as written.
//   - The first CATEGORIES value that names a known category is used,
//     otherwise Other.
//   - The first VALARM with a relative TRIGGER before the start sets the
//     reminder.
//
// Events that cannot be mapped are logged and returned in skipped, one error
// per VEVENT. RRULEs are ignored: only the first occurrence is imported.
func ParseICS(body []byte) (events []model.Fields, skipped []error, err error) {
	if len(body) == 0 {
		return nil, nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse ics: %w", err)
	}

	out := make([]model.Fields, 0)
	for _, ve := range cal.Events() {
		f, perr := parseVEvent(ve)
		if perr != nil {
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			appLog.Error("ics vevent skipped", perr, "uid", uid)
			skipped = append(skipped, fmt.Errorf("vevent %q: %w", uid, perr))
			continue
		}
		out = append(out, f)
	}

	appLog.Debug("ics parse completed", "event_count", len(out), "skipped", len(skipped))
	return out, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (model.Fields, error) {
	var f model.Fields

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		f.Description = unescapeText(p.Value)
	}
	if f.Description == "" {
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			f.Description = unescapeText(p.Value)
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		f.Location = unescapeText(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return f, errors.New("missing DTSTART")
	}
	start, allDay, err := parseICSTime(dtStart)
	if err != nil {
		return f, fmt.Errorf("DTSTART: %w", err)
	}
	f.Date = calendar.FromTime(start)
	f.AllDay = allDay

	if !allDay {
		f.Start = calendar.Time{Hour: start.Hour(), Minute: start.Minute()}

		end := start.Add(time.Hour)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil && dtEnd.Value != "" {
			if end, _, err = parseICSTime(dtEnd); err != nil {
				return f, fmt.Errorf("DTEND: %w", err)
			}
		}
		// A single-day event model cannot carry a DTEND past midnight.
		if calendar.FromTime(end) != f.Date {
			end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 0, 0, start.Location())
		}
		f.End = calendar.Time{Hour: end.Hour(), Minute: end.Minute()}
	}

	f.Priority = model.PriorityMedium
	if p := ve.GetProperty(ical.ComponentPropertyPriority); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			f.Priority = fromICSPriority(n)
		}
	}

	f.Category = model.CategoryOther
	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		if c, ok := firstCategory(p.Value); ok {
			f.Category = c
			break
		}
	}

	for _, comp := range ve.Components {
		alarm, ok := comp.(*ical.VAlarm)
		if !ok {
			continue
		}
		trigger := alarm.GetProperty(ical.ComponentPropertyTrigger)
		if trigger == nil {
			continue
		}
		if mins, ok := parseTrigger(trigger.Value); ok {
			f.ReminderMinutes = mins
			break
		}
	}

	f.Normalize()
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func firstCategory(value string) (model.Category, bool) {
	for _, part := range strings.Split(value, ",") {
		if c, err := model.ParseCategory(unescapeText(part)); err == nil {
			return c, true
		}
	}
	return 0, false
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n")

// unescapeText undoes RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// parseICSTime reads a DATE or DATE-TIME property as a naive local value.
func parseICSTime(p *ical.IANAProperty) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)

	isDate := !strings.Contains(v, "T")
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}

	switch {
	case isDate:
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		return t, true, err
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(utcLayout, v)
		return t.In(time.Local), false, err
	default:
		t, err := time.ParseInLocation(floatingLayout, v, time.Local)
		return t, false, err
	}
}

// parseTrigger accepts negative relative durations such as -PT15M, -PT1H30M
// or -P1D and returns minutes before the start.
func parseTrigger(v string) (int, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if !strings.HasPrefix(v, "-P") {
		return 0, false
	}
	v = strings.TrimPrefix(v, "-P")

	total := 0
	inTime := false
	num := ""
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			if num == "" {
				return 0, false
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			num = ""
			switch {
			case r == 'W' && !inTime:
				total += n * 7 * 24 * 60
			case r == 'D' && !inTime:
				total += n * 24 * 60
			case r == 'H' && inTime:
				total += n * 60
			case r == 'M' && inTime:
				total += n
			case r == 'S' && inTime:
				total += n / 60
			default:
				return 0, false
			}
		}
	}
	if num != "" || total <= 0 {
		return 0, false
	}
	return total, true
}
