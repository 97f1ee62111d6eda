package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/nubip/schedsync/internal/calendar"
)

const localTimestamp = "20060102T150405"

// Options describe the exported calendar.
type Options struct {
	// ProductID is written as PRODID.
	ProductID string
	// Name is written as X-WR-CALNAME when set.
	Name string
	// Stamp is written as DTSTAMP of every event; zero means now.
	Stamp time.Time
}

// Build converts events into an iCalendar document. Start and end are
// written as local wall time with a TZID so weekly recurrences keep their
// hour across daylight saving changes.
func Build(events []calendar.Event, opts Options) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	if opts.ProductID != "" {
		cal.SetProductId(opts.ProductID)
	}
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, e := range events {
		loc := time.UTC
		if e.TimeZone != "" {
			l, err := time.LoadLocation(e.TimeZone)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", e.UID, err)
			}
			loc = l
		}

		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Summary)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Source.URL != "" {
			ev.SetURL(e.Source.URL)
		}
		ev.SetProperty(ical.ComponentPropertyDtStart, e.Start.In(loc).Format(localTimestamp), ical.WithTZID(loc.String()))
		ev.SetProperty(ical.ComponentPropertyDtEnd, e.End.In(loc).Format(localTimestamp), ical.WithTZID(loc.String()))

		if e.Interval > 0 {
			rule, err := calendar.RecurrenceRule(e.Interval, e.Until, loc)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", e.UID, err)
			}
			ev.AddRrule(strings.TrimPrefix(rule, "RRULE:"))
		}
	}
	return cal, nil
}

// Write renders events as an iCalendar file to w.
func Write(w io.Writer, events []calendar.Event, opts Options) error {
	cal, err := Build(events, opts)
	if err != nil {
		return err
	}
	return cal.SerializeTo(w)
}
