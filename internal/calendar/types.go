package calendar

import (
	"strings"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/nubip/schedsync/internal/model"
)

// Source is the provenance tag written on every event this system owns.
type Source struct {
	Title string
	URL   string
}

// Event is a recurring lesson event as stored in a remote calendar.
type Event struct {
	// RemoteID is the calendar's own event id. It is empty for events
	// computed from lessons.
	RemoteID string
	// UID is the iCalUID, equal to the lesson ID.
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	// Interval is the recurrence period in weeks.
	Interval int
	// Until is the last date of the recurrence, at midnight UTC.
	Until  time.Time
	Source Source
}

// Equal reports whether e and o describe the same lesson occurrence
// pattern. RemoteID, TimeZone and Source do not take part: the first is
// assigned by the remote store and the others are filters, not content.
func (e Event) Equal(o Event) bool {
	return NormalizeUID(e.UID) == NormalizeUID(o.UID) &&
		e.Summary == o.Summary &&
		e.Location == o.Location &&
		e.Description == o.Description &&
		e.Start.Equal(o.Start) &&
		e.End.Equal(o.End) &&
		e.Interval == o.Interval &&
		e.Until.Equal(o.Until)
}

func (e Event) String() string {
	return e.UID + " " + e.Summary
}

// NormalizeUID strips the "@google.com" style suffix the calendar adds to
// imported identifiers and canonicalizes UUIDs.
func NormalizeUID(uid string) string {
	uid, _, _ = strings.Cut(strings.TrimSpace(uid), "@")
	if id, err := uuid.Parse(uid); err == nil {
		return id.String()
	}
	return uid
}

// toEvent converts a Google Calendar event to an Event
func toEvent(ev *calendar.Event, loc *time.Location) Event {
	if ev == nil {
		return Event{}
	}
	out := Event{
		RemoteID:    ev.Id,
		UID:         NormalizeUID(ev.ICalUID),
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
	}

	if ev.Start != nil {
		out.Start = parseDateTime(ev.Start.DateTime)
		out.TimeZone = ev.Start.TimeZone
	}
	if ev.End != nil {
		out.End = parseDateTime(ev.End.DateTime)
	}

	if ev.Source != nil {
		out.Source = Source{Title: ev.Source.Title, URL: ev.Source.Url}
	}

	out.Interval, out.Until = ParseRecurrence(ev.Recurrence, loc)
	return out
}

func parseDateTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toAPIEvent builds the request body for import and update calls.
func toAPIEvent(e Event, loc *time.Location) (*calendar.Event, error) {
	rule, err := RecurrenceRule(e.Interval, e.Until, loc)
	if err != nil {
		return nil, err
	}
	tz := e.TimeZone
	if tz == "" {
		tz = loc.String()
	}
	return &calendar.Event{
		ICalUID:     e.UID,
		Summary:     e.Summary,
		Location:    e.Location,
		Description: e.Description,
		Start: &calendar.EventDateTime{
			DateTime: e.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: e.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Source: &calendar.EventSource{
			Title: e.Source.Title,
			Url:   e.Source.URL,
		},
		Recurrence: []string{rule},
	}, nil
}

// untilDate maps a recurrence end instant back to the calendar date it
// falls on in loc.
func untilDate(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	return model.DateOf(t.In(loc))
}
