package sync

import (
	"fmt"
	"time"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/model"
)

// FirstOccurrence returns the date of a lesson's first meeting in a
// semester, at midnight UTC.
//
// Days are counted from the Monday of the week the semester starts in.
// An alternating lesson whose parity differs from the semester's week type
// moves one week later. A date that still falls before the semester start
// moves one full cycle later so the parity is kept.
func FirstOccurrence(day model.DayOfWeek, freq model.WeekFrequency, sem model.Semester) time.Time {
	start := model.DateOf(sem.StartDate)
	monday := start.AddDate(0, 0, -((int(start.Weekday()) + 6) % 7))

	offset := int(day)
	if freq != model.EachWeek && freq != sem.WeekType {
		offset += 7
	}
	date := monday.AddDate(0, 0, offset)
	if date.Before(start) {
		if freq.Alternating() {
			date = date.AddDate(0, 0, 14)
		} else {
			date = date.AddDate(0, 0, 7)
		}
	}
	return date
}

// EventFromLesson computes the recurring event for a lesson. The
// description is left empty; it depends on who the event is for.
func EventFromLesson(l model.Lesson, sem model.Semester, slot model.LessonNumber, loc *time.Location) (calendar.Event, error) {
	if !l.DayOfWeek.Valid() {
		return calendar.Event{}, fmt.Errorf("lesson %s: invalid day %s", l.ID, l.DayOfWeek)
	}
	if slot.Number != l.LessonNumber {
		return calendar.Event{}, fmt.Errorf("lesson %s: slot %d does not match lesson number %d", l.ID, slot.Number, l.LessonNumber)
	}
	if loc == nil {
		loc = time.UTC
	}

	date := FirstOccurrence(l.DayOfWeek, l.Frequency, sem)
	interval := 1
	if l.Frequency.Alternating() {
		interval = 2
	}
	return calendar.Event{
		UID:      l.ID,
		Summary:  l.SubjectTitle,
		Location: l.Location,
		Start:    atMinute(date, slot.StartMinute, loc),
		End:      atMinute(date, slot.EndMinute, loc),
		TimeZone: loc.String(),
		Interval: interval,
		Until:    model.DateOf(sem.EndDate),
	}, nil
}

// atMinute places a wall-clock minute of day on date in loc.
func atMinute(date time.Time, minute int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, loc)
}
