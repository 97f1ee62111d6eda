package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubip/schedsync/internal/model"
)

// autumn starts on a Tuesday in a numerator week.
var autumn = model.Semester{
	ID:        1,
	StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	EndDate:   time.Date(2026, 12, 27, 0, 0, 0, 0, time.UTC),
	WeekType:  model.Numerator,
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFirstOccurrence(t *testing.T) {
	tests := []struct {
		name string
		day  model.DayOfWeek
		freq model.WeekFrequency
		want time.Time
	}{
		{"each week after start", model.Wednesday, model.EachWeek, date(2026, 9, 2)},
		{"each week on start", model.Tuesday, model.EachWeek, date(2026, 9, 1)},
		{"each week before start", model.Monday, model.EachWeek, date(2026, 9, 7)},
		{"matching parity", model.Wednesday, model.Numerator, date(2026, 9, 2)},
		{"other parity", model.Wednesday, model.Denominator, date(2026, 9, 9)},
		{"matching parity before start", model.Monday, model.Numerator, date(2026, 9, 14)},
		{"other parity before start", model.Monday, model.Denominator, date(2026, 9, 7)},
		{"sunday", model.Sunday, model.Denominator, date(2026, 9, 13)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstOccurrence(tt.day, tt.freq, autumn)
			assert.Equal(t, tt.want, got, "got %s", got.Format(time.DateOnly))
			assert.False(t, got.Before(autumn.StartDate))
		})
	}
}

func TestFirstOccurrenceParityHolds(t *testing.T) {
	spring := autumn
	spring.StartDate = date(2027, 2, 8) // a Monday
	spring.EndDate = date(2027, 6, 30)
	spring.WeekType = model.Denominator

	for day := model.Monday; day <= model.Sunday; day++ {
		num := FirstOccurrence(day, model.Numerator, spring)
		den := FirstOccurrence(day, model.Denominator, spring)
		diff := num.Sub(den)
		assert.Equal(t, 7*24*time.Hour, diff.Abs(), "%s alternates with its counterpart", day)
		assert.True(t, den.Before(num), "%s: the semester week type comes first", day)
	}
}

func TestEventFromLesson(t *testing.T) {
	loc := kyiv(t)
	slot := model.LessonNumber{Number: 2, StartMinute: 10*60 + 10, EndMinute: 11*60 + 30}
	lesson := model.Lesson{
		ID:           "0b7c4f7e-2f38-4bb3-9d0e-4d9b0a0c6d51",
		DayOfWeek:    model.Wednesday,
		Frequency:    model.Denominator,
		LessonNumber: 2,
		SemesterID:   autumn.ID,
		SubjectTitle: "Operating Systems",
		Location:     "201 к.305",
	}

	ev, err := EventFromLesson(lesson, autumn, slot, loc)
	require.NoError(t, err)
	assert.Equal(t, lesson.ID, ev.UID)
	assert.Equal(t, "Operating Systems", ev.Summary)
	assert.Equal(t, "201 к.305", ev.Location)
	assert.True(t, ev.Start.Equal(time.Date(2026, 9, 9, 10, 10, 0, 0, loc)), "start %s", ev.Start)
	assert.True(t, ev.End.Equal(time.Date(2026, 9, 9, 11, 30, 0, 0, loc)), "end %s", ev.End)
	assert.Equal(t, 2, ev.Interval)
	assert.Equal(t, date(2026, 12, 27), ev.Until)
	assert.Equal(t, "Europe/Kyiv", ev.TimeZone)

	lesson.Frequency = model.EachWeek
	ev, err = EventFromLesson(lesson, autumn, slot, loc)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Interval)
	assert.Equal(t, 2, ev.Start.Day())

	_, err = EventFromLesson(lesson, autumn, model.LessonNumber{Number: 3}, loc)
	assert.Error(t, err)

	lesson.DayOfWeek = model.DayOfWeek(9)
	_, err = EventFromLesson(lesson, autumn, slot, loc)
	assert.Error(t, err)
}
