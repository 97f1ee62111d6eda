package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubip/schedsync/internal/model"
)

func seedMemory(t *testing.T) (*Memory, *model.Semester) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	sem := &model.Semester{
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 27, 0, 0, 0, 0, time.UTC),
		WeekType:  model.Numerator,
	}
	require.NoError(t, m.CreateSemester(ctx, sem))
	return m, sem
}

func TestMemoryUpsertLessonKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	m, sem := seedMemory(t)

	spec, err := m.GetOrCreateSpecialty(ctx, "КН", "ФІТ")
	require.NoError(t, err)
	g1, err := m.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-1", Year: 2024, SpecialtyID: spec.ID, Number: "1"})
	require.NoError(t, err)
	g2, err := m.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-2", Year: 2024, SpecialtyID: spec.ID, Number: "2"})
	require.NoError(t, err)
	subject, err := m.GetOrCreateSubject(ctx, "Operating Systems")
	require.NoError(t, err)

	first := &model.Lesson{DayOfWeek: model.Monday, Frequency: model.EachWeek, LessonNumber: 1,
		SemesterID: sem.ID, SubjectID: subject.ID, Location: "201 к.305"}
	created, err := m.UpsertLesson(ctx, first, []int64{g1.ID})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, first.ID)

	n, err := m.SetMeetingURL(ctx, []string{first.ID}, "https://meet.google.com/abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	again := &model.Lesson{DayOfWeek: model.Monday, Frequency: model.EachWeek, LessonNumber: 1,
		SemesterID: sem.ID, SubjectID: subject.ID, Location: "202 к.305"}
	created, err = m.UpsertLesson(ctx, again, []int64{g2.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	lessons, err := m.Lessons(ctx, LessonFilter{})
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "202 к.305", lessons[0].Location)
	assert.Equal(t, "https://meet.google.com/abc", lessons[0].MeetingURL, "re-import keeps admin edits")
	assert.Equal(t, []string{"КН-24-1", "КН-24-2"}, lessons[0].Groups)
	assert.Equal(t, "Operating Systems", lessons[0].SubjectTitle)
}

func TestMemoryGetOrCreateIsKeyed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.GetOrCreateSpecialty(ctx, "ІПЗ", "")
	require.NoError(t, err)
	b, err := m.GetOrCreateSpecialty(ctx, "ІПЗ", "ФІТ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "ФІТ", b.FacultyName)

	g1, err := m.GetOrCreateGroup(ctx, model.Group{Name: "ІПЗ-23-1", Year: 2023, SpecialtyID: a.ID, Number: "1"})
	require.NoError(t, err)
	g2, err := m.GetOrCreateGroup(ctx, model.Group{Name: "ІПЗ-23-1", Year: 2023, SpecialtyID: a.ID, Number: "1"})
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)

	s1, err := m.GetOrCreateSubject(ctx, "Databases")
	require.NoError(t, err)
	require.NoError(t, m.SetSubjectCourse(ctx, s1.ID, 77))
	s2, err := m.GetOrCreateSubject(ctx, "Databases")
	require.NoError(t, err)
	require.NotNil(t, s2.CourseID)
	assert.Equal(t, int64(77), *s2.CourseID)

	assert.ErrorIs(t, m.SetSubjectCourse(ctx, 999, 1), ErrNotFound)
}

func TestMemoryLessonFilter(t *testing.T) {
	ctx := context.Background()
	m, sem := seedMemory(t)

	spec, _ := m.GetOrCreateSpecialty(ctx, "КН", "")
	g1, _ := m.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-1", Year: 2024, SpecialtyID: spec.ID, Number: "1"})
	g2, _ := m.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-2", Year: 2024, SpecialtyID: spec.ID, Number: "2"})
	linked, _ := m.GetOrCreateSubject(ctx, "Networks")
	require.NoError(t, m.SetSubjectCourse(ctx, linked.ID, 10))
	unlinked, _ := m.GetOrCreateSubject(ctx, "Physics")

	_, err := m.UpsertLesson(ctx, &model.Lesson{DayOfWeek: model.Monday, Frequency: model.EachWeek, LessonNumber: 1,
		SemesterID: sem.ID, SubjectID: linked.ID}, []int64{g1.ID})
	require.NoError(t, err)
	_, err = m.UpsertLesson(ctx, &model.Lesson{DayOfWeek: model.Friday, Frequency: model.Numerator, LessonNumber: 2,
		SemesterID: sem.ID, SubjectID: unlinked.ID}, []int64{g2.ID})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter LessonFilter
		want   []string
	}{
		{"no filter", LessonFilter{}, []string{"Networks", "Physics"}},
		{"course", LessonFilter{CourseIDs: []int64{10}}, []string{"Networks"}},
		{"group", LessonFilter{GroupNames: []string{"КН-24-2"}}, []string{"Physics"}},
		{"course and group", LessonFilter{CourseIDs: []int64{10}, GroupNames: []string{"КН-24-2"}}, nil},
		{"empty course list", LessonFilter{CourseIDs: []int64{}}, nil},
		{"other semester", LessonFilter{SemesterIDs: []int64{sem.ID + 100}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lessons, err := m.Lessons(ctx, tt.filter)
			require.NoError(t, err)
			var titles []string
			for _, l := range lessons {
				titles = append(titles, l.SubjectTitle)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	n, err := m.DeleteLessons(ctx, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	lessons, err := m.Lessons(ctx, LessonFilter{})
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestMemoryScheduleFiles(t *testing.T) {
	ctx := context.Background()
	m, sem := seedMemory(t)

	later := &model.ScheduleFile{Path: "b.xlsx", SemesterID: sem.ID, UploadedAt: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)}
	earlier := &model.ScheduleFile{Path: "a.xlsx", SemesterID: sem.ID, UploadedAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, m.AddScheduleFile(ctx, later))
	require.NoError(t, m.AddScheduleFile(ctx, earlier))

	pending, err := m.PendingScheduleFiles(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a.xlsx", pending[0].Path)

	require.NoError(t, m.MarkScheduleFile(ctx, earlier.ID, time.Now(), "no groups"))
	pending, err = m.PendingScheduleFiles(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b.xlsx", pending[0].Path)
}

func TestActiveSemesters(t *testing.T) {
	ctx := context.Background()
	m, sem := seedMemory(t)
	require.NoError(t, m.CreateSemester(ctx, &model.Semester{
		StartDate: time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
		WeekType:  model.Denominator,
	}))

	active, err := ActiveSemesters(ctx, m, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sem.ID, active[0].ID)

	active, err = ActiveSemesters(ctx, m, time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, active)
}
