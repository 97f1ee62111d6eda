package store

import (
	"context"
	"errors"
	"time"

	"github.com/nubip/schedsync/internal/model"
)

// ErrNotFound is returned by keyed lookups that match nothing.
var ErrNotFound = errors.New("not found")

// LessonFilter narrows Lessons. A nil slice does not restrict the result;
// an empty, non-nil slice matches nothing.
type LessonFilter struct {
	IDs         []string
	SemesterIDs []int64
	CourseIDs   []int64
	GroupNames  []string
}

func (f LessonFilter) empty() bool {
	return (f.IDs != nil && len(f.IDs) == 0) ||
		(f.SemesterIDs != nil && len(f.SemesterIDs) == 0) ||
		(f.CourseIDs != nil && len(f.CourseIDs) == 0) ||
		(f.GroupNames != nil && len(f.GroupNames) == 0)
}

// Store is the schedule persistence layer.
type Store interface {
	Semester(ctx context.Context, id int64) (*model.Semester, error)
	Semesters(ctx context.Context) ([]model.Semester, error)
	CreateSemester(ctx context.Context, s *model.Semester) error

	EnsureFaculty(ctx context.Context, name string) error
	GetOrCreateSpecialty(ctx context.Context, code, faculty string) (*model.Specialty, error)
	// GetOrCreateGroup looks a group up by (year, specialty, number).
	GetOrCreateGroup(ctx context.Context, g model.Group) (*model.Group, error)
	GetOrCreateSubject(ctx context.Context, title string) (*model.Subject, error)
	SetSubjectCourse(ctx context.Context, subjectID, courseID int64) error

	SaveLessonNumbers(ctx context.Context, numbers []model.LessonNumber) error
	LessonNumbers(ctx context.Context) (map[int]model.LessonNumber, error)

	// UpsertLesson matches on (subject, day, lesson number, frequency,
	// semester). A new lesson gets a fresh ID; an existing one keeps its ID,
	// meeting URL and type, takes the new location and gains groupIDs.
	UpsertLesson(ctx context.Context, l *model.Lesson, groupIDs []int64) (created bool, err error)
	DeleteLessons(ctx context.Context, semesterID int64) (int64, error)
	Lessons(ctx context.Context, f LessonFilter) ([]model.Lesson, error)
	SetMeetingURL(ctx context.Context, ids []string, url string) (int64, error)
	SetLessonType(ctx context.Context, ids []string, t model.LessonType) (int64, error)

	AddScheduleFile(ctx context.Context, f *model.ScheduleFile) error
	PendingScheduleFiles(ctx context.Context) ([]model.ScheduleFile, error)
	MarkScheduleFile(ctx context.Context, id int64, processedAt time.Time, errText string) error
}

// ActiveSemesters returns the semesters running on day.
func ActiveSemesters(ctx context.Context, s Store, day time.Time) ([]model.Semester, error) {
	all, err := s.Semesters(ctx)
	if err != nil {
		return nil, err
	}
	var active []model.Semester
	for _, sem := range all {
		if sem.ActiveOn(day) {
			active = append(active, sem)
		}
	}
	return active, nil
}
