package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/schedule"
	"github.com/nubip/schedsync/internal/store"
)

// ErrNoCourseDigit is returned when a course label carries no year digit.
var ErrNoCourseDigit = errors.New("course label has no year digit")

// CourseLister lists the LMS courses a subject can be linked to.
type CourseLister interface {
	Courses(ctx context.Context) ([]lms.Course, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides time.Now, which drives enrollment year arithmetic.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithFaculty attaches resolved groups and specialties to a faculty.
func WithFaculty(name string) Option {
	return func(r *Resolver) { r.faculty = name }
}

// Resolver maps names read from a sheet to persisted entities, creating
// them when absent. A Resolver serves one import pass: the LMS course list
// is fetched at most once and groups are memoized by their raw header.
type Resolver struct {
	store   store.Store
	courses CourseLister
	faculty string
	now     func() time.Time
	logger  *slog.Logger

	courseList    []lms.Course
	coursesLoaded bool
	groups        map[schedule.RawGroup]*model.Group
	subjects      map[string]*model.Subject
}

// New returns a Resolver. courses may be nil, in which case subjects are
// never linked to LMS courses.
func New(s store.Store, courses CourseLister, opts ...Option) *Resolver {
	r := &Resolver{
		store:    s,
		courses:  courses,
		now:      time.Now,
		logger:   slog.Default(),
		groups:   make(map[schedule.RawGroup]*model.Group),
		subjects: make(map[string]*model.Subject),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.WithOperation(r.logger, "resolver")
	return r
}

// Group returns the persisted group for a column header.
func (r *Resolver) Group(ctx context.Context, raw schedule.RawGroup) (*model.Group, error) {
	if g, ok := r.groups[raw]; ok {
		return g, nil
	}

	now := r.now()
	year, err := EnrollmentYear(raw.Course, now)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", raw, err)
	}
	code := strings.TrimSpace(raw.Specialty)
	number := cleanNumber(raw.Number)

	spec, err := r.store.GetOrCreateSpecialty(ctx, code, r.faculty)
	if err != nil {
		return nil, err
	}
	g, err := r.store.GetOrCreateGroup(ctx, model.Group{
		Name:        model.GroupName(code, year, number),
		Year:        year,
		SpecialtyID: spec.ID,
		Number:      number,
		Type:        GroupType(raw.Course),
		FacultyName: r.faculty,
	})
	if err != nil {
		return nil, err
	}
	r.groups[raw] = g
	return g, nil
}

// Subject returns the persisted subject titled title. A subject without a
// course is linked to the most similar LMS course when one is similar
// enough.
func (r *Resolver) Subject(ctx context.Context, title string) (*model.Subject, error) {
	if s, ok := r.subjects[title]; ok {
		return s, nil
	}
	s, err := r.store.GetOrCreateSubject(ctx, title)
	if err != nil {
		return nil, err
	}
	if s.CourseID == nil && r.courses != nil {
		courses, err := r.courseCatalog(ctx)
		if err != nil {
			return nil, err
		}
		if course, score, ok := BestCourse(title, courses); ok {
			if err := r.store.SetSubjectCourse(ctx, s.ID, course.ID); err != nil {
				return nil, err
			}
			id := course.ID
			s.CourseID = &id
			r.logger.Debug("linked subject to course",
				slog.String("subject", title),
				slog.String("course", course.FullName),
				slog.Float64("similarity", score))
		} else {
			r.logger.Debug("no course matches subject", slog.String("subject", title))
		}
	}
	r.subjects[title] = s
	return s, nil
}

func (r *Resolver) courseCatalog(ctx context.Context) ([]lms.Course, error) {
	if r.coursesLoaded {
		return r.courseList, nil
	}
	courses, err := r.courses.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load LMS courses: %w", err)
	}
	r.courseList = courses
	r.coursesLoaded = true
	return courses, nil
}

// EnrollmentYear derives the year a group started from the first digit of
// its course label. After October the academic year has rolled over, so
// the year moves forward by one.
func EnrollmentYear(courseLabel string, now time.Time) (int, error) {
	for _, r := range courseLabel {
		if r >= '0' && r <= '9' {
			year := now.Year() - int(r-'0')
			if now.Month() > time.October {
				year++
			}
			return year, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", courseLabel, ErrNoCourseDigit)
}

// GroupType infers the study programme from a course label.
func GroupType(courseLabel string) model.GroupType {
	label := strings.ToLower(courseLabel)
	switch {
	case strings.Contains(label, "маг"):
		return model.GroupMaster
	case strings.Contains(label, "скор"):
		return model.GroupReduced
	default:
		return model.GroupBachelor
	}
}

func cleanNumber(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(s))
}
