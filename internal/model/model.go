package model

import (
	"fmt"
	"net/url"
	"time"
)

// DayOfWeek is the zero-based weekday used by the schedule (0 = Monday).
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d DayOfWeek) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// Valid reports whether d is within Monday..Sunday.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

// WeekFrequency tells in which weeks of the alternating cycle a lesson occurs.
type WeekFrequency int

const (
	EachWeek    WeekFrequency = 1
	Numerator   WeekFrequency = 2
	Denominator WeekFrequency = 3
)

func (f WeekFrequency) String() string {
	switch f {
	case EachWeek:
		return "each_week"
	case Numerator:
		return "numerator"
	case Denominator:
		return "denominator"
	default:
		return fmt.Sprintf("WeekFrequency(%d)", int(f))
	}
}

// Alternating reports whether the lesson happens every other week.
func (f WeekFrequency) Alternating() bool {
	return f == Numerator || f == Denominator
}

// LessonType classifies a lesson.
type LessonType int

const (
	LessonUnknown  LessonType = 0
	LessonLecture  LessonType = 1
	LessonPractice LessonType = 2
)

func (t LessonType) String() string {
	switch t {
	case LessonLecture:
		return "Lecture"
	case LessonPractice:
		return "Practice"
	default:
		return "Unknown"
	}
}

// ParseLessonType maps "lecture", "practice" or "unknown" to a LessonType.
func ParseLessonType(s string) (LessonType, error) {
	switch s {
	case "lecture", "Lecture":
		return LessonLecture, nil
	case "practice", "Practice":
		return LessonPractice, nil
	case "unknown", "Unknown", "":
		return LessonUnknown, nil
	}
	return LessonUnknown, fmt.Errorf("unknown lesson type %q", s)
}

// GroupType is the study programme of a group.
type GroupType int

const (
	GroupBachelor GroupType = 1
	GroupMaster   GroupType = 2
	GroupReduced  GroupType = 3
)

func (t GroupType) String() string {
	switch t {
	case GroupMaster:
		return "master"
	case GroupReduced:
		return "reduced"
	default:
		return "bachelor"
	}
}

// Semester bounds the lessons of one academic term.
type Semester struct {
	ID        int64         `db:"id"`
	StartDate time.Time     `db:"start_date"`
	EndDate   time.Time     `db:"end_date"`
	WeekType  WeekFrequency `db:"week_type"`
}

// Validate checks the semester invariants.
func (s *Semester) Validate() error {
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("semester %d: end date %s is before start date %s",
			s.ID, s.EndDate.Format(time.DateOnly), s.StartDate.Format(time.DateOnly))
	}
	if s.WeekType != Numerator && s.WeekType != Denominator {
		return fmt.Errorf("semester %d: week type must be numerator or denominator, got %s", s.ID, s.WeekType)
	}
	return nil
}

// ActiveOn reports whether day lies strictly inside the semester.
func (s *Semester) ActiveOn(day time.Time) bool {
	d := DateOf(day)
	return DateOf(s.StartDate).Before(d) && DateOf(s.EndDate).After(d)
}

// Faculty groups specialties.
type Faculty struct {
	Name string `db:"name"`
}

// Specialty is a degree programme identified by its code.
type Specialty struct {
	ID          int64  `db:"id"`
	Code        string `db:"code"`
	FacultyName string `db:"faculty_name"`
}

// Group is a cohort of students enrolled in the same year and specialty.
type Group struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Year        int       `db:"year"`
	SpecialtyID int64     `db:"specialty_id"`
	Number      string    `db:"number"`
	Type        GroupType `db:"type"`
	FacultyName string    `db:"faculty_name"`
}

// GroupName builds the canonical group name, e.g. "IPZ-19-2".
func GroupName(specialty string, year int, number string) string {
	return fmt.Sprintf("%s-%02d-%s", specialty, year-2000, number)
}

// Subject is a course title, optionally linked to an LMS course.
type Subject struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	CourseID *int64 `db:"course_id"`
}

// LessonNumber is a fixed daily timeslot. Start and end are stored as
// minutes after midnight.
type LessonNumber struct {
	Number      int `db:"number"`
	StartMinute int `db:"start_minute"`
	EndMinute   int `db:"end_minute"`
}

// Start returns the slot start as an offset from midnight.
func (n LessonNumber) Start() time.Duration {
	return time.Duration(n.StartMinute) * time.Minute
}

// End returns the slot end as an offset from midnight.
func (n LessonNumber) End() time.Duration {
	return time.Duration(n.EndMinute) * time.Minute
}

// Lesson is the canonical schedule entry.
type Lesson struct {
	ID           string        `db:"id"`
	DayOfWeek    DayOfWeek     `db:"day_of_week"`
	Frequency    WeekFrequency `db:"week_frequency"`
	LessonNumber int           `db:"lesson_number"`
	SemesterID   int64         `db:"semester_id"`
	SubjectID    int64         `db:"subject_id"`
	SubjectTitle string        `db:"subject_title"`
	CourseID     *int64        `db:"course_id"`
	Location     string        `db:"location"`
	MeetingURL   string        `db:"meeting_url"`
	Type         LessonType    `db:"type"`
	Groups       []string      `db:"-"`
}

func (l *Lesson) String() string {
	name := l.SubjectTitle
	switch l.Frequency {
	case Numerator:
		name += " (numerator)"
	case Denominator:
		name += " (denominator)"
	}
	return fmt.Sprintf("%s %d lesson - %s for groups %v", l.DayOfWeek, l.LessonNumber, name, l.Groups)
}

// ValidateMeetingURL accepts absolute http and https URLs only.
func ValidateMeetingURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("meeting url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

// ScheduleFile is an uploaded spreadsheet waiting to be imported.
type ScheduleFile struct {
	ID          int64      `db:"id"`
	Path        string     `db:"path"`
	SemesterID  int64      `db:"semester_id"`
	FacultyName string     `db:"faculty_name"`
	UploadedAt  time.Time  `db:"uploaded_at"`
	ProcessedAt *time.Time `db:"processed_at"`
	Error       string     `db:"error"`
}

// DateOf returns the calendar date of t, as seen in t's own location, at
// midnight UTC. Dates from different zones compare by calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
