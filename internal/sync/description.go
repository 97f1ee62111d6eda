package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/model"
)

// descriptionPolicy keeps http(s) links and escapes everything else.
var descriptionPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	return p
}()

// Describer renders the description of a lesson event for one person.
type Describer interface {
	Describe(ctx context.Context, l model.Lesson) (string, error)
}

// RosterSource names the teachers of courses.
type RosterSource interface {
	CourseTeachers(ctx context.Context, courseIDs []int64) (map[int64][]string, error)
}

// NewDescriber returns the describer for role. courseIDs are the courses
// the person is enrolled in.
func NewDescriber(role lms.Role, roster RosterSource, courseIDs []int64) Describer {
	if role == lms.RoleTeacher {
		return TeacherDescriber{}
	}
	return &StudentDescriber{roster: roster, courseIDs: courseIDs}
}

func baseDescription(l model.Lesson) string {
	return fmt.Sprintf("<a href=%q>Meeting Url</a>\ntype: %s", l.MeetingURL, l.Type)
}

// TeacherDescriber lists the groups attending the lesson.
type TeacherDescriber struct{}

func (TeacherDescriber) Describe(_ context.Context, l model.Lesson) (string, error) {
	return descriptionPolicy.Sanitize(baseDescription(l) + "\ngroups: " + strings.Join(l.Groups, ", ")), nil
}

// StudentDescriber lists the teachers of the lesson's course. The roster
// of every enrolled course is loaded on first use and kept for the life of
// the describer.
type StudentDescriber struct {
	roster    RosterSource
	courseIDs []int64

	teachers map[int64][]string
}

func (d *StudentDescriber) Describe(ctx context.Context, l model.Lesson) (string, error) {
	if d.teachers == nil {
		teachers, err := d.roster.CourseTeachers(ctx, d.courseIDs)
		if err != nil {
			return "", fmt.Errorf("load course teachers: %w", err)
		}
		if teachers == nil {
			teachers = map[int64][]string{}
		}
		d.teachers = teachers
	}
	var names []string
	if l.CourseID != nil {
		names = d.teachers[*l.CourseID]
	}
	return descriptionPolicy.Sanitize(baseDescription(l) + "\nteachers: " + strings.Join(names, ", ")), nil
}
