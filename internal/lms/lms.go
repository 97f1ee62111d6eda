package lms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrPersonNotFound is returned when no LMS account carries an email.
var ErrPersonNotFound = errors.New("person not found in LMS")

// Role shortnames in the role table.
const (
	roleEditingTeacher = "editingteacher"
	roleStudent        = "student"
)

// Role is the part a person plays in the LMS.
type Role int

const (
	RoleStudent Role = iota
	RoleTeacher
)

func (r Role) String() string {
	if r == RoleTeacher {
		return "teacher"
	}
	return "student"
}

// Person is an LMS account.
type Person struct {
	ID        int64  `db:"id"`
	Email     string `db:"email"`
	FirstName string `db:"firstname"`
	LastName  string `db:"lastname"`
}

// FullName returns "First Last".
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Course is an LMS course.
type Course struct {
	ID        int64  `db:"id"`
	FullName  string `db:"fullname"`
	ShortName string `db:"shortname"`
}

// Directory is the read-only view of the LMS used for course linkage and
// lesson selection.
type Directory interface {
	PersonByEmail(ctx context.Context, email string) (*Person, error)
	Role(ctx context.Context, userID int64) (Role, error)
	EnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error)
	CohortNames(ctx context.Context, userID int64) ([]string, error)
	Courses(ctx context.Context) ([]Course, error)
	// CourseTeachers maps each course to the names of its enrolled
	// editing teachers.
	CourseTeachers(ctx context.Context, courseIDs []int64) (map[int64][]string, error)
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// DB reads Moodle tables through sqlx.
type DB struct {
	db     *sqlx.DB
	prefix string
}

var _ Directory = (*DB)(nil)

// New returns a Directory over db. prefix is the Moodle table prefix,
// usually "mdl_".
func New(db *sqlx.DB, prefix string) (*DB, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid LMS table prefix %q", prefix)
	}
	return &DB{db: db, prefix: prefix}, nil
}

// q substitutes the table prefix for every "{p}" in query.
func (d *DB) q(query string) string {
	return strings.ReplaceAll(query, "{p}", d.prefix)
}

func (d *DB) PersonByEmail(ctx context.Context, email string) (*Person, error) {
	query := d.q(`SELECT id, email, firstname, lastname FROM {p}user
WHERE LOWER(email) = LOWER($1) AND deleted = 0
ORDER BY id ASC LIMIT 1`)
	var p Person
	if err := d.db.GetContext(ctx, &p, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("get LMS person: %w", err)
	}
	return &p, nil
}

// Role counts a person's teacher and student assignments; more teacher
// assignments than student ones makes a teacher.
func (d *DB) Role(ctx context.Context, userID int64) (Role, error) {
	query := d.q(`SELECT
    COUNT(*) FILTER (WHERE r.shortname = $2) AS teaches,
    COUNT(*) FILTER (WHERE r.shortname = $3) AS studying
FROM {p}role_assignments ra
JOIN {p}role r ON r.id = ra.roleid
WHERE ra.userid = $1`)
	var counts struct {
		Teaches  int `db:"teaches"`
		Studying int `db:"studying"`
	}
	if err := d.db.GetContext(ctx, &counts, query, userID, roleEditingTeacher, roleStudent); err != nil {
		return RoleStudent, fmt.Errorf("count role assignments: %w", err)
	}
	if counts.Teaches > counts.Studying {
		return RoleTeacher, nil
	}
	return RoleStudent, nil
}

func (d *DB) EnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := d.q(`SELECT DISTINCT e.courseid FROM {p}user_enrolments ue
JOIN {p}enrol e ON e.id = ue.enrolid
WHERE ue.userid = $1 AND ue.status = 0
ORDER BY e.courseid`)
	ids := []int64{}
	if err := d.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return ids, nil
}

func (d *DB) CohortNames(ctx context.Context, userID int64) ([]string, error) {
	query := d.q(`SELECT c.name FROM {p}cohort_members cm
JOIN {p}cohort c ON c.id = cm.cohortid
WHERE cm.userid = $1
ORDER BY c.name`)
	names := []string{}
	if err := d.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	return names, nil
}

func (d *DB) Courses(ctx context.Context) ([]Course, error) {
	query := d.q(`SELECT id, fullname, shortname FROM {p}course ORDER BY id`)
	var courses []Course
	if err := d.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (d *DB) CourseTeachers(ctx context.Context, courseIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(courseIDs) == 0 {
		return out, nil
	}
	query := d.q(`SELECT DISTINCT e.courseid, u.firstname, u.lastname
FROM {p}user_enrolments ue
JOIN {p}enrol e ON e.id = ue.enrolid
JOIN {p}user u ON u.id = ue.userid
JOIN {p}role_assignments ra ON ra.userid = u.id
JOIN {p}role r ON r.id = ra.roleid
WHERE e.courseid = ANY($1) AND ue.status = 0 AND r.shortname = $2`)
	var rows []struct {
		CourseID  int64  `db:"courseid"`
		FirstName string `db:"firstname"`
		LastName  string `db:"lastname"`
	}
	if err := d.db.SelectContext(ctx, &rows, query, pq.Array(courseIDs), roleEditingTeacher); err != nil {
		return nil, fmt.Errorf("list course teachers: %w", err)
	}
	for _, r := range rows {
		name := Person{FirstName: r.FirstName, LastName: r.LastName}.FullName()
		out[r.CourseID] = append(out[r.CourseID], name)
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}
