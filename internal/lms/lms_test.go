package lms

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDirectory(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir, err := New(sqlx.NewDb(db, "sqlmock"), "mdl_")
	require.NoError(t, err)
	return dir, mock
}

func TestNewRejectsUnsafePrefix(t *testing.T) {
	_, err := New(nil, "mdl_; DROP TABLE x")
	require.Error(t, err)

	_, err = New(nil, "")
	require.NoError(t, err)
}

func TestPersonByEmail(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, firstname, lastname FROM mdl_user WHERE LOWER(email) = LOWER($1)")).
		WithArgs("teacher@nubip.edu.ua").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "firstname", "lastname"}).
			AddRow(42, "teacher@nubip.edu.ua", "Olena", "Shevchenko"))

	p, err := dir.PersonByEmail(context.Background(), " teacher@nubip.edu.ua ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "Olena Shevchenko", p.FullName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonByEmailNotFound(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_user")).
		WithArgs("ghost@nubip.edu.ua").
		WillReturnError(sql.ErrNoRows)

	_, err := dir.PersonByEmail(context.Background(), "ghost@nubip.edu.ua")
	assert.ErrorIs(t, err, ErrPersonNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRole(t *testing.T) {
	tests := []struct {
		name     string
		teaches  int
		studying int
		want     Role
	}{
		{"more teacher assignments", 3, 1, RoleTeacher},
		{"equal counts", 2, 2, RoleStudent},
		{"no assignments", 0, 0, RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, mock := newMockDirectory(t)
			mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_role_assignments ra JOIN mdl_role r ON r.id = ra.roleid WHERE ra.userid = $1")).
				WithArgs(int64(7), "editingteacher", "student").
				WillReturnRows(sqlmock.NewRows([]string{"teaches", "studying"}).AddRow(tt.teaches, tt.studying))

			role, err := dir.Role(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrolledCourseIDsAndCohorts(t *testing.T) {
	dir, mock := newMockDirectory(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT e.courseid FROM mdl_user_enrolments ue JOIN mdl_enrol e")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"courseid"}).AddRow(10).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.name FROM mdl_cohort_members cm JOIN mdl_cohort c")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	ids, err := dir.EnrolledCourseIDs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 12}, ids)

	cohorts, err := dir.CohortNames(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, cohorts, "no cohorts is an empty filter, not a missing one")
	assert.Empty(t, cohorts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseTeachers(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT e.courseid, u.firstname, u.lastname FROM mdl_user_enrolments ue")).
		WithArgs(sqlmock.AnyArg(), "editingteacher").
		WillReturnRows(sqlmock.NewRows([]string{"courseid", "firstname", "lastname"}).
			AddRow(10, "Petro", "Kovalenko").
			AddRow(10, "Anna", "Bondar").
			AddRow(12, "Ivan", "Melnyk"))

	roster, err := dir.CourseTeachers(context.Background(), []int64{10, 12})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{
		10: {"Anna Bondar", "Petro Kovalenko"},
		12: {"Ivan Melnyk"},
	}, roster)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseTeachersEmptyInput(t *testing.T) {
	dir, mock := newMockDirectory(t)

	roster, err := dir.CourseTeachers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, roster)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourses(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, fullname, shortname FROM mdl_course ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "shortname"}).
			AddRow(10, "Operating Systems (2026)", "OS").
			AddRow(12, "Computer Networks", "CN"))

	courses, err := dir.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, Course{ID: 10, FullName: "Operating Systems (2026)", ShortName: "OS"}, courses[0])
	require.NoError(t, mock.ExpectationsWereMet())
}
