package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/google"
	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/store"
)

const studentEmail = "student@nubip.edu.ua"

type syncFixture struct {
	store    *store.Memory
	dir      *fakeDirectory
	creds    *fakeCreds
	remote   *fakeRemote
	recorder *fakeRecorder
	opened   int
	syncer   *Syncer

	mine, theirs string
}

func newSyncFixture(t *testing.T, now time.Time) *syncFixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	sem := autumn
	require.NoError(t, st.CreateSemester(ctx, &sem))
	require.NoError(t, st.SaveLessonNumbers(ctx, []model.LessonNumber{
		{Number: 1, StartMinute: 8*60 + 30, EndMinute: 9*60 + 50},
		{Number: 2, StartMinute: 10*60 + 10, EndMinute: 11*60 + 30},
	}))

	spec, err := st.GetOrCreateSpecialty(ctx, "КН", "ФІТ")
	require.NoError(t, err)
	mine, err := st.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-1", Year: 2024, SpecialtyID: spec.ID, Number: "1"})
	require.NoError(t, err)
	theirs, err := st.GetOrCreateGroup(ctx, model.Group{Name: "КН-24-2", Year: 2024, SpecialtyID: spec.ID, Number: "2"})
	require.NoError(t, err)
	subject, err := st.GetOrCreateSubject(ctx, "Operating Systems")
	require.NoError(t, err)
	require.NoError(t, st.SetSubjectCourse(ctx, subject.ID, 100))

	l1 := &model.Lesson{DayOfWeek: model.Wednesday, Frequency: model.EachWeek, LessonNumber: 1,
		SemesterID: sem.ID, SubjectID: subject.ID, Location: "201 к.305",
		MeetingURL: "https://meet.google.com/abc", Type: model.LessonLecture}
	_, err = st.UpsertLesson(ctx, l1, []int64{mine.ID})
	require.NoError(t, err)
	l2 := &model.Lesson{DayOfWeek: model.Thursday, Frequency: model.Denominator, LessonNumber: 2,
		SemesterID: sem.ID, SubjectID: subject.ID, Location: "105 к.3", Type: model.LessonPractice}
	_, err = st.UpsertLesson(ctx, l2, []int64{theirs.ID})
	require.NoError(t, err)

	f := &syncFixture{
		store: st,
		dir: &fakeDirectory{
			person:   &lms.Person{ID: 7, Email: studentEmail, FirstName: "Mariia", LastName: "Bondar"},
			role:     lms.RoleStudent,
			courses:  []int64{100},
			cohorts:  []string{"КН-24-1"},
			teachers: map[int64][]string{100: {"Іван Петренко"}},
		},
		creds:    &fakeCreds{},
		remote:   newFakeRemote(),
		recorder: &fakeRecorder{},
		mine:     l1.ID,
		theirs:   l2.ID,
	}
	factory := func(context.Context, oauth2.TokenSource) (RemoteStore, error) {
		f.opened++
		return f.remote, nil
	}
	f.syncer = NewSyncer(st, f.dir, f.creds, factory,
		WithSource(testSource),
		WithLocation(kyiv(t)),
		WithClock(func() time.Time { return now }),
		WithRecorder(f.recorder),
	)
	return f
}

var midSemester = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestSyncStudent(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, midSemester)

	res, err := f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, []string{f.mine}, res.Created, "only lessons of the student's cohort")

	ev, ok := f.remote.byUID(f.mine)
	require.True(t, ok)
	assert.Equal(t, "Operating Systems", ev.Summary)
	assert.Equal(t, testSource, ev.Source)
	assert.Equal(t, 1, ev.Interval)
	assert.True(t, ev.Start.Equal(time.Date(2026, 9, 2, 8, 30, 0, 0, kyiv(t))))
	assert.Equal(t,
		"<a href=\"https://meet.google.com/abc\">Meeting Url</a>\ntype: Lecture\nteachers: Іван Петренко",
		ev.Description)

	res, err = f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, "checked: 1, updated: 0, created: 0, deleted: 0", res.String())

	assert.Contains(t, f.recorder.calls, recordedCall{kind: "pass", label: "student", status: "success"})
	assert.Contains(t, f.recorder.calls, recordedCall{kind: "calendar", label: "import", status: "success"})
	assert.Contains(t, f.recorder.calls, recordedCall{kind: "events", label: "checked", count: 1})
}

func TestSyncTeacher(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, midSemester)
	f.dir.role = lms.RoleTeacher
	f.dir.cohorts = nil

	res, err := f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.mine, f.theirs}, res.Created, "teachers see every lesson of their courses")

	ev, ok := f.remote.byUID(f.theirs)
	require.True(t, ok)
	assert.Equal(t, 2, ev.Interval)
	assert.Contains(t, ev.Description, "\ngroups: КН-24-2")
	assert.Equal(t, 0, f.dir.rosterCalls)
}

func TestSyncRemovesLessonsNoLongerScheduled(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, midSemester)
	_, err := f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)

	_, err = f.store.SetMeetingURL(ctx, []string{f.mine}, "https://meet.google.com/xyz")
	require.NoError(t, err)
	stale := lessonEvent(t, uidC, "Dropped Course")
	f.remote.put(stale)

	res, err := f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, []string{f.mine}, res.Updated)
	assert.Equal(t, []string{uidC}, res.Deleted)
}

func TestSyncCredentialFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing", fmt.Errorf("read token: %w", google.ErrTokenNotFound), ErrCredentialMissing},
		{"invalid", fmt.Errorf("%w: invalid_grant", google.ErrTokenInvalid), ErrCredentialInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, midSemester)
			f.creds.err = tt.err

			res, err := f.syncer.SyncPerson(context.Background(), studentEmail)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
			assert.Zero(t, f.opened, "no calendar is opened without credentials")
			assert.Empty(t, f.remote.calls)
			assert.Zero(t, f.dir.calls)
			assert.Contains(t, f.recorder.calls, recordedCall{kind: "pass", label: "unknown", status: "error"})

			_, err = f.syncer.ClearPerson(context.Background(), studentEmail)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.remote.calls)
		})
	}
}

func TestSyncRevokedDuringPass(t *testing.T) {
	f := newSyncFixture(t, midSemester)
	f.remote.listErr = fmt.Errorf("failed to list events: %w", calendar.ErrUnauthorized)

	_, err := f.syncer.SyncPerson(context.Background(), studentEmail)
	assert.ErrorIs(t, err, ErrCredentialInvalid)
}

func TestSyncOutsideSemester(t *testing.T) {
	f := newSyncFixture(t, time.Date(2027, 1, 15, 9, 0, 0, 0, time.UTC))

	_, err := f.syncer.SyncPerson(context.Background(), studentEmail)
	require.ErrorIs(t, err, ErrNoActiveLessons)
	assert.Empty(t, f.remote.calls, "nothing is listed or deleted")
}

func TestSyncUnknownPerson(t *testing.T) {
	f := newSyncFixture(t, midSemester)

	_, err := f.syncer.SyncPerson(context.Background(), "nobody@nubip.edu.ua")
	assert.ErrorIs(t, err, lms.ErrPersonNotFound)
	assert.Empty(t, f.remote.calls)
}

func TestClearPerson(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, midSemester)
	f.dir.role = lms.RoleTeacher
	_, err := f.syncer.SyncPerson(ctx, studentEmail)
	require.NoError(t, err)

	n, err := f.syncer.ClearPerson(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, f.remote.events)
}
