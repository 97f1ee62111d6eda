package sync

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/lms"
)

var testSource = calendar.Source{Title: "scheduleNUBIP", URL: "https://localhost:8000"}

func kyiv(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)
	return loc
}

// fakeRemote is an in-memory calendar. Events in hidden exist remotely but
// are never listed, like events outside the listing window.
type fakeRemote struct {
	events  map[string]calendar.Event
	hidden  map[string]calendar.Event
	calls   []string
	nextID  int
	listErr error
	failOn  map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		events: map[string]calendar.Event{},
		hidden: map[string]calendar.Event{},
		failOn: map[string]error{},
	}
}

func (f *fakeRemote) put(e calendar.Event) calendar.Event {
	if e.RemoteID == "" {
		f.nextID++
		e.RemoteID = fmt.Sprintf("remote-%d", f.nextID)
	}
	f.events[e.RemoteID] = e
	return e
}

func (f *fakeRemote) mutations() []string {
	var out []string
	for _, c := range f.calls {
		if c != "list" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) ListEvents(_ context.Context, _, _ time.Time) ([]calendar.Event, error) {
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.events))
	for id := range f.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]calendar.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.events[id])
	}
	return out, nil
}

func (f *fakeRemote) ImportEvent(_ context.Context, e calendar.Event) (calendar.Event, error) {
	f.calls = append(f.calls, "import "+e.UID)
	if err := f.failOn[e.UID]; err != nil {
		return calendar.Event{}, err
	}
	for _, pool := range []map[string]calendar.Event{f.events, f.hidden} {
		for _, have := range pool {
			if have.UID == e.UID {
				return calendar.Event{}, fmt.Errorf("failed to import event %s: %w", e.UID, calendar.ErrDuplicateIdentifier)
			}
		}
	}
	e.RemoteID = ""
	return f.put(e), nil
}

func (f *fakeRemote) UpdateEvent(_ context.Context, e calendar.Event) (calendar.Event, error) {
	f.calls = append(f.calls, "update "+e.UID)
	if _, ok := f.events[e.RemoteID]; !ok {
		if _, ok := f.hidden[e.RemoteID]; !ok {
			return calendar.Event{}, fmt.Errorf("update %s: %w", e.RemoteID, calendar.ErrEventNotFound)
		}
		delete(f.hidden, e.RemoteID)
	}
	return f.put(e), nil
}

func (f *fakeRemote) DeleteEvent(_ context.Context, remoteID string) error {
	f.calls = append(f.calls, "delete "+remoteID)
	if _, ok := f.events[remoteID]; !ok {
		return fmt.Errorf("delete %s: %w", remoteID, calendar.ErrEventNotFound)
	}
	delete(f.events, remoteID)
	return nil
}

func (f *fakeRemote) FindByUID(_ context.Context, uid string) (calendar.Event, error) {
	f.calls = append(f.calls, "find "+uid)
	for _, pool := range []map[string]calendar.Event{f.events, f.hidden} {
		for _, have := range pool {
			if have.UID == uid {
				return have, nil
			}
		}
	}
	return calendar.Event{}, calendar.ErrEventNotFound
}

func (f *fakeRemote) byUID(uid string) (calendar.Event, bool) {
	for _, e := range f.events {
		if e.UID == uid {
			return e, true
		}
	}
	return calendar.Event{}, false
}

type fakeCreds struct {
	err   error
	calls int
}

func (f *fakeCreds) TokenSource(context.Context, string) (oauth2.TokenSource, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access"}), nil
}

type fakeDirectory struct {
	person   *lms.Person
	role     lms.Role
	courses  []int64
	cohorts  []string
	teachers map[int64][]string

	calls       int
	rosterCalls int
}

func (d *fakeDirectory) PersonByEmail(_ context.Context, email string) (*lms.Person, error) {
	d.calls++
	if d.person == nil || d.person.Email != email {
		return nil, fmt.Errorf("%s: %w", email, lms.ErrPersonNotFound)
	}
	return d.person, nil
}

func (d *fakeDirectory) Role(context.Context, int64) (lms.Role, error) {
	d.calls++
	return d.role, nil
}

func (d *fakeDirectory) EnrolledCourseIDs(context.Context, int64) ([]int64, error) {
	d.calls++
	return d.courses, nil
}

func (d *fakeDirectory) CohortNames(context.Context, int64) ([]string, error) {
	d.calls++
	return d.cohorts, nil
}

func (d *fakeDirectory) Courses(context.Context) ([]lms.Course, error) {
	d.calls++
	return nil, nil
}

func (d *fakeDirectory) CourseTeachers(_ context.Context, ids []int64) (map[int64][]string, error) {
	d.calls++
	d.rosterCalls++
	out := map[int64][]string{}
	for _, id := range ids {
		if names, ok := d.teachers[id]; ok {
			out[id] = names
		}
	}
	return out, nil
}

type recordedCall struct {
	kind   string
	label  string
	status string
	count  int
}

type fakeRecorder struct {
	calls []recordedCall
}

func (r *fakeRecorder) RecordCalendarOperation(_ context.Context, op, status string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{kind: "calendar", label: op, status: status})
}

func (r *fakeRecorder) RecordSyncPass(_ context.Context, role, status string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{kind: "pass", label: role, status: status})
}

func (r *fakeRecorder) RecordSyncEvents(_ context.Context, action string, n int) {
	r.calls = append(r.calls, recordedCall{kind: "events", label: action, count: n})
}
