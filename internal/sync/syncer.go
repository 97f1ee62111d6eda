package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/google"
	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/store"
)

var (
	// ErrCredentialMissing means the person never granted calendar access.
	ErrCredentialMissing = errors.New("credentials not found, please login")
	// ErrCredentialInvalid means the stored grant was revoked or expired.
	ErrCredentialInvalid = errors.New("credentials are invalid, please login again")
	// ErrNoActiveLessons means no lesson of a running semester concerns the
	// person.
	ErrNoActiveLessons = errors.New("no active lessons found for user")
)

// Credentials yields a validated token source for an account.
type Credentials interface {
	TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error)
}

// RemoteFactory opens the calendar authorized by ts.
type RemoteFactory func(ctx context.Context, ts oauth2.TokenSource) (RemoteStore, error)

// Syncer drives per-person calendar synchronization.
type Syncer struct {
	store    store.Store
	dir      lms.Directory
	creds    Credentials
	remote   RemoteFactory
	source   calendar.Source
	loc      *time.Location
	back     time.Duration
	ahead    time.Duration
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithSource sets the tag written on every managed event.
func WithSource(src calendar.Source) Option {
	return func(s *Syncer) { s.source = src }
}

// WithLocation sets the zone lesson times are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Syncer) { s.loc = loc }
}

// WithWindow sets the reconciliation window around now.
func WithWindow(back, ahead time.Duration) Option {
	return func(s *Syncer) {
		s.back = back
		s.ahead = ahead
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) { s.logger = logger }
}

// WithRecorder sets where measurements go.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// NewSyncer wires a syncer.
func NewSyncer(st store.Store, dir lms.Directory, creds Credentials, remote RemoteFactory, opts ...Option) *Syncer {
	s := &Syncer{
		store:    st,
		dir:      dir,
		creds:    creds,
		remote:   remote,
		source:   calendar.Source{Title: "scheduleNUBIP", URL: "https://localhost:8000"},
		loc:      time.UTC,
		back:     DefaultLookBack,
		ahead:    DefaultLookAhead,
		now:      time.Now,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncPerson brings the calendar of the person with email in line with
// their active lessons. Credentials are checked before anything else.
func (s *Syncer) SyncPerson(ctx context.Context, email string) (*Result, error) {
	ctx, span := instrumentation.StartSyncSpan(ctx, "sync")
	defer span.End()

	start := time.Now()
	role := "unknown"
	res, err := s.syncPerson(ctx, email, &role)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithRole(role).
		WithUserHash(logging.AnonymizeEmail(email)).
		Build()...)
	s.recorder.RecordSyncPass(ctx, role, status, time.Since(start))
	if res != nil {
		s.recorder.RecordSyncEvents(ctx, "checked", len(res.Checked))
		s.recorder.RecordSyncEvents(ctx, "updated", len(res.Updated))
		s.recorder.RecordSyncEvents(ctx, "created", len(res.Created))
		s.recorder.RecordSyncEvents(ctx, "deleted", len(res.Deleted))
	}
	return res, err
}

func (s *Syncer) syncPerson(ctx context.Context, email string, roleName *string) (*Result, error) {
	remote, err := s.connect(ctx, email)
	if err != nil {
		return nil, err
	}

	role, events, err := s.PersonEvents(ctx, email)
	if err != nil {
		return nil, err
	}
	*roleName = role.String()

	engine := s.engine(remote)
	res, err := engine.Reconcile(ctx, events)
	if err != nil {
		return res, s.credentialError(err)
	}
	logger := logging.WithPerson(s.logger, email)
	logger.Info("Synchronized calendar", "role", role.String(), "result", res.String())
	logger.Debug("Synchronized lessons",
		"created", summarize(res.Created),
		"updated", summarize(res.Updated),
		"deleted", summarize(res.Deleted),
	)
	return res, nil
}

// ClearPerson deletes every managed event from the person's calendar and
// returns how many were removed.
func (s *Syncer) ClearPerson(ctx context.Context, email string) (int, error) {
	ctx, span := instrumentation.StartSyncSpan(ctx, "clear")
	defer span.End()

	remote, err := s.connect(ctx, email)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return 0, err
	}
	deleted, err := s.engine(remote).Clear(ctx)
	s.recorder.RecordSyncEvents(ctx, "deleted", len(deleted))
	if err != nil {
		err = s.credentialError(err)
		instrumentation.SetSpanError(span, err)
		return len(deleted), err
	}
	s.logger.Info("Cleared calendar", logging.UserHash(email), "deleted", len(deleted))
	return len(deleted), nil
}

// PersonEvents resolves the person's role and computes one event per
// active lesson, descriptions included.
func (s *Syncer) PersonEvents(ctx context.Context, email string) (lms.Role, []calendar.Event, error) {
	person, err := s.dir.PersonByEmail(ctx, email)
	if err != nil {
		return 0, nil, err
	}
	role, err := s.dir.Role(ctx, person.ID)
	if err != nil {
		return 0, nil, err
	}

	lessons, courseIDs, semesters, err := s.lessonsFor(ctx, person, role)
	if err != nil {
		return role, nil, err
	}
	if len(lessons) == 0 {
		return role, nil, ErrNoActiveLessons
	}

	slots, err := s.store.LessonNumbers(ctx)
	if err != nil {
		return role, nil, err
	}

	describer := NewDescriber(role, s.dir, courseIDs)
	events := make([]calendar.Event, 0, len(lessons))
	for _, l := range lessons {
		slot, ok := slots[l.LessonNumber]
		if !ok {
			s.logger.Warn("Skipping lesson with unknown timeslot", "lesson", l.ID, "number", l.LessonNumber)
			continue
		}
		ev, err := EventFromLesson(l, semesters[l.SemesterID], slot, s.loc)
		if err != nil {
			return role, nil, err
		}
		if ev.Description, err = describer.Describe(ctx, l); err != nil {
			return role, nil, err
		}
		ev.Source = s.source
		events = append(events, ev)
	}
	return role, events, nil
}

// lessonsFor selects the lessons of running semesters for person. Teachers
// get the lessons of the courses they are enrolled in; students
// additionally need one of their cohorts among the lesson groups.
func (s *Syncer) lessonsFor(ctx context.Context, person *lms.Person, role lms.Role) ([]model.Lesson, []int64, map[int64]model.Semester, error) {
	active, err := store.ActiveSemesters(ctx, s.store, s.now())
	if err != nil {
		return nil, nil, nil, err
	}
	if len(active) == 0 {
		return nil, nil, nil, nil
	}
	semesters := make(map[int64]model.Semester, len(active))
	semesterIDs := make([]int64, 0, len(active))
	for _, sem := range active {
		semesters[sem.ID] = sem
		semesterIDs = append(semesterIDs, sem.ID)
	}

	courseIDs, err := s.dir.EnrolledCourseIDs(ctx, person.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	filter := store.LessonFilter{SemesterIDs: semesterIDs, CourseIDs: courseIDs}
	if role == lms.RoleStudent {
		cohorts, err := s.dir.CohortNames(ctx, person.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		filter.GroupNames = cohorts
	}

	lessons, err := s.store.Lessons(ctx, filter)
	if err != nil {
		return nil, nil, nil, err
	}
	return lessons, courseIDs, semesters, nil
}

// connect validates the person's credentials and opens their calendar.
func (s *Syncer) connect(ctx context.Context, email string) (RemoteStore, error) {
	ts, err := s.creds.TokenSource(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, google.ErrTokenNotFound):
			return nil, fmt.Errorf("%w: %s", ErrCredentialMissing, email)
		case errors.Is(err, google.ErrTokenInvalid):
			return nil, fmt.Errorf("%w: %s", ErrCredentialInvalid, email)
		}
		return nil, err
	}
	remote, err := s.remote(ctx, ts)
	if err != nil {
		return nil, err
	}
	return recordedRemote{next: remote, recorder: s.recorder}, nil
}

func (s *Syncer) engine(remote RemoteStore) *Engine {
	return NewEngine(remote, s.source,
		WithEngineWindow(s.back, s.ahead),
		WithEngineClock(s.now),
		WithEngineLogger(s.logger),
	)
}

// credentialError reports a grant revoked during a pass as invalid
// credentials.
func (s *Syncer) credentialError(err error) error {
	if errors.Is(err, calendar.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrCredentialInvalid, err)
	}
	return err
}
