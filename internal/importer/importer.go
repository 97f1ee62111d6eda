package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nubip/schedsync/internal/grid"
	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/resolver"
	"github.com/nubip/schedsync/internal/schedule"
	"github.com/nubip/schedsync/internal/store"
)

var (
	// ErrNoSemesterConfigured is returned when the target semester does
	// not exist. Nothing is persisted.
	ErrNoSemesterConfigured = errors.New("no semester configured")
	// ErrNoGroupsForLesson marks an extracted lesson without groups. The
	// lesson is skipped.
	ErrNoGroupsForLesson = errors.New("lesson has no groups")
)

// Options control one import.
type Options struct {
	// SemesterID is the semester lessons belong to. Zero selects the
	// semester that starts last.
	SemesterID int64
	// Faculty overrides the faculty name read from the sheet.
	Faculty string
	// Reload deletes the semester's lessons before importing.
	Reload bool
	// DryRun parses the sheet and reports the lessons without storing them.
	DryRun bool
}

// Report summarizes one import.
type Report struct {
	File       string
	Faculty    string
	SemesterID int64
	Created    int
	Updated    int
	Skipped    int
	Deleted    int64
	// Problems are the cells and lessons that were skipped.
	Problems []*schedule.CellError
	// Lessons holds the extracted lessons of a dry run.
	Lessons []schedule.RawLesson
}

func (r *Report) String() string {
	return fmt.Sprintf("created: %d, updated: %d, skipped: %d, deleted: %d, problems: %d",
		r.Created, r.Updated, r.Skipped, r.Deleted, len(r.Problems))
}

// Recorder receives import measurements. *instrumentation.Metrics
// satisfies it.
type Recorder interface {
	RecordImport(ctx context.Context, status string, duration time.Duration)
	RecordImportLessons(ctx context.Context, outcome string, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordImport(context.Context, string, time.Duration) {}
func (nopRecorder) RecordImportLessons(context.Context, string, int)    {}

// Importer loads schedule sheets into the store.
type Importer struct {
	store     store.Store
	courses   resolver.CourseLister
	layout    schedule.Layout
	extractor *schedule.Extractor
	now       func() time.Time
	logger    *slog.Logger
	recorder  Recorder
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) { im.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// WithRecorder sets where measurements go.
func WithRecorder(r Recorder) Option {
	return func(im *Importer) { im.recorder = r }
}

// New creates an importer for sheets shaped like layout. courses may be
// nil to skip LMS course linkage.
func New(st store.Store, courses resolver.CourseLister, layout schedule.Layout, opts ...Option) (*Importer, error) {
	im := &Importer{
		store:    st,
		courses:  courses,
		layout:   layout,
		now:      time.Now,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(im)
	}
	extractor, err := schedule.NewExtractor(layout, im.logger)
	if err != nil {
		return nil, err
	}
	im.extractor = extractor
	im.logger = logging.WithOperation(im.logger, "import")
	return im, nil
}

// Import reads the workbook at path and persists its lessons.
func (im *Importer) Import(ctx context.Context, path string, opts Options) (*Report, error) {
	start := time.Now()
	g, err := grid.LoadXLSX(path, im.layout.Sheet)
	if err != nil {
		im.recorder.RecordImport(ctx, instrumentation.StatusError, time.Since(start))
		return nil, err
	}
	report, err := im.ImportGrid(ctx, g, opts)
	if report != nil {
		report.File = path
	}
	if err != nil {
		im.logger.Error("Import failed", logging.File(path), logging.Err(err))
	} else {
		im.logger.Info("Imported schedule", logging.File(path), slog.String("report", report.String()))
	}
	return report, err
}

// ImportGrid persists the lessons of an already loaded sheet.
func (im *Importer) ImportGrid(ctx context.Context, g *grid.Grid, opts Options) (*Report, error) {
	ctx, span := instrumentation.StartImportSpan(ctx, instrumentation.NewSpanAttributeBuilder().
		WithSemester(opts.SemesterID).
		WithDryRun(opts.DryRun).
		Build()...)
	defer span.End()

	start := time.Now()
	report, err := im.importGrid(ctx, g, opts)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	im.recorder.RecordImport(ctx, status, time.Since(start))
	if report != nil && !opts.DryRun {
		im.recorder.RecordImportLessons(ctx, "created", report.Created)
		im.recorder.RecordImportLessons(ctx, "updated", report.Updated)
		im.recorder.RecordImportLessons(ctx, "skipped", report.Skipped)
	}
	return report, err
}

func (im *Importer) importGrid(ctx context.Context, g *grid.Grid, opts Options) (*Report, error) {
	res := im.extractor.Extract(g)
	report := &Report{Faculty: res.Faculty, Problems: res.Errors}
	if opts.Faculty != "" {
		report.Faculty = opts.Faculty
	}
	for _, cerr := range res.Errors {
		im.logger.Warn("Skipped cell", logging.Cell(cerr.Cell()), logging.Err(cerr.Err))
	}

	if opts.DryRun {
		report.Lessons = res.Lessons
		report.SemesterID = opts.SemesterID
		return report, nil
	}

	sem, err := im.semester(ctx, opts.SemesterID)
	if err != nil {
		return report, err
	}
	report.SemesterID = sem.ID

	numbers, err := im.layout.LessonNumbers()
	if err != nil {
		return report, err
	}
	if len(numbers) > 0 {
		if err := im.store.SaveLessonNumbers(ctx, numbers); err != nil {
			return report, err
		}
	}
	if report.Faculty != "" {
		if err := im.store.EnsureFaculty(ctx, report.Faculty); err != nil {
			return report, err
		}
	}
	if opts.Reload {
		n, err := im.store.DeleteLessons(ctx, sem.ID)
		if err != nil {
			return report, err
		}
		report.Deleted = n
		im.logger.Info("Deleted semester lessons", logging.Semester(sem.ID), slog.Int64("count", n))
	}

	r := resolver.New(im.store, im.courses,
		resolver.WithFaculty(report.Faculty),
		resolver.WithClock(im.now),
		resolver.WithLogger(im.logger),
	)
	stored := make(map[slotKey]string, len(res.Lessons))
	for _, raw := range res.Lessons {
		if err := im.persist(ctx, r, sem, raw, report, stored); err != nil {
			return report, err
		}
	}
	return report, nil
}

// slotKey is the identity the store upserts lessons on within a semester.
type slotKey struct {
	subjectID int64
	day       model.DayOfWeek
	number    int
	frequency model.WeekFrequency
}

// persist resolves and upserts one lesson. Problems confined to the
// lesson are recorded in the report; store failures are returned.
// stored holds the location written for each slot earlier in the pass.
func (im *Importer) persist(ctx context.Context, r *resolver.Resolver, sem *model.Semester, raw schedule.RawLesson, report *Report, stored map[slotKey]string) error {
	skip := func(err error) {
		report.Skipped++
		report.Problems = append(report.Problems, &schedule.CellError{Row: raw.Row, Col: raw.Col, Err: err})
		im.logger.Warn("Skipped lesson",
			logging.Cell(grid.CellName(raw.Row, raw.Col)),
			slog.String("lesson", raw.Name),
			logging.Err(err))
	}

	if len(raw.Groups) == 0 {
		skip(ErrNoGroupsForLesson)
		return nil
	}
	groupIDs := make([]int64, 0, len(raw.Groups))
	for _, rg := range raw.Groups {
		g, err := r.Group(ctx, rg)
		if errors.Is(err, resolver.ErrNoCourseDigit) {
			skip(err)
			return nil
		}
		if err != nil {
			return err
		}
		groupIDs = append(groupIDs, g.ID)
	}
	subject, err := r.Subject(ctx, raw.Name)
	if err != nil {
		return err
	}

	lesson := &model.Lesson{
		DayOfWeek:    raw.Day,
		Frequency:    raw.Frequency,
		LessonNumber: raw.Number,
		SemesterID:   sem.ID,
		SubjectID:    subject.ID,
		Location:     raw.Location,
	}
	key := slotKey{subject.ID, raw.Day, raw.Number, raw.Frequency}
	if prev, ok := stored[key]; ok && prev != raw.Location {
		im.logger.Warn("Lesson location overwritten by a later cell",
			logging.Cell(grid.CellName(raw.Row, raw.Col)),
			slog.String("lesson", raw.Name),
			slog.String("previous", prev),
			slog.String("location", raw.Location))
	}
	stored[key] = raw.Location

	created, err := im.store.UpsertLesson(ctx, lesson, groupIDs)
	if err != nil {
		return err
	}
	if created {
		report.Created++
	} else {
		report.Updated++
	}
	im.logger.Debug("Stored lesson", logging.Lesson(lesson.ID), slog.Bool("created", created))
	return nil
}

// semester returns the semester with id. There is no default semester.
func (im *Importer) semester(ctx context.Context, id int64) (*model.Semester, error) {
	if id <= 0 {
		return nil, fmt.Errorf("semester id is required: %w", ErrNoSemesterConfigured)
	}
	sem, err := im.store.Semester(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("semester %d: %w", id, ErrNoSemesterConfigured)
	}
	return sem, err
}
