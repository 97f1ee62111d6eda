package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nubip/schedsync/internal/importer"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/store"
)

// FileImporter imports one schedule workbook.
type FileImporter interface {
	Import(ctx context.Context, path string, opts importer.Options) (*importer.Report, error)
}

// Watcher imports uploaded schedule files in the background.
type Watcher struct {
	store    store.Store
	importer FileImporter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithClock replaces time.Now for processed timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// New creates a watcher polling every interval.
func New(st store.Store, im FileImporter, interval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		store:    st,
		importer: im,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.WithOperation(w.logger, "watcher")
	return w
}

// Run polls until ctx is cancelled. Pending files are processed once right
// away and then on every tick; a tick that finds the previous pass still
// running is skipped.
func (w *Watcher) Run(ctx context.Context) error {
	adapter := logging.NewCronAdapter(w.logger)
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	if _, err := c.AddFunc("@every "+w.interval.String(), func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule watcher: %w", err)
	}

	w.tick(ctx)
	c.Start()
	w.logger.Info("Watching for schedule files", slog.Duration("interval", w.interval))

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("Watcher stopped")
	return nil
}

func (w *Watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("Watcher pass failed", logging.Err(err))
	}
}

// RunOnce imports every pending file in upload order and marks each one
// processed, recording the failure text of those that failed. It returns
// how many files were processed.
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.store.PendingScheduleFiles(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, f := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		errText := ""
		report, err := w.importer.Import(ctx, f.Path, importer.Options{
			SemesterID: f.SemesterID,
			Faculty:    f.FacultyName,
		})
		if err != nil {
			errText = err.Error()
			w.logger.Error("Schedule file import failed", logging.File(f.Path), logging.Err(err))
		} else {
			w.logger.Info("Schedule file imported", logging.File(f.Path), slog.String("report", report.String()))
		}
		if err := w.store.MarkScheduleFile(ctx, f.ID, w.now(), errText); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// Upload copies the workbook at src into dir under a fresh name and queues
// it for import.
func Upload(ctx context.Context, st store.Store, dir, src string, semesterID int64, faculty string) (*model.ScheduleFile, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if ext != ".xlsx" {
		return nil, fmt.Errorf("%s: only .xlsx workbooks are accepted", src)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(dir, uuid.NewString()+ext)
	if err := copyFile(src, dst); err != nil {
		return nil, err
	}

	f := &model.ScheduleFile{
		Path:        dst,
		SemesterID:  semesterID,
		FacultyName: faculty,
		UploadedAt:  time.Now(),
	}
	if err := st.AddScheduleFile(ctx, f); err != nil {
		_ = os.Remove(dst)
		return nil, err
	}
	return f, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy upload: %w", err)
	}
	return out.Close()
}
