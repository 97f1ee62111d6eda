package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/config"
	"github.com/nubip/schedsync/internal/google"
	"github.com/nubip/schedsync/internal/importer"
	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/resolver"
	"github.com/nubip/schedsync/internal/schedule"
	"github.com/nubip/schedsync/internal/store"
	calsync "github.com/nubip/schedsync/internal/sync"
)

// app holds the connections a command needs. Everything beyond the
// schedule database is opened on first use.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *sqlx.DB
	store *store.Postgres

	lmsDB     *sqlx.DB
	directory *lms.DB
	auth      *google.Authenticator
	metrics   *instrumentation.Metrics

	closers []func() error
}

// openApp loads the configuration and connects to the schedule database.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	db, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to schedule database: %w", err)
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  store.NewPostgres(db),
	}
	a.closers = append(a.closers, db.Close)
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lmsDirectory opens the LMS database.
func (a *app) lmsDirectory(ctx context.Context) (*lms.DB, error) {
	if a.directory != nil {
		return a.directory, nil
	}
	db, err := store.Connect(ctx, a.cfg.LMS.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LMS database: %w", err)
	}
	dir, err := lms.New(db, a.cfg.LMS.TablePrefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.lmsDB, a.directory = db, dir
	a.closers = append(a.closers, db.Close)
	return dir, nil
}

// importer builds a schedule importer. Without a reachable LMS, lessons
// are imported without course links.
func (a *app) importer(ctx context.Context) (*importer.Importer, error) {
	layout, err := schedule.LoadLayout(a.cfg.Schedule.LayoutFile)
	if err != nil {
		return nil, err
	}
	opts := []importer.Option{importer.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, importer.WithRecorder(a.metrics))
	}

	var courses resolver.CourseLister
	if dir, err := a.lmsDirectory(ctx); err != nil {
		a.logger.Warn("Importing without LMS course links", logging.Err(err))
	} else {
		courses = dir
	}
	return importer.New(a.store, courses, layout, opts...)
}

// authenticator opens the token store.
func (a *app) authenticator(ctx context.Context) (*google.Authenticator, error) {
	if a.auth != nil {
		return a.auth, nil
	}
	provider, closeProvider, err := google.NewTokenProvider(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	a.closers = append(a.closers, closeProvider)
	a.auth = google.NewAuthenticator(google.NewOAuthConfig(a.cfg.Google), provider)
	return a.auth, nil
}

// syncer builds the calendar syncer.
func (a *app) syncer(ctx context.Context) (*calsync.Syncer, error) {
	dir, err := a.lmsDirectory(ctx)
	if err != nil {
		return nil, err
	}
	auth, err := a.authenticator(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(a.cfg.Calendar.TimeZone)
	if err != nil {
		return nil, err
	}
	calendarID := a.cfg.Calendar.CalendarID
	remote := func(ctx context.Context, ts oauth2.TokenSource) (calsync.RemoteStore, error) {
		client, err := calendar.NewClient(ctx, ts, calendarID, loc)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	opts := []calsync.Option{
		calsync.WithSource(calendar.Source{Title: a.cfg.Calendar.SourceTitle, URL: a.cfg.Calendar.SourceURL}),
		calsync.WithLocation(loc),
		calsync.WithWindow(a.cfg.Calendar.LookBack, a.cfg.Calendar.LookAhead),
		calsync.WithLogger(a.logger),
	}
	if a.metrics != nil {
		opts = append(opts, calsync.WithRecorder(a.metrics))
	}
	return calsync.NewSyncer(a.store, dir, auth, remote, opts...), nil
}

// instrument starts the OpenTelemetry provider and makes every component
// built afterwards record into it.
func (a *app) instrument(ctx context.Context) (*instrumentation.Provider, error) {
	instrConfig := instrumentation.DefaultConfig(a.cfg.Metrics.Enabled)
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	})
	if provider.Enabled() {
		a.metrics = provider.Metrics()
	}
	return provider, nil
}
