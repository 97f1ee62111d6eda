package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/importer"
	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/store"
	calsync "github.com/nubip/schedsync/internal/sync"
)

// ScheduleImporter imports one schedule workbook. *importer.Importer
// satisfies it.
type ScheduleImporter interface {
	Import(ctx context.Context, path string, opts importer.Options) (*importer.Report, error)
}

// CalendarSyncer runs sync passes for one person. *sync.Syncer satisfies it.
type CalendarSyncer interface {
	SyncPerson(ctx context.Context, email string) (*calsync.Result, error)
	ClearPerson(ctx context.Context, email string) (int, error)
	PersonEvents(ctx context.Context, email string) (lms.Role, []calendar.Event, error)
}

// Services are the dependencies shared by every MCP tool.
type Services struct {
	Store    store.Store
	Importer ScheduleImporter
	Syncer   CalendarSyncer
	// UploadDir receives workbooks queued for the watcher.
	UploadDir string
	// CalendarName is written into exported iCalendar files.
	CalendarName string
	// Metrics may be nil.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// ServerContext holds the services and lifecycle of the MCP server.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	services Services
	started  time.Time

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context. Store is required; the
// importer and syncer may be nil, in which case tools that need them
// report that they are not configured.
func NewServerContext(ctx context.Context, services Services) (*ServerContext, error) {
	if services.Store == nil {
		return nil, errors.New("server context requires a store")
	}
	if services.Logger == nil {
		services.Logger = slog.Default()
	}
	if services.CalendarName == "" {
		services.CalendarName = "Schedule"
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		services: services,
		started:  time.Now(),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Store() store.Store { return sc.services.Store }

func (sc *ServerContext) Importer() ScheduleImporter { return sc.services.Importer }

func (sc *ServerContext) Syncer() CalendarSyncer { return sc.services.Syncer }

func (sc *ServerContext) UploadDir() string { return sc.services.UploadDir }

func (sc *ServerContext) CalendarName() string { return sc.services.CalendarName }

func (sc *ServerContext) Logger() *slog.Logger { return sc.services.Logger }

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.services.Metrics }

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
