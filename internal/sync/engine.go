package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nubip/schedsync/internal/calendar"
)

// Default reconciliation window around now.
const (
	DefaultLookBack  = 30 * 24 * time.Hour
	DefaultLookAhead = 14 * 24 * time.Hour
)

// RemoteStore is the part of a calendar the engine needs.
type RemoteStore interface {
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error)
	ImportEvent(ctx context.Context, e calendar.Event) (calendar.Event, error)
	UpdateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error)
	DeleteEvent(ctx context.Context, remoteID string) error
	FindByUID(ctx context.Context, uid string) (calendar.Event, error)
}

// Result lists the lesson IDs touched by one reconciliation pass.
type Result struct {
	Checked []string `json:"checked"`
	Updated []string `json:"updated"`
	Created []string `json:"created"`
	Deleted []string `json:"deleted"`
}

func (r *Result) String() string {
	return fmt.Sprintf("checked: %d, updated: %d, created: %d, deleted: %d",
		len(r.Checked), len(r.Updated), len(r.Created), len(r.Deleted))
}

// Engine reconciles one calendar against a desired set of events. Only
// events whose source title matches the engine's source are touched.
type Engine struct {
	remote    RemoteStore
	source    calendar.Source
	lookBack  time.Duration
	lookAhead time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineWindow sets how far around now remote events are listed.
func WithEngineWindow(back, ahead time.Duration) EngineOption {
	return func(e *Engine) {
		e.lookBack = back
		e.lookAhead = ahead
	}
}

// WithEngineClock replaces time.Now.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine for remote. source tags every event the
// engine writes.
func NewEngine(remote RemoteStore, source calendar.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		remote:    remote,
		source:    source,
		lookBack:  DefaultLookBack,
		lookAhead: DefaultLookAhead,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Managed returns the remote events carrying the engine's source, keyed by
// normalized UID.
func (e *Engine) Managed(ctx context.Context) (map[string]calendar.Event, error) {
	now := e.now()
	events, err := e.remote.ListEvents(ctx, now.Add(-e.lookBack), now.Add(e.lookAhead))
	if err != nil {
		return nil, err
	}
	managed := make(map[string]calendar.Event)
	for _, ev := range events {
		if ev.Source.Title != e.source.Title || ev.UID == "" {
			continue
		}
		managed[calendar.NormalizeUID(ev.UID)] = ev
	}
	return managed, nil
}

// Reconcile makes the managed events equal to desired. Events already
// equal are left alone, changed ones are updated, missing ones are created
// and managed events with no desired counterpart are deleted. On error
// the partial result so far is returned with it.
func (e *Engine) Reconcile(ctx context.Context, desired []calendar.Event) (*Result, error) {
	res := &Result{}
	managed, err := e.Managed(ctx)
	if err != nil {
		return res, err
	}

	seen := make(map[string]bool, len(desired))
	for _, want := range desired {
		want.Source = e.source
		uid := calendar.NormalizeUID(want.UID)
		if seen[uid] {
			continue
		}
		seen[uid] = true

		have, ok := managed[uid]
		switch {
		case ok && have.Equal(want):
			res.Checked = append(res.Checked, want.UID)
		case ok:
			want.RemoteID = have.RemoteID
			if _, err := e.remote.UpdateEvent(ctx, want); err != nil {
				return res, err
			}
			e.logger.Debug("Updated event", "uid", want.UID, "summary", want.Summary)
			res.Updated = append(res.Updated, want.UID)
		default:
			if err := e.create(ctx, want); err != nil {
				return res, err
			}
			res.Created = append(res.Created, want.UID)
		}
	}

	stale := make([]string, 0, len(managed))
	for uid := range managed {
		if !seen[uid] {
			stale = append(stale, uid)
		}
	}
	sort.Strings(stale)
	for _, uid := range stale {
		ev := managed[uid]
		if err := e.remote.DeleteEvent(ctx, ev.RemoteID); err != nil {
			return res, err
		}
		e.logger.Debug("Deleted event", "uid", ev.UID, "summary", ev.Summary)
		res.Deleted = append(res.Deleted, ev.UID)
	}
	return res, nil
}

// create imports want. An identifier the calendar already holds outside
// the listing window, or under another source, is looked up and
// overwritten instead.
func (e *Engine) create(ctx context.Context, want calendar.Event) error {
	_, err := e.remote.ImportEvent(ctx, want)
	if err == nil {
		e.logger.Debug("Created event", "uid", want.UID, "summary", want.Summary)
		return nil
	}
	if !errors.Is(err, calendar.ErrDuplicateIdentifier) {
		return err
	}

	existing, ferr := e.remote.FindByUID(ctx, want.UID)
	if ferr != nil {
		return fmt.Errorf("recover duplicate %s: %w", want.UID, ferr)
	}
	want.RemoteID = existing.RemoteID
	if _, err := e.remote.UpdateEvent(ctx, want); err != nil {
		return err
	}
	e.logger.Debug("Recovered duplicate event", "uid", want.UID, "remote_id", existing.RemoteID)
	return nil
}

// Clear deletes every managed event in the window and returns the deleted
// UIDs.
func (e *Engine) Clear(ctx context.Context) ([]string, error) {
	managed, err := e.Managed(ctx)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(managed))
	for uid := range managed {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	deleted := make([]string, 0, len(uids))
	for _, uid := range uids {
		ev := managed[uid]
		if err := e.remote.DeleteEvent(ctx, ev.RemoteID); err != nil {
			return deleted, err
		}
		deleted = append(deleted, ev.UID)
	}
	return deleted, nil
}

// summarize joins UIDs for log lines.
func summarize(uids []string) string {
	if len(uids) == 0 {
		return "-"
	}
	return strings.Join(uids, ",")
}
