package sync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/instrumentation"
)

// Recorder receives sync measurements. *instrumentation.Metrics satisfies it.
type Recorder interface {
	RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration)
	RecordSyncPass(ctx context.Context, role, status string, duration time.Duration)
	RecordSyncEvents(ctx context.Context, action string, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCalendarOperation(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordSyncPass(context.Context, string, string, time.Duration)          {}
func (nopRecorder) RecordSyncEvents(context.Context, string, int)                         {}

// recordedRemote times and traces every call made to a RemoteStore.
type recordedRemote struct {
	next     RemoteStore
	recorder Recorder
}

func (r recordedRemote) begin(ctx context.Context, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, op)
	return ctx, span, time.Now()
}

func (r recordedRemote) observe(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	span.End()
	r.recorder.RecordCalendarOperation(ctx, op, status, time.Since(start))
}

func (r recordedRemote) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	ctx, span, start := r.begin(ctx, "list")
	events, err := r.next.ListEvents(ctx, timeMin, timeMax)
	r.observe(ctx, span, "list", start, err)
	return events, err
}

func (r recordedRemote) ImportEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	ctx, span, start := r.begin(ctx, "import")
	got, err := r.next.ImportEvent(ctx, e)
	r.observe(ctx, span, "import", start, err)
	return got, err
}

func (r recordedRemote) UpdateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	ctx, span, start := r.begin(ctx, "update")
	got, err := r.next.UpdateEvent(ctx, e)
	r.observe(ctx, span, "update", start, err)
	return got, err
}

func (r recordedRemote) DeleteEvent(ctx context.Context, remoteID string) error {
	ctx, span, start := r.begin(ctx, "delete")
	err := r.next.DeleteEvent(ctx, remoteID)
	r.observe(ctx, span, "delete", start, err)
	return err
}

func (r recordedRemote) FindByUID(ctx context.Context, uid string) (calendar.Event, error) {
	ctx, span, start := r.begin(ctx, "find")
	got, err := r.next.FindByUID(ctx, uid)
	r.observe(ctx, span, "find", start, err)
	return got, err
}
