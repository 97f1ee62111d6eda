package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("import_schedule").
		WithFile("/uploads/fit.xlsx").
		WithSemester(7).
		WithDryRun(true).
		WithRole("").
		WithSemester(0).
		Build()

	assert.Equal(t, []attribute.KeyValue{
		attribute.String(SpanAttrTool, "import_schedule"),
		attribute.String(SpanAttrFile, "/uploads/fit.xlsx"),
		attribute.Int64(SpanAttrSemester, 7),
		attribute.Bool(SpanAttrDryRun, true),
	}, attrs, "empty values are left out")
}

func TestStartCalendarSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartCalendarSpan(context.Background(), "import")
	assert.NotEmpty(t, GetTraceID(ctx))
	SetSpanError(span, errors.New("quota exceeded"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "calendar.import", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String(SpanAttrOperation, "import"))
}

func TestSyncSpanNestsCalendarCalls(t *testing.T) {
	rec := recordSpans(t)

	ctx, pass := StartSyncSpan(context.Background(), "sync")
	_, call := StartCalendarSpan(ctx, "list")
	call.End()
	SetSpanSuccess(pass)
	pass.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "calendar.list", ended[0].Name())
	assert.Equal(t, "sync.sync", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	assert.Equal(t, codes.Ok, ended[1].Status().Code)
}

func TestStartToolSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "sync_calendar", attribute.String(SpanAttrRole, "teacher"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.sync_calendar", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
	assert.Contains(t, ended[0].Attributes(), attribute.String(SpanAttrTool, "sync_calendar"))
	assert.Contains(t, ended[0].Attributes(), attribute.String(SpanAttrRole, "teacher"))
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}
