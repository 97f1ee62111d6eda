package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nubip/schedsync/internal/logging"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrRole      = "role"
	attrAction    = "action"
	attrOutcome   = "outcome"
	attrTool      = "tool"
	attrDomain    = "domain"
)

// Metrics records the service's measurements. A zero Metrics is valid and
// records nothing, which is what a disabled Provider hands out.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google Calendar metrics
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	// Sync metrics
	syncPassesTotal  metric.Int64Counter
	syncPassDuration metric.Float64Histogram
	syncEventsTotal  metric.Int64Counter

	// Import metrics
	importsTotal       metric.Int64Counter
	importDuration     metric.Float64Histogram
	importLessonsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the person's email domain to tool metrics.
	detailedLabels bool
}

type counterSpec struct {
	dst        *metric.Int64Counter
	name, desc string
	unit       string
}

type histogramSpec struct {
	dst        *metric.Float64Histogram
	name, desc string
	buckets    []float64
}

var (
	fastBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	apiBuckets  = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	passBuckets = []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0}
)

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []counterSpec{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.calendarOperationsTotal, "calendar_operations_total", "Total number of Google Calendar operations", "{operation}"},
		{&m.syncPassesTotal, "sync_passes_total", "Total number of calendar sync passes", "{pass}"},
		{&m.syncEventsTotal, "sync_events_total", "Calendar events checked, updated, created or deleted by sync", "{event}"},
		{&m.importsTotal, "schedule_imports_total", "Total number of schedule sheet imports", "{import}"},
		{&m.importLessonsTotal, "schedule_import_lessons_total", "Lessons created, updated or skipped by imports", "{lesson}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []histogramSpec{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds", fastBuckets},
		{&m.calendarOperationDuration, "calendar_operation_duration_seconds", "Google Calendar operation duration in seconds", apiBuckets},
		{&m.syncPassDuration, "sync_pass_duration_seconds", "Duration of one person's sync pass in seconds", passBuckets},
		{&m.importDuration, "schedule_import_duration_seconds", "Schedule sheet import duration in seconds", passBuckets},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", apiBuckets},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records one call to the Google Calendar API.
// op names the call: list, import, update, delete or find.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, op, status string, duration time.Duration) {
	if m.calendarOperationsTotal == nil || m.calendarOperationDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, op),
		attribute.String(attrStatus, status),
	)
	m.calendarOperationsTotal.Add(ctx, 1, attrs)
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSyncPass records a finished sync pass for one person.
func (m *Metrics) RecordSyncPass(ctx context.Context, role, status string, duration time.Duration) {
	if m.syncPassesTotal == nil || m.syncPassDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrRole, role),
		attribute.String(attrStatus, status),
	)
	m.syncPassesTotal.Add(ctx, 1, attrs)
	m.syncPassDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSyncEvents adds count events to the given reconcile action.
func (m *Metrics) RecordSyncEvents(ctx context.Context, action string, count int) {
	if m.syncEventsTotal == nil || count <= 0 {
		return
	}
	m.syncEventsTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrAction, action)))
}

// RecordImport records one schedule sheet import.
func (m *Metrics) RecordImport(ctx context.Context, status string, duration time.Duration) {
	if m.importsTotal == nil || m.importDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.importsTotal.Add(ctx, 1, attrs)
	m.importDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordImportLessons adds count lessons with the given outcome.
func (m *Metrics) RecordImportLessons(ctx context.Context, outcome string, count int) {
	if m.importLessonsTotal == nil || count <= 0 {
		return
	}
	m.importLessonsTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationForPerson(ctx, toolName, status, "", duration)
}

// RecordToolInvocationForPerson records a tool invocation made on behalf of
// a person. The email's domain becomes a label only with detailed labels on;
// the address itself is never recorded.
func (m *Metrics) RecordToolInvocationForPerson(ctx context.Context, toolName, status, email string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && email != "" {
		attrs = append(attrs, attribute.String(attrDomain, logging.ExtractDomain(email)))
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
