package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span started here.
const TracerName = "github.com/nubip/schedsync"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrOperation = "calendar.operation"
	SpanAttrRole      = "sync.role"
	SpanAttrUserHash  = "sync.user_hash"
	SpanAttrFile      = "import.file"
	SpanAttrSemester  = "import.semester_id"
	SpanAttrDryRun    = "import.dry_run"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming. Empty values are left out.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

func (b *SpanAttributeBuilder) str(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// WithTool adds the MCP tool name.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	return b.str(SpanAttrTool, tool)
}

// WithRole adds the synchronized person's role.
func (b *SpanAttributeBuilder) WithRole(role string) *SpanAttributeBuilder {
	return b.str(SpanAttrRole, role)
}

// WithUserHash adds an anonymized person identifier.
func (b *SpanAttributeBuilder) WithUserHash(hash string) *SpanAttributeBuilder {
	return b.str(SpanAttrUserHash, hash)
}

// WithFile adds the imported workbook path.
func (b *SpanAttributeBuilder) WithFile(path string) *SpanAttributeBuilder {
	return b.str(SpanAttrFile, path)
}

// WithSemester adds the target semester; zero is left out.
func (b *SpanAttributeBuilder) WithSemester(id int64) *SpanAttributeBuilder {
	if id != 0 {
		b.attrs = append(b.attrs, attribute.Int64(SpanAttrSemester, id))
	}
	return b
}

// WithDryRun marks an import that persists nothing.
func (b *SpanAttributeBuilder) WithDryRun(dryRun bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrDryRun, dryRun))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts a new span with the given name and attributes.
// The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartCalendarSpan starts a client span for one Google Calendar call.
func StartCalendarSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "calendar."+operation,
		trace.WithAttributes(attribute.String(SpanAttrOperation, operation)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartSyncSpan starts the span of a sync or clear pass.
func StartSyncSpan(ctx context.Context, pass string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "sync."+pass, trace.WithAttributes(attrs...))
}

// StartImportSpan starts the span of one schedule import.
func StartImportSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "schedule.import", trace.WithAttributes(attrs...))
}

// SetSpanError records err on the span and marks it failed.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
