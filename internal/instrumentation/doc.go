// Package instrumentation provides OpenTelemetry metrics and tracing for
// schedule imports and calendar sync.
//
// # Metrics
//
// Sync:
//   - sync_passes_total: sync passes by role and status
//   - sync_pass_duration_seconds: duration of one person's pass
//   - sync_events_total: events by reconcile action (checked, updated, created, deleted)
//   - calendar_operations_total: Google Calendar calls by operation and status
//   - calendar_operation_duration_seconds: Google Calendar call durations
//
// Import:
//   - schedule_imports_total: sheet imports by status
//   - schedule_import_duration_seconds: sheet import durations
//   - schedule_import_lessons_total: lessons by outcome (created, updated, skipped)
//
// Server:
//   - http_requests_total and http_request_duration_seconds
//   - mcp_tool_invocations_total and mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are created for sync and clear passes (sync.<pass>), every Google
// Calendar call (calendar.<operation>), schedule imports (schedule.import)
// and MCP tool invocations (tool.<name>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable metrics and tracing
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces and metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: schedsync)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig(true))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	syncer := sync.NewSyncer(st, dir, creds, factory, sync.WithRecorder(provider.Metrics()))
package instrumentation
