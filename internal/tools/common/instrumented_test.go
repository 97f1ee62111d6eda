package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/store"
)

func newContext(t *testing.T, metrics *instrumentation.Metrics) (*server.ServerContext, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	sc, err := server.NewServerContext(context.Background(), server.Services{
		Store:   store.NewMemory(),
		Metrics: metrics,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, &buf
}

func callWith(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc, logs := newContext(t, nil)

	called := false
	wrapped := InstrumentedToolHandler("sync_calendar", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("checked: 1, updated: 0, created: 0, deleted: 0"), nil
	})

	result, err := wrapped(context.Background(), callWith(map[string]any{"email": "jane@nubip.edu.ua"}))
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)

	out := logs.String()
	assert.Contains(t, out, "tool=sync_calendar")
	assert.Contains(t, out, "status=success")
	assert.Contains(t, out, "user_hash=user:")
	assert.NotContains(t, out, "jane@nubip.edu.ua", "emails are never logged in clear")
}

func TestInstrumentedToolHandler_Errors(t *testing.T) {
	sc, logs := newContext(t, nil)

	boom := errors.New("boom")
	wrapped := InstrumentedToolHandler("import_schedule", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, boom
	})
	_, err := wrapped(context.Background(), callWith(nil))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, logs.String(), "status=error")

	logs.Reset()
	wrapped = InstrumentedToolHandler("import_schedule", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("no semester configured"), nil
	})
	result, err := wrapped(context.Background(), callWith(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, logs.String(), "status=error", "error results count as failures")
}

func TestInstrumentedToolHandler_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	sc, _ := newContext(t, metrics)
	wrapped := InstrumentedToolHandler("list_semesters", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("[]"), nil
	})
	_, err = wrapped(context.Background(), callWith(nil))
	require.NoError(t, err)

	assert.Equal(t, int64(1), toolCalls(t, reader, "list_semesters"))
}

func toolCalls(t *testing.T, reader *sdkmetric.ManualReader, tool string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if md.Name != "mcp_tool_invocations_total" || !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if v, _ := dp.Attributes.Value(attribute.Key("tool")); v.AsString() == tool {
					total += dp.Value
				}
			}
		}
	}
	return total
}
