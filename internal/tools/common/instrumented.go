package common

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and a
// log line per invocation. The person's email, when the tool takes one, is
// logged only as a hash.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("sync_calendar", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, errors.New(resultText(result)))
		default:
			instrumentation.SetSpanSuccess(span)
		}

		email, _ := request.GetArguments()["email"].(string)
		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocationForPerson(ctx, toolName, status, email, duration)
		}

		attrs := []any{
			logging.Tool(toolName),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
		}
		if email != "" {
			attrs = append(attrs, logging.UserHash(email))
		}
		if err != nil {
			attrs = append(attrs, logging.Err(err))
		}
		sc.Logger().Info("Tool invoked", attrs...)

		return result, err
	}
}

// resultText returns the first text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}
