package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/instrumentation"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/tools/schedule_tools"
)

func newServeCmd() *cobra.Command {
	var (
		yolo        bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output,
giving AI assistants access to schedule imports, lessons and calendar syncs.

Safety Mode:
  By default, the server operates in read-only mode: semesters, lessons and
  computed calendars can be inspected, nothing is changed.
  Use --yolo to enable imports, lesson edits and calendar writes.

Metrics:
  With METRICS_ENABLED=true, Prometheus metrics and health probes
  (/metrics, /healthz, /readyz) are served on METRICS_ADDR (default :9090).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, yolo, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (imports, lesson edits, calendar sync). Default is read-only mode.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (overrides METRICS_ADDR)")
	return cmd
}

func runServe(ctx context.Context, yolo bool, metricsAddr string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if metricsAddr != "" {
		a.cfg.Metrics.Addr = metricsAddr
	}

	provider, err := a.instrument(ctx)
	if err != nil {
		return err
	}

	services := server.Services{
		Store:        a.store,
		UploadDir:    a.cfg.Schedule.UploadDir,
		CalendarName: a.cfg.Calendar.SourceTitle,
		Metrics:      a.metrics,
		Logger:       a.logger,
	}
	if im, err := a.importer(ctx); err != nil {
		a.logger.Warn("Schedule import tools disabled", logging.Err(err))
	} else {
		services.Importer = im
	}
	if syncer, err := a.syncer(ctx); err != nil {
		a.logger.Warn("Calendar tools disabled", logging.Err(err))
	} else {
		services.Syncer = syncer
	}

	serverContext, err := server.NewServerContext(ctx, services)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			a.logger.Error("Error during server context shutdown", logging.Err(err))
		}
	}()

	metricsServer, err := startMetricsServer(a, provider, serverContext)
	if err != nil {
		return err
	}
	defer stopMetricsServer(a, metricsServer)

	mcpSrv := mcpserver.NewMCPServer("schedsync", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	readOnly := !yolo
	if readOnly {
		a.logger.Info("Starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		a.logger.Info("Starting server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}
	return runStdioServer(ctx, mcpSrv)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := schedule_tools.RegisterScheduleTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register schedule tools: %w", err)
	}
	return nil
}

// pinger is implemented by token stores backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// newHealthChecker probes every backend the process has opened.
func newHealthChecker(a *app, sc *server.ServerContext) *server.HealthChecker {
	health := server.NewHealthChecker(sc)
	health.AddCheck("database", a.db.PingContext)
	if a.lmsDB != nil {
		health.AddCheck("lms", a.lmsDB.PingContext)
	}
	if a.auth != nil {
		if p, ok := a.auth.Provider().(pinger); ok {
			health.AddCheck("redis", p.Ping)
		}
	}
	return health
}

// startMetricsServer serves /metrics and the health probes in the
// background when metrics are enabled. It returns nil otherwise.
func startMetricsServer(a *app, provider *instrumentation.Provider, sc *server.ServerContext) (*server.MetricsServer, error) {
	if !a.cfg.Metrics.Enabled || !provider.Enabled() {
		return nil, nil
	}
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    a.cfg.Metrics.Addr,
		InstrumentationProvider: provider,
		Health:                  newHealthChecker(a, sc),
		Logger:                  a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case err := <-metricsErr:
		if err != nil {
			return nil, fmt.Errorf("metrics server failed to start: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	}
	return metricsServer, nil
}

func stopMetricsServer(a *app, metricsServer *server.MetricsServer) {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		a.logger.Error("Error during metrics server shutdown", logging.Err(err))
	}
}
