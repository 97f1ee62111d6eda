package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "schedsync-test"})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	require.NotNil(t, provider.Metrics(), "a disabled provider still hands out a usable recorder")
	assert.NotPanics(t, func() {
		provider.Metrics().RecordSyncPass(context.Background(), "student", StatusSuccess, time.Second)
	})
	assert.Nil(t, provider.PrometheusHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		prometheus bool
		wantErr    string
	}{
		{
			name:       "prometheus",
			config:     Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
			prometheus: true,
		},
		{
			name:       "defaults",
			config:     Config{},
			prometheus: true,
		},
		{
			name:   "stdout",
			config: Config{MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout},
		},
		{
			name:    "unknown metrics exporter",
			config:  Config{MetricsExporter: "statsd"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{TracingExporter: "jaeger"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp without endpoint",
			config:  Config{TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg := tt.config
			cfg.ServiceName = "schedsync-test"
			cfg.ServiceVersion = "1.0.0"
			cfg.Enabled = true

			provider, err := NewProvider(ctx, cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, provider.Shutdown(ctx)) }()

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.Equal(t, tt.prometheus, provider.PrometheusHandler() != nil)
		})
	}
}

func TestProvider_PrometheusHandlerServesRecordedMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{ServiceName: "schedsync-test", Enabled: true})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordImport(ctx, StatusSuccess, time.Second)

	rec := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schedule_imports")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
