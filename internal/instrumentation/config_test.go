package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{
		"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER",
		"TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG", "METRICS_DETAILED_LABELS",
	} {
		t.Setenv(key, "")
	}

	cfg := DefaultConfig(false)
	assert.Equal(t, "schedsync", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ExporterPrometheus, cfg.MetricsExporter)
	assert.Equal(t, ExporterNone, cfg.TracingExporter)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
	assert.False(t, cfg.DetailedLabels)

	assert.True(t, DefaultConfig(true).Enabled, "the caller's default applies when the variable is unset")
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "schedsync-worker")
	t.Setenv("INSTRUMENTATION_ENABLED", "true")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("METRICS_DETAILED_LABELS", "yes-please")

	cfg := DefaultConfig(false)
	assert.Equal(t, "schedsync-worker", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterStdout, cfg.MetricsExporter)
	assert.Equal(t, ExporterOTLP, cfg.TracingExporter)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.InDelta(t, 0.5, cfg.TraceSamplingRate, 1e-9)
	assert.False(t, cfg.DetailedLabels, "unparsable booleans fall back to the default")
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "prometheus", config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone}},
		{name: "empty exporters", config: Config{}},
		{name: "otlp with endpoint", config: Config{TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"}},
		{name: "negative sampling", config: Config{TraceSamplingRate: -0.5}, wantErr: "sampling rate"},
		{name: "sampling above one", config: Config{TraceSamplingRate: 1.5}, wantErr: "sampling rate"},
		{name: "metrics exporter", config: Config{MetricsExporter: "graphite"}, wantErr: "invalid metrics exporter"},
		{name: "tracing exporter", config: Config{TracingExporter: "zipkin"}, wantErr: "invalid tracing exporter"},
		{name: "otlp metrics without endpoint", config: Config{MetricsExporter: ExporterOTLP}, wantErr: "OTLP endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
