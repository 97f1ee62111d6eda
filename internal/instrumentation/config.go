package instrumentation

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string

	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint has no scheme, e.g. "localhost:4318".
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is between 0 and 1.
	TraceSamplingRate float64

	// DetailedLabels adds the email domain to tool metrics.
	DetailedLabels bool
}

// DefaultConfig reads the configuration from OTEL_* and related variables.
// enabled is the fallback when INSTRUMENTATION_ENABLED is unset.
func DefaultConfig(enabled bool) Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("OTEL_SERVICE_NAME", "schedsync")
	v.SetDefault("METRICS_EXPORTER", ExporterPrometheus)
	v.SetDefault("TRACING_EXPORTER", ExporterNone)

	return Config{
		ServiceName:       v.GetString("OTEL_SERVICE_NAME"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: v.GetString("OTEL_SERVICE_INSTANCE_ID"),
		Enabled:           envBool(v, "INSTRUMENTATION_ENABLED", enabled),
		MetricsExporter:   v.GetString("METRICS_EXPORTER"),
		TracingExporter:   v.GetString("TRACING_EXPORTER"),
		OTLPEndpoint:      v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:      envBool(v, "OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat(v, "OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool(v, "METRICS_DETAILED_LABELS", false),
	}
}

// envBool keeps def for unset or unparsable values.
func envBool(v *viper.Viper, key string, def bool) bool {
	parsed, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		return def
	}
	return parsed
}

func envFloat(v *viper.Viper, key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(v.GetString(key), 64)
	if err != nil {
		return def
	}
	return parsed
}

// Validate checks exporter names, the sampling rate and that OTLP
// exporters have an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}
	return nil
}
