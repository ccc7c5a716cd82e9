package observe

import (
	"errors"

	"github.com/jonwraymond/openviking-mcp/observe/exporters"
)

// Config errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

// ErrNilObserver is returned when middleware is built from a nil Observer.
var ErrNilObserver = errors.New("observe: observer is nil")

const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted values for the telemetry section. The empty string selects the
// default.
var (
	ValidTracingExporters = []string{exporters.OTLP, exporters.Stdout, exporters.None, ""}
	ValidMetricsExporters = []string{exporters.OTLP, exporters.Prometheus, exporters.Stdout, exporters.None, ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields are log keys whose values are replaced before writing:
// API keys, signing secrets and raw tool input, which can carry message
// content or registration keys.
var RedactedFields = []string{
	"input",
	"inputs",
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apiKey",
	"credential",
	"user_key",
	"root_api_key",
	"jwt_secret",
}
