package exporters

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		env      map[string]string
		wantNil  bool
		wantErr  error
	}{
		{name: "stdout", exporter: Stdout},
		{name: "none", exporter: None, wantNil: true},
		{name: "empty", exporter: "", wantNil: true},
		{name: "otlp without endpoint", exporter: OTLP, env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "otlp", exporter: OTLP, env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"}},
		{name: "unknown", exporter: "zipkin", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			exp, err := NewTracingExporter(context.Background(), tt.exporter)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewTracingExporter(%q) error = %v, want %v", tt.exporter, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracingExporter(%q) error = %v", tt.exporter, err)
			}
			if (exp == nil) != tt.wantNil {
				t.Errorf("NewTracingExporter(%q) = %v, want nil %v", tt.exporter, exp, tt.wantNil)
			}
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		env      map[string]string
		wantNil  bool
		wantErr  error
	}{
		{name: "stdout", exporter: Stdout},
		{name: "none", exporter: None, wantNil: true},
		{name: "prometheus", exporter: Prometheus},
		{name: "otlp without endpoint", exporter: OTLP, env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "unknown", exporter: "statsd", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			reader, err := NewMetricsReader(context.Background(), tt.exporter)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewMetricsReader(%q) error = %v, want %v", tt.exporter, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsReader(%q) error = %v", tt.exporter, err)
			}
			if (reader == nil) != tt.wantNil {
				t.Errorf("NewMetricsReader(%q) = %v, want nil %v", tt.exporter, reader, tt.wantNil)
			}
		})
	}
}
