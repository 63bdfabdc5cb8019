// Package telemetry wires the OpenTelemetry SDK: OTLP gRPC exporters for
// traces and metrics when enabled, noop providers when not.
package telemetry
