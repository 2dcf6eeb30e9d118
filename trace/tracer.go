package observability

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ConfigureTraceProvider installs the global tracer provider. Spans are only
// exported when endpoint is set, the propagator is installed either way so
// trace context still travels between services.
func ConfigureTraceProvider(serviceName, endpoint string) (*tracesdk.TracerProvider, error) {
	opts := []tracesdk.TracerProviderOption{
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	}

	if endpoint != "" {
		exp, err := jaeger.New(
			jaeger.WithCollectorEndpoint(
				jaeger.WithEndpoint(endpoint),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("could not create jaeger exporter: %w", err)
		}
		opts = append(opts, tracesdk.WithBatcher(exp))
	}

	tp := tracesdk.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)

	// without it the trace is not propagated via messages
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}
