package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pioneerpictures/clover/pkg/tracing/exporters"
)

// NewProvider builds the tracer provider, installs it globally and binds
// the package tracer to it. The returned provider must be shut down during
// service teardown to flush pending spans.
func NewProvider(serviceName string) *sdktrace.TracerProvider {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(&exporters.ConsoleExporter{}),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)

	otel.SetTracerProvider(provider)
	SetTracer(provider.Tracer(serviceName))
	return provider
}
