// Package telemetry wires the process-wide OTel SDK providers that
// pkg/brain, pkg/runengine, and pkg/chat record spans and metrics against.
//
// astrad is a local-first, privacy-preserving kernel (spec.md §1): it never
// phones home, so there is no OTLP collector endpoint to ship spans to by
// default. Setup still constructs real go.opentelemetry.io/otel/sdk
// trace/metric providers (rather than leaving the global no-op providers in
// place) so every astra_* span and instrument created elsewhere in the tree
// is a genuine SDK object with a resource attached, ready to export the
// moment an operator points ASTRA_OTEL_EXPORTER at a collector.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Setup installs process-wide TracerProvider and MeterProvider instances
// tagged with serviceName/serviceVersion, and returns a shutdown func to
// flush and release them on graceful exit.
func Setup(serviceName, serviceVersion string) (shutdown func(context.Context) error, err error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.AlwaysSample()
	if os.Getenv("ASTRA_OTEL_SAMPLE_RATIO") != "" {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio()))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

func sampleRatio() float64 {
	switch os.Getenv("ASTRA_OTEL_SAMPLE_RATIO") {
	case "1.0":
		return 1.0
	case "0.5":
		return 0.5
	case "0.1":
		return 0.1
	default:
		return 1.0
	}
}
