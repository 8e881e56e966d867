package brain

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var brainTracer = otel.Tracer("astra/brain")

var dispatchLatency, _ = otel.Meter("astra/brain").Float64Histogram(
	"astra_brain_dispatch_latency_ms",
	metric.WithDescription("Brain Router dispatch latency per LLM call, in milliseconds"),
)

var dispatchTotal, _ = otel.Meter("astra/brain").Int64Counter(
	"astra_brain_dispatch_total",
	metric.WithDescription("Brain Router dispatches, by model tier and outcome"),
)

// startDispatchSpan opens one span per dispatchOne call (spec.md §4.4's
// per-request model tier/fallback dispatch), and returns a closer that ends
// the span and records the matching latency/outcome metrics.
func startDispatchSpan(ctx context.Context, tier ModelTier, model string) (context.Context, func(resp *Response)) {
	ctx, span := brainTracer.Start(ctx, "brain.dispatch",
		trace.WithAttributes(
			attribute.String("tier", string(tier)),
			attribute.String("model", model),
		))

	return ctx, func(resp *Response) {
		outcome := "ok"
		var latency int64
		if resp != nil {
			latency = resp.LatencyMS
			if !resp.OK {
				outcome = string(resp.FailureClass)
				span.SetStatus(codes.Error, outcome)
			}
		}
		attrs := metric.WithAttributes(
			attribute.String("tier", string(tier)),
			attribute.String("model", model),
			attribute.String("outcome", outcome),
		)
		dispatchLatency.Record(ctx, float64(latency), attrs)
		dispatchTotal.Add(ctx, 1, attrs)
		span.End()
	}
}
