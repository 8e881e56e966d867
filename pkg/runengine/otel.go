package runengine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/astra-ai/kernel/pkg/store"
)

var stepTracer = otel.Tracer("astra/runengine")

var stepDuration, _ = otel.Meter("astra/runengine").Float64Histogram(
	"astra_runengine_step_duration_ms",
	metric.WithDescription("Plan step execution duration, from dispatch to outcome, in milliseconds"),
)

var stepTotal, _ = otel.Meter("astra/runengine").Int64Counter(
	"astra_runengine_step_total",
	metric.WithDescription("Plan step executions, by kind and terminal status"),
)

// startStepSpan opens one span per dispatched task (spec.md §4.10's
// observe/dispatch/apply-outcome step loop) and returns a closer that ends
// the span and records the matching duration/outcome metrics once the
// dispatcher returns.
func startStepSpan(ctx context.Context, step *store.PlanStep) (context.Context, func(outcome Outcome)) {
	start := time.Now()
	ctx, span := stepTracer.Start(ctx, "runengine.step",
		trace.WithAttributes(
			attribute.String("kind", step.Kind),
			attribute.String("skill", step.SkillName),
		))

	return ctx, func(outcome Outcome) {
		if outcome.Status == store.TaskStatusFailed {
			span.SetStatus(codes.Error, string(outcome.ErrorClass))
		}
		attrs := metric.WithAttributes(
			attribute.String("kind", step.Kind),
			attribute.String("skill", step.SkillName),
			attribute.String("status", outcome.Status),
		)
		stepDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		stepTotal.Add(ctx, 1, attrs)
		span.End()
	}
}
