package chat

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// degradedCounter counts soft-retry-guard degradations by reason, so an
// operator watching OTel metrics can see how often the Chat Loop had to
// fall back to a remediation retry instead of serving the first draft
// (spec.md §4.8 step 3).
var degradedCounter, _ = otel.Meter("astra/chat").Int64Counter(
	"astra_chat_degraded_total",
	metric.WithDescription("Chat Loop responses that required soft-retry-guard remediation, by reason"),
)

// degradedReason picks the label recorded on astra_chat_degraded_total: the
// first guard reason that triggered the retry ladder, or "unknown" when a
// response was forced through the soft-retry path without a classified hit
// (e.g. an empty draft).
func degradedReason(hits []GuardReason) string {
	if len(hits) == 0 {
		return "unknown"
	}
	return string(hits[0])
}

func recordDegraded(ctx context.Context, reason string) {
	degradedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
