package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"station/internal/parser"
)

const (
	traceScopeDispatch = "station.dispatch"

	traceSpanCommand = "station.command.execute"

	traceAttrCycleID = "station.cycle_id"
	traceAttrCommand = "station.command"
	traceAttrOutcome = "station.outcome"
)

func startCommandSpan(ctx context.Context, cycle *Cycle, name parser.Name) (context.Context, trace.Span) {
	return otel.Tracer(traceScopeDispatch).Start(ctx, traceSpanCommand, trace.WithAttributes(
		attribute.String(traceAttrCycleID, cycle.ID),
		attribute.String(traceAttrCommand, string(name)),
	))
}

// markCommandSpan records the outcome. Only failures are span errors; a
// rejected one-shot command is expected model behaviour.
func markCommandSpan(span trace.Span, fb Feedback) {
	span.SetAttributes(attribute.String(traceAttrOutcome, fb.Outcome.String()))
	if fb.Outcome == OutcomeFailure {
		span.SetStatus(codes.Error, fb.Message)
		return
	}
	span.SetStatus(codes.Ok, "")
}
