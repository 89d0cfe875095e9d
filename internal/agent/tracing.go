package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScopeAgent = "station.agent"

	traceSpanCycle       = "station.agent.cycle"
	traceSpanLLMGenerate = "station.llm.generate"

	traceAttrCycleID        = "station.cycle_id"
	traceAttrStatus         = "station.status"
	traceAttrModel          = "station.llm.model"
	traceAttrPromptTokens   = "station.llm.prompt_tokens"
	traceAttrResponseTokens = "station.llm.response_tokens"
	traceAttrCommands       = "station.commands"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(traceScopeAgent).Start(ctx, name, trace.WithAttributes(attrs...))
}

func markSpanResult(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String(traceAttrStatus, status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
