package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"station/internal/parser"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider()
	tp.RegisterSpanProcessor(recorder)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return recorder
}

func spansByName(spans []sdktrace.ReadOnlySpan) map[string][]sdktrace.ReadOnlySpan {
	out := map[string][]sdktrace.ReadOnlySpan{}
	for _, span := range spans {
		out[span.Name()] = append(out[span.Name()], span)
	}
	return out
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestRunOnceEmitsCycleSpanTree(t *testing.T) {
	recorder := recordSpans(t)
	response := command(parser.MemoryAppend, "a") + " " + command(parser.MemoryAppend, "b")
	f := newFixture(t, func(string) (string, error) { return response, nil })

	result, err := f.loop.RunOnce(context.Background())
	require.NoError(t, err)

	spans := spansByName(recorder.Ended())
	require.Len(t, spans[traceSpanCycle], 1)
	require.Len(t, spans[traceSpanLLMGenerate], 1)
	require.Len(t, spans["station.command.execute"], 2)

	cycle := spans[traceSpanCycle][0]
	assert.Equal(t, result.CycleID, spanAttr(cycle, traceAttrCycleID))
	assert.Equal(t, StatusCompleted, spanAttr(cycle, traceAttrStatus))
	assert.Equal(t, "2", spanAttr(cycle, traceAttrCommands))
	assert.Equal(t, codes.Ok, cycle.Status().Code)

	llmSpan := spans[traceSpanLLMGenerate][0]
	assert.Equal(t, "fake", spanAttr(llmSpan, traceAttrModel))
	assert.Equal(t, cycle.SpanContext().SpanID(), llmSpan.Parent().SpanID())
	for _, span := range spans["station.command.execute"] {
		assert.Equal(t, cycle.SpanContext().SpanID(), span.Parent().SpanID())
	}
}

func TestRunOnceMarksFailedModelCallOnSpans(t *testing.T) {
	recorder := recordSpans(t)
	f := newFixture(t, func(string) (string, error) { return "", errors.New("upstream unavailable") })

	_, err := f.loop.RunOnce(context.Background())
	require.Error(t, err)

	spans := spansByName(recorder.Ended())
	require.Len(t, spans[traceSpanCycle], 1)
	require.Len(t, spans[traceSpanLLMGenerate], 1)
	assert.Equal(t, codes.Error, spans[traceSpanCycle][0].Status().Code)
	assert.Equal(t, StatusFailed, spanAttr(spans[traceSpanCycle][0], traceAttrStatus))
	assert.Equal(t, codes.Error, spans[traceSpanLLMGenerate][0].Status().Code)
	assert.Empty(t, spans["station.command.execute"])
}
