// Package agent runs the station's autonomous cycle: assemble a prompt, ask
// the model, execute the commands it wrote and record the outcome.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	promptctx "station/internal/context"
	"station/internal/dispatch"
	serrors "station/internal/errors"
	"station/internal/llm"
	"station/internal/logging"
	"station/internal/metrics"
	"station/internal/parser"
	tokenutil "station/internal/shared/token"
	"station/internal/store"
)

// Cycle statuses reported to metrics and logs.
const (
	StatusCompleted = "completed"
	StatusFrozen    = "frozen"
	StatusFailed    = "failed"
	StatusFatal     = "fatal"
)

// Assembler produces the prompt for one cycle.
type Assembler interface {
	Assemble() (promptctx.Prompt, error)
}

// Executor runs the commands found in a model response.
type Executor interface {
	Execute(ctx context.Context, cycle *dispatch.Cycle, invocations []parser.Invocation) []dispatch.Feedback
}

// Deps are the collaborators of a Loop.
type Deps struct {
	Stores    *store.Stores
	Assembler Assembler
	Model     llm.Client
	Executor  Executor
	Oracle    tokenutil.Oracle
	Metrics   *metrics.Metrics
	Logger    logging.Logger
	Clock     func() time.Time
}

// Config controls loop pacing.
type Config struct {
	QueryInterval time.Duration
	FailureDelay  time.Duration
}

// Result describes one finished cycle.
type Result struct {
	CycleID        string
	Status         string
	PromptTokens   int
	ResponseTokens int
	Response       string
	Feedback       []dispatch.Feedback
	Entry          string
}

// Loop is the sequential agent cycle controller.
type Loop struct {
	deps   Deps
	cfg    Config
	logger logging.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewLoop validates deps and returns a loop ready to Run.
func NewLoop(deps Deps, cfg Config) (*Loop, error) {
	switch {
	case deps.Stores == nil:
		return nil, fmt.Errorf("agent: stores are required")
	case deps.Assembler == nil:
		return nil, fmt.Errorf("agent: assembler is required")
	case deps.Model == nil:
		return nil, fmt.Errorf("agent: model client is required")
	case deps.Executor == nil:
		return nil, fmt.Errorf("agent: executor is required")
	}
	if deps.Oracle == nil {
		deps.Oracle = tokenutil.Default()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Loop{
		deps:   deps,
		cfg:    cfg,
		logger: logging.Component(deps.Logger, "agent"),
		now:    now,
		sleep:  sleepContext,
	}, nil
}

// Run executes cycles until ctx is cancelled or a fatal error occurs. A
// cancelled context is a clean stop and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Agent loop started with model %s", l.deps.Model.Model())
	for {
		if ctx.Err() != nil {
			l.logger.Info("Agent loop stopped")
			return nil
		}

		delay := l.cfg.QueryInterval
		if _, err := l.RunOnce(ctx); err != nil {
			if serrors.IsFatal(err) {
				l.logger.Error("Agent loop stopped by fatal error: %s", serrors.FormatMessage(err))
				return err
			}
			if ctx.Err() != nil {
				l.logger.Info("Agent loop stopped")
				return nil
			}
			l.logger.Error("Cycle failed: %s", serrors.FormatMessage(err))
			delay = l.cfg.FailureDelay
		}

		if err := l.sleep(ctx, delay); err != nil {
			l.logger.Info("Agent loop stopped")
			return nil
		}
	}
}

// RunOnce performs a single cycle. A frozen model is not an error: the
// returned result carries StatusFrozen and nothing else happens.
func (l *Loop) RunOnce(ctx context.Context) (Result, error) {
	started := l.now()
	cycle := dispatch.NewCycle(started)
	result := Result{CycleID: cycle.ID}

	ctx, span := startSpan(ctx, traceSpanCycle, attribute.String(traceAttrCycleID, cycle.ID))
	defer span.End()

	finish := func(status string, err error) (Result, error) {
		result.Status = status
		l.deps.Metrics.ObserveCycle(status, l.now().Sub(started))
		markSpanResult(span, status, err)
		return result, err
	}

	unfreeze, err := l.deps.Stores.ModelUnfreeze.Get()
	if err != nil {
		return finish(StatusFailed, fmt.Errorf("read model unfreeze time: %w", err))
	}
	if started.Before(unfreeze) {
		l.logger.Debug("Model is frozen until %s", unfreeze.Format(store.TimestampLayout))
		return finish(StatusFrozen, nil)
	}

	prompt, err := l.deps.Assembler.Assemble()
	if err != nil {
		return finish(statusOf(err), fmt.Errorf("assemble prompt: %w", err))
	}
	result.PromptTokens = prompt.Tokens
	l.deps.Metrics.SetPromptTokens(prompt.Tokens)
	l.logger.Info("Approximate prompt size → %d tokens", prompt.Tokens)

	response, err := l.complete(ctx, prompt)
	if err != nil {
		return finish(statusOf(err), err)
	}
	result.Response = response
	result.ResponseTokens = l.deps.Oracle.Count(response)
	span.SetAttributes(
		attribute.Int(traceAttrPromptTokens, result.PromptTokens),
		attribute.Int(traceAttrResponseTokens, result.ResponseTokens),
	)
	l.deps.Metrics.SetResponseTokens(result.ResponseTokens)
	l.logger.Info("Approximate response size → %d tokens", result.ResponseTokens)

	invocations := parser.Scan(response)
	span.SetAttributes(attribute.Int(traceAttrCommands, len(invocations)))
	result.Feedback = l.deps.Executor.Execute(ctx, cycle, invocations)
	result.Entry = HistoryEntry(response, result.Feedback)
	if err := l.deps.Stores.History.Append(result.Entry); err != nil {
		return finish(StatusFailed, fmt.Errorf("record history: %w", err))
	}
	l.logger.Info("→ {\n%s\n}", result.Entry)
	return finish(StatusCompleted, nil)
}

func (l *Loop) complete(ctx context.Context, prompt promptctx.Prompt) (string, error) {
	ctx, span := startSpan(ctx, traceSpanLLMGenerate,
		attribute.String(traceAttrModel, l.deps.Model.Model()),
		attribute.Int(traceAttrPromptTokens, prompt.Tokens),
	)
	defer span.End()

	response, err := l.deps.Model.Complete(ctx, prompt.Text)
	if err != nil {
		markSpanResult(span, statusOf(err), err)
		return "", err
	}
	markSpanResult(span, StatusCompleted, nil)
	return response, nil
}

// HistoryEntry formats a finished cycle for the history store.
func HistoryEntry(response string, feedback []dispatch.Feedback) string {
	return "==== Model response ====\n\n" + response + "\n\n==== Program parsing ====\n\n" + dispatch.Render(feedback)
}

func statusOf(err error) string {
	if serrors.IsFatal(err) {
		return StatusFatal
	}
	return StatusFailed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
