// Package app wires the station's components from a base directory.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"station/internal/agent"
	"station/internal/config"
	promptctx "station/internal/context"
	"station/internal/dispatch"
	serrors "station/internal/errors"
	"station/internal/llm"
	"station/internal/logging"
	"station/internal/metrics"
	serverhttp "station/internal/server/http"
	tokenutil "station/internal/shared/token"
	"station/internal/store"
	"station/internal/tracing"
	"station/internal/webfetch"
	"station/internal/workspace"
)

// Options customise Build.
type Options struct {
	// Env overrides the environment lookup used for STATION_* settings.
	Env func(string) (string, bool)
	// Console receives log output. Nil means stdout.
	Console io.Writer
	// Oracle replaces the tokenizer.
	Oracle tokenutil.Oracle
	// Model replaces the Gemini client, mainly for tests.
	Model llm.Client
	// ModelBaseURL points the Gemini client at another endpoint.
	ModelBaseURL string
	// Version is reported as the traced service version.
	Version string
	Clock   func() time.Time
}

// App is a fully wired station instance.
type App struct {
	Settings  config.Settings
	Metadata  config.Metadata
	Warnings  []config.ValidationIssue
	Layout    store.Layout
	Stores    *store.Stores
	Workspace workspace.Workspace
	Assembler *promptctx.Assembler
	Loop      *agent.Loop
	Server    *serverhttp.Server
	Registry  *prometheus.Registry
	Tracing   *tracing.Provider
	Logger    logging.Logger

	closer io.Closer
}

// Build loads settings from base/general/settings.yaml, validates them and
// constructs every component. Invalid settings are returned as an error.
func Build(base string, opts Options) (*App, error) {
	layout := store.Layout{Base: base}
	var loadOpts []config.Option
	if opts.Env != nil {
		loadOpts = append(loadOpts, config.WithEnv(opts.Env))
	}
	settings, meta, err := config.Load(layout.Settings(), loadOpts...)
	if err != nil {
		return nil, err
	}
	report := config.Validate(settings)
	if err := report.Err(); err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logging.Config{
		Level:   settings.Logging.Level,
		Format:  settings.Logging.Format,
		File:    layout.Log(),
		Console: opts.Console,
	})
	if err != nil {
		return nil, err
	}
	if meta.Created {
		logger.Info("Created %s with default settings", meta.Path)
	}
	for _, key := range meta.Overridden() {
		logger.Debug("Setting %s comes from %s", key, meta.Source(key))
	}
	for _, issue := range report.Warnings {
		logger.Warn("Settings: %s %s", issue.ID, issue.Message)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = tokenutil.Default()
	}

	app := &App{
		Settings: settings,
		Metadata: meta,
		Warnings: report.Warnings,
		Layout:   layout,
		Logger:   logger,
		closer:   closer,
	}
	if err := app.wire(opts, clock, oracle); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(opts Options, clock func() time.Time, oracle tokenutil.Oracle) error {
	s := a.Settings
	a.Stores = store.Open(a.Layout, s.PromptLimits.History.Turns, a.Logger, clock)

	ws, err := workspace.New(a.Layout.Base, a.Layout.Workspace())
	if err != nil {
		return err
	}
	if err := ws.Ensure(); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	a.Workspace = ws

	t := s.Tracing
	a.Tracing, err = tracing.New(context.Background(), tracing.Config{
		Enabled:        t.Enabled,
		Exporter:       t.Exporter,
		OTLPEndpoint:   t.OTLPEndpoint,
		ZipkinEndpoint: t.ZipkinEndpoint,
		SampleRate:     t.SampleRate,
		ServiceName:    t.ServiceName,
		ServiceVersion: opts.Version,
	})
	if err != nil {
		return err
	}
	if a.Tracing.Enabled() {
		a.Logger.Info("Exporting traces with %s", t.Exporter)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(a.Registry)

	fetchCfg := webfetch.DefaultConfig()
	fetchCfg.MaxBytes = int64(s.PromptLimits.FetchURL.Bytes)
	fetchCfg.MaxTokens = s.PromptLimits.FetchURL.Tokens
	dispatcher, err := dispatch.New(dispatch.World{
		Stores:    a.Stores,
		Workspace: ws,
		Fetcher:   webfetch.New(fetchCfg, oracle),
		Clock:     clock,
	}, dispatch.WithLogger(a.Logger), dispatch.WithObserver(m))
	if err != nil {
		return err
	}

	a.Assembler = promptctx.NewAssembler(promptctx.Sources{
		Stores:        a.Stores,
		Workspace:     ws,
		Clock:         clock,
		HistoryTurns:  s.PromptLimits.History.Turns,
		QueryInterval: s.QueryInterval(),
	}, promptctx.Budgets{
		Total:   s.PromptLimits.TotalTokens,
		History: s.PromptLimits.History.Tokens,
	}, oracle, a.Logger)

	model := opts.Model
	if model == nil {
		var genaiOpts []llm.GenAIOption
		if opts.ModelBaseURL != "" {
			genaiOpts = append(genaiOpts, llm.WithBaseURL(opts.ModelBaseURL))
		}
		keys := llm.NewKeyRing(a.Stores.Keys, a.Logger)
		retry := serrors.DefaultRetryConfig()
		retry.MaxAttempts = s.APIRequest.MaxRetries
		model = llm.WrapWithRetry(
			llm.NewGenAIClient(s.APIRequest.Model, keys, a.Logger, genaiOpts...),
			retry,
			serrors.DefaultCircuitBreakerConfig(),
			a.Logger,
		)
	}

	a.Loop, err = agent.NewLoop(agent.Deps{
		Stores:    a.Stores,
		Assembler: a.Assembler,
		Model:     model,
		Executor:  dispatcher,
		Oracle:    oracle,
		Metrics:   m,
		Logger:    a.Logger,
		Clock:     clock,
	}, agent.Config{
		QueryInterval: s.QueryInterval(),
		FailureDelay:  s.FailureDelay(),
	})
	if err != nil {
		return err
	}

	a.Server, err = serverhttp.NewServer(serverhttp.Deps{
		Stores:   a.Stores,
		Settings: s,
		Metrics:  m,
		Gatherer: a.Registry,
		Logger:   a.Logger,
		Clock:    clock,
	})
	return err
}

// Run starts the agent loop and the chat server and blocks until ctx is
// cancelled or either of them fails. A fatal loop error stops the server.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Run(ctx)
	})
	g.Go(func() error {
		if err := a.Loop.Run(ctx); err != nil {
			return fmt.Errorf("agent loop: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close flushes pending spans and releases the log file.
func (a *App) Close() error {
	var errs []error
	if a.Tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
