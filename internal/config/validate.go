package config

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	ID      string
	Message string
	Hint    string
}

// ValidationReport summarizes settings validation findings.
type ValidationReport struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// HasErrors reports whether the validation report contains blocking errors.
func (r ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err folds the blocking errors into one error, or nil.
func (r ValidationReport) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, issue := range r.Errors {
		msgs[i] = issue.ID + ": " + issue.Message
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// Lower bounds below which the station cannot work sensibly.
const (
	minTotalTokens      = 524288
	maxHistoryTokens    = 524288
	historyTokensByTurn = 1024
	minFetchBytes       = 524288
	minFetchTokens      = 4096
)

// Validate checks settings the way startup requires.
func Validate(s Settings) ValidationReport {
	var report ValidationReport
	fail := func(id, format string, args ...any) {
		report.Errors = append(report.Errors, ValidationIssue{ID: id, Message: fmt.Sprintf(format, args...)})
	}
	natural := func(id string, value int) bool {
		if value <= 0 {
			fail(id, "must be a natural number, got %d", value)
			return false
		}
		return true
	}

	p := s.PromptLimits
	if natural("prompt_limits.total_tokens", p.TotalTokens) && p.TotalTokens < minTotalTokens {
		fail("prompt_limits.total_tokens", "must be at least %d", minTotalTokens)
	}
	natural("prompt_limits.history.turns", p.History.Turns)
	if natural("prompt_limits.history.tokens", p.History.Tokens) {
		switch {
		case p.History.Tokens > maxHistoryTokens:
			fail("prompt_limits.history.tokens", "must not exceed %d", maxHistoryTokens)
		case p.History.Tokens < historyTokensByTurn*p.History.Turns:
			fail("prompt_limits.history.tokens", "must be at least %d per history turn", historyTokensByTurn)
		}
	}
	if natural("prompt_limits.fetch_url.bytes", p.FetchURL.Bytes) && p.FetchURL.Bytes < minFetchBytes {
		fail("prompt_limits.fetch_url.bytes", "must be at least %d", minFetchBytes)
	}
	if natural("prompt_limits.fetch_url.tokens", p.FetchURL.Tokens) && p.FetchURL.Tokens < minFetchTokens {
		fail("prompt_limits.fetch_url.tokens", "must be at least %d", minFetchTokens)
	}

	w := s.Website
	if w.ServerPort < 1 || w.ServerPort > 65535 {
		fail("website.server_port", "must be a port number between 1 and 65535, got %d", w.ServerPort)
	}
	natural("website.client_refresh", w.ClientRefresh)
	natural("website.length_limit.username.minimum", w.LengthLimit.Username.Minimum)
	if natural("website.length_limit.username.maximum", w.LengthLimit.Username.Maximum) &&
		w.LengthLimit.Username.Maximum < w.LengthLimit.Username.Minimum {
		fail("website.length_limit.username.maximum", "must not be below the minimum")
	}
	natural("website.length_limit.password.minimum", w.LengthLimit.Password.Minimum)
	if natural("website.length_limit.password.maximum", w.LengthLimit.Password.Maximum) &&
		w.LengthLimit.Password.Maximum < w.LengthLimit.Password.Minimum {
		fail("website.length_limit.password.maximum", "must not be below the minimum")
	}
	natural("website.length_limit.message", w.LengthLimit.Message)
	if w.RateLimit.PerMinute < 0 || w.RateLimit.Burst < 0 {
		fail("website.rate_limit", "must not be negative")
	}
	if w.RateLimit.PerMinute == 0 {
		report.Warnings = append(report.Warnings, ValidationIssue{
			ID:      "website.rate_limit.per_minute",
			Message: "per-IP rate limiting of chat messages is disabled",
			Hint:    "Set website.rate_limit.per_minute to a positive value.",
		})
	}
	for _, origin := range w.AllowedOrigins {
		if origin == "*" {
			report.Warnings = append(report.Warnings, ValidationIssue{
				ID:      "website.allowed_origins",
				Message: "cross-origin requests are allowed from any origin",
				Hint:    "List the chat page origins explicitly in production.",
			})
			break
		}
	}

	a := s.APIRequest
	if strings.TrimSpace(a.Model) == "" {
		fail("api_request.model", "is required")
	}
	natural("api_request.between_queries", a.BetweenQueries)
	natural("api_request.for_case_of_failure", a.ForCaseOfFailure)
	if a.MaxRetries < 0 {
		fail("api_request.max_retries", "must not be negative")
	}

	switch strings.ToLower(s.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		fail("logging.level", "unknown level %q", s.Logging.Level)
	}
	switch strings.ToLower(s.Logging.Format) {
	case "text", "json":
	default:
		fail("logging.format", "unknown format %q", s.Logging.Format)
	}

	if t := s.Tracing; t.Enabled {
		switch strings.ToLower(t.Exporter) {
		case "otlp":
			if strings.TrimSpace(t.OTLPEndpoint) == "" {
				fail("tracing.otlp_endpoint", "is required for the otlp exporter")
			}
		case "zipkin":
			if strings.TrimSpace(t.ZipkinEndpoint) == "" {
				fail("tracing.zipkin_endpoint", "is required for the zipkin exporter")
			}
		default:
			fail("tracing.exporter", "unknown exporter %q", t.Exporter)
		}
		if t.SampleRate <= 0 || t.SampleRate > 1 {
			fail("tracing.sample_rate", "must be in (0, 1]")
		}
	}
	return report
}
