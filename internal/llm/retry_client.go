package llm

import (
	"context"
	"fmt"
	"time"

	serrors "station/internal/errors"
	"station/internal/logging"
)

// retryClient wraps a client with retry logic and a circuit breaker.
type retryClient struct {
	underlying     Client
	retryConfig    serrors.RetryConfig
	circuitBreaker *serrors.CircuitBreaker
	logger         logging.Logger
}

// NewRetryClient retries transient failures of client. Fatal and other
// permanent errors are returned at once.
func NewRetryClient(client Client, retryConfig serrors.RetryConfig, circuitBreaker *serrors.CircuitBreaker, logger logging.Logger) Client {
	return &retryClient{
		underlying:     client,
		retryConfig:    retryConfig,
		circuitBreaker: circuitBreaker,
		logger:         logging.Component(logger, "llm-retry"),
	}
}

// WrapWithRetry builds the circuit breaker from its configuration.
func WrapWithRetry(client Client, retryConfig serrors.RetryConfig, breakerConfig serrors.CircuitBreakerConfig, logger logging.Logger) Client {
	if breakerConfig.Logger == nil {
		breakerConfig.Logger = logger
	}
	breaker := serrors.NewCircuitBreaker("model-"+client.Model(), breakerConfig)
	return NewRetryClient(client, retryConfig, breaker, logger)
}

func (c *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := serrors.RetryWithResultAndLog(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
		if c.circuitBreaker == nil {
			return c.complete(ctx, prompt)
		}
		return serrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (string, error) {
			return c.complete(ctx, prompt)
		})
	}, c.logger)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("model request failed after %v: %v", duration.Round(time.Millisecond), err)
		if serrors.IsFatal(err) {
			return "", err
		}
		return "", fmt.Errorf("%w (gave up after %v)", err, duration.Round(time.Second))
	}
	if duration > 5*time.Second {
		c.logger.Debug("model request succeeded after %v", duration.Round(time.Millisecond))
	}
	return text, nil
}

func (c *retryClient) complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.underlying.Complete(ctx, prompt)
	if err != nil {
		return "", ClassifyError(err)
	}
	return text, nil
}

func (c *retryClient) Model() string {
	return c.underlying.Model()
}
