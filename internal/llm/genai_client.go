package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	serrors "station/internal/errors"
	"station/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// GenAIClient calls the Gemini API with the key ring's current key.
type GenAIClient struct {
	model   string
	keys    *KeyRing
	baseURL string
	logger  logging.Logger
}

// GenAIOption customises a GenAIClient.
type GenAIOption func(*GenAIClient)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) GenAIOption {
	return func(c *GenAIClient) { c.baseURL = url }
}

func NewGenAIClient(model string, keys *KeyRing, logger logging.Logger, opts ...GenAIOption) *GenAIClient {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	c := &GenAIClient{model: model, keys: keys, logger: logging.Component(logger, "genai")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GenAIClient) Model() string {
	return c.model
}

// Complete sends prompt as a single user turn. A new client is built per
// request because the active key can change between requests.
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	key, err := c.keys.Current()
	if err != nil {
		return "", err
	}
	cfg := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", serrors.NewPermanentError(err, fmt.Sprintf("create model client: %v", err))
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", c.handleError(key, err)
	}
	text := resp.Text()
	if text == "" {
		return "", serrors.NewTransientError(errors.New("empty model response"), "the model returned an empty response")
	}
	return text, nil
}

// handleError classifies err and updates the key ring where the error names
// the key as the culprit.
func (c *GenAIClient) handleError(key string, err error) error {
	classified := ClassifyError(err)
	switch {
	case isInvalidKey(err):
		if dropErr := c.keys.Drop(key); dropErr != nil {
			c.logger.Error("failed to remove invalid key: %v", dropErr)
		}
	case isQuotaExceeded(err):
		if _, rotateErr := c.keys.Rotate(); rotateErr != nil {
			c.logger.Error("failed to rotate key: %v", rotateErr)
		}
	}
	return classified
}

// ClassifyError maps a model API error onto the station's error taxonomy.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var transient *serrors.TransientError
	var permanent *serrors.PermanentError
	if errors.As(err, &transient) || errors.As(err, &permanent) {
		return err
	}
	msg := err.Error()
	var apiErr genai.APIError
	code := 0
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}

	switch {
	case strings.Contains(msg, "User location is not supported"):
		return serrors.NewFatalError(err, "the model API does not support the location of this IP address")
	case strings.Contains(msg, "PROHIBITED_CONTENT"):
		return serrors.NewFatalError(err, "the request was blocked for violating the acceptable use policy (PROHIBITED_CONTENT)")
	case isInvalidKey(err):
		return &serrors.TransientError{Err: err, StatusCode: code, Message: "the API key is not valid and was removed"}
	case isQuotaExceeded(err):
		return &serrors.TransientError{Err: err, StatusCode: code, Message: "the request quota of the API key is exhausted, switching keys"}
	case code == 429 || code >= 500:
		return &serrors.TransientError{Err: err, StatusCode: code, Message: fmt.Sprintf("model API error %d: %s", code, apiErr.Message)}
	case code >= 400:
		return &serrors.PermanentError{Err: err, StatusCode: code, Message: fmt.Sprintf("model API error %d: %s", code, apiErr.Message)}
	case serrors.IsTransient(err):
		return serrors.NewTransientError(err, serrors.FormatMessage(err))
	default:
		return err
	}
}

func isInvalidKey(err error) bool {
	return strings.Contains(err.Error(), "API key not valid")
}

func isQuotaExceeded(err error) bool {
	return strings.Contains(err.Error(), "You exceeded your current quota")
}
