// Package llm talks to the language model that drives the station.
package llm

import "context"

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ClientFunc adapts a function to Client.
type ClientFunc struct {
	Name string
	Fn   func(ctx context.Context, prompt string) (string, error)
}

func (c ClientFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Fn(ctx, prompt)
}

func (c ClientFunc) Model() string {
	return c.Name
}
