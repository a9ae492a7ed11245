// Package generation provides text generation via an OpenAI-compatible chat API.
package generation

import "context"

// Options control a single generation call.
type Options struct {
	// MaxTokens bounds the output length; 0 uses the client default.
	MaxTokens int
	// Temperature of 0 means deterministic decoding (no sampling).
	Temperature float64
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Close() error
}
