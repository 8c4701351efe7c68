// Package provider defines the upstream model collaborators: an embedder
// that turns text into a vector and a generator that produces the emoji
// answer. Both are black boxes that can fail or stall.
package provider

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when an upstream call fails or times out.
// The core never retries; retry policy belongs to the transport boundary.
var ErrUnavailable = errors.New("upstream unavailable")

// Embedder produces a fixed-length embedding for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a short answer for text.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}
