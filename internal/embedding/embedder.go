// Package embedding provides text embedding providers and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations are safe for
// concurrent use and bound to a fixed dimension for their lifetime.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
