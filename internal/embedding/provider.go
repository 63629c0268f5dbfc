// Package embedding provides the EmbeddingProvider abstraction consumed by
// the tiered context composer's semantic tier and by atom facet embeddings,
// and a graceful degradation path when no embedding backend is reachable:
// callers check Available() and skip the semantic tier rather than fail.
package embedding

import "context"

// Provider generates embeddings for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Available() bool
}
