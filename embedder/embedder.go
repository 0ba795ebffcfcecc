// Package embedder provides text embedding providers used by the tool store
// for semantic retrieval. Implementations normalize provider APIs behind a
// minimal context-aware interface.
package embedder

import "context"

// Embedder converts text into dense vectors. Implementations must be safe
// for concurrent use; callers batch and parallelize on top of them.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
