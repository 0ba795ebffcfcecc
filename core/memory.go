package core

import "context"

// SearchResult represents a retrieved memory item with a relevance score and
// arbitrary metadata.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// MemoryStore defines persistence + retrieval (search) for per-user memory
// snippets. Implementations can back search with embeddings, keywords or any
// heuristic.
type MemoryStore interface {
	Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error)
	Store(ctx context.Context, userID, content string, metadata map[string]any) error
	Delete(ctx context.Context, userID, memoryID string) error
}

// Recaller produces a compact memory-context block for a query, or an empty
// string when nothing relevant is stored. Used by the system-injection stage
// to prepend memory context to a turn.
type Recaller interface {
	Recall(ctx context.Context, userID, query string) (string, error)
}
