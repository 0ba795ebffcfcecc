package memory

import (
	"context"
	"strings"

	"github.com/hupe1980/gaiakit/core"
)

// RecallerOptions configure a Recaller.
type RecallerOptions struct {
	// Limit caps how many memories are folded into one context block.
	Limit int
}

// Recaller turns the top stored memories for a query into a single
// memory-context block for system injection. An empty result means nothing
// relevant is stored.
type Recaller struct {
	store core.MemoryStore
	limit int
}

// NewRecaller wraps a memory store as a core.Recaller.
func NewRecaller(store core.MemoryStore, optFns ...func(o *RecallerOptions)) *Recaller {
	opts := RecallerOptions{
		Limit: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Recaller{store: store, limit: opts.Limit}
}

// Recall implements core.Recaller.
func (r *Recaller) Recall(ctx context.Context, userID, query string) (string, error) {
	results, err := r.store.Search(ctx, userID, query, r.limit)
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, "- "+res.Content)
	}

	return strings.Join(lines, "\n"), nil
}
