package tool

import (
	"fmt"

	"github.com/hupe1980/gaiakit/core"
)

// MemoryCategory is the category name under which the memory tools register.
// Every sub-agent registry view includes it so specialists can recall and
// record user facts regardless of provider.
const MemoryCategory = "memory"

// NewMemoryTools returns the search and save memory tools bound to the given
// store.
func NewMemoryTools(store core.MemoryStore) []Tool {
	return []Tool{NewSearchMemoryTool(store), NewSaveMemoryTool(store)}
}

// NewSearchMemoryTool returns a tool that retrieves stored user memories
// relevant to a free-text query.
func NewSearchMemoryTool(store core.MemoryStore) Tool {
	return NewFunctionTool(
		"search_memory",
		"Search the user's long-term memory for facts and preferences relevant to a query.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Free-text description of what to recall"},
				"limit": map[string]any{"type": "integer", "description": "Maximum number of memories to return (default 5)"},
			},
			"required": []string{"query"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			limit := 5
			if raw, ok := args["limit"].(float64); ok && raw > 0 {
				limit = int(raw)
			}

			results, err := store.Search(tc.Context(), tc.UserID(), query, limit)
			if err != nil {
				return nil, fmt.Errorf("memory search: %w", err)
			}

			out := make([]map[string]any, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]any{"content": r.Content, "score": r.Score})
			}

			return map[string]any{"memories": out}, nil
		},
	)
}

// NewSaveMemoryTool returns a tool that records a durable fact about the user.
func NewSaveMemoryTool(store core.MemoryStore) Tool {
	return NewFunctionTool(
		"save_memory",
		"Save a durable fact or preference about the user to long-term memory.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{"type": "string", "description": "The fact to remember, phrased as a standalone statement"},
			},
			"required": []string{"content"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			content, _ := args["content"].(string)

			if err := store.Store(tc.Context(), tc.UserID(), content, nil); err != nil {
				return nil, fmt.Errorf("memory store: %w", err)
			}

			return map[string]any{"saved": true}, nil
		},
	)
}
