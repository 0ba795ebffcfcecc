package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gaiakit/core"
)

func namedTool(name string) Tool {
	return NewFunctionTool(name, "Tool "+name, map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return name, nil
	})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	err := r.Register("web", []Tool{namedTool("web_search"), namedTool("open_url")})
	require.NoError(t, err)

	got, ok := r.Tool("web_search")
	assert.True(t, ok)
	assert.Equal(t, "web_search", got.Name())

	cat, ok := r.Category("web")
	require.True(t, ok)
	assert.Equal(t, DefaultSpace, cat.Space)
	assert.Len(t, cat.Tools(), 2)
}

func TestRegistry_NameCollisionFailsFast(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("web", []Tool{namedTool("search")}))

	err := r.Register("docs", []Tool{namedTool("docs_index"), namedTool("search")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")

	// The failed registration must not be partially applied.
	_, ok := r.Tool("docs_index")
	assert.False(t, ok)
	_, ok = r.Category("docs")
	assert.False(t, ok)
}

func TestRegistry_CategoryAttributes(t *testing.T) {
	r := NewRegistry()

	err := r.Register("gmail", []Tool{NewHandoffTool("gmail")}, func(o *CategoryOptions) {
		o.Space = "productivity"
		o.RequireIntegration = true
		o.IntegrationName = "google"
		o.Delegated = true
	})
	require.NoError(t, err)

	cat, ok := r.Category("gmail")
	require.True(t, ok)
	assert.Equal(t, "productivity", cat.Space)
	assert.True(t, cat.RequireIntegration)
	assert.Equal(t, "google", cat.IntegrationName)
	assert.True(t, cat.Delegated)
}

func TestRegistry_AllToolsExcludesDelegated(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("web", []Tool{namedTool("web_search")}))
	require.NoError(t, r.Register("gmail", []Tool{namedTool("send_email")}, func(o *CategoryOptions) {
		o.Delegated = true
	}))

	names := func(tools []Tool) []string {
		out := make([]string, 0, len(tools))
		for _, tl := range tools {
			out = append(out, tl.Name())
		}
		return out
	}

	assert.ElementsMatch(t, []string{"web_search"}, names(r.AllTools(false)))
	assert.ElementsMatch(t, []string{"web_search", "send_email"}, names(r.AllTools(true)))
}

func TestRegistry_CoreTools(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("memory", []Tool{namedTool("search_memory"), namedTool("save_memory")}, func(o *CategoryOptions) {
		o.Core = true
	}))
	require.NoError(t, r.Register("web", []Tool{namedTool("web_search")}))

	coreTools := r.CoreTools()
	require.Len(t, coreTools, 2)
	assert.Equal(t, "search_memory", coreTools[0].Name())
	assert.Equal(t, "save_memory", coreTools[1].Name())
}

func TestRegistry_CategoryOf(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("web", []Tool{namedTool("web_search")}))
	require.NoError(t, r.Register("gmail", []Tool{namedTool("send_email")}, func(o *CategoryOptions) {
		o.Delegated = true
	}))

	assert.Equal(t, "web", r.CategoryOf("web_search"))
	// Delegated tools are still indexed for lookups.
	assert.Equal(t, "gmail", r.CategoryOf("send_email"))
	assert.Equal(t, UnknownCategory, r.CategoryOf("no_such_tool"))
}

func TestRegistry_FrozenAfterCategoryOf(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("web", []Tool{namedTool("web_search")}))

	_ = r.CategoryOf("web_search")

	err := r.Register("late", []Tool{namedTool("late_tool")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frozen")
}

func TestRegistry_View(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("memory", []Tool{namedTool("search_memory")}, func(o *CategoryOptions) {
		o.Core = true
	}))
	require.NoError(t, r.Register("gmail", []Tool{namedTool("send_email"), NewHandoffTool("gmail")}, func(o *CategoryOptions) {
		o.Space = "productivity"
		o.Delegated = true
	}))
	require.NoError(t, r.Register("web", []Tool{namedTool("web_search")}))

	view, err := r.View("gmail", "memory")
	require.NoError(t, err)

	cat, ok := view.Category("gmail")
	require.True(t, ok)
	assert.Equal(t, "productivity", cat.Space)
	assert.True(t, cat.Delegated)

	_, ok = view.Category("web")
	assert.False(t, ok)

	// Core markings carry over into the view.
	coreTools := view.CoreTools()
	require.Len(t, coreTools, 1)
	assert.Equal(t, "search_memory", coreTools[0].Name())

	_, err = r.View("nope")
	assert.Error(t, err)
}

// -------------------- Memory Tool Tests --------------------

type fakeMemoryStore struct {
	stored   []string
	searches []string
}

func (f *fakeMemoryStore) Search(_ context.Context, _ string, query string, limit int) ([]core.SearchResult, error) {
	f.searches = append(f.searches, query)
	results := []core.SearchResult{
		{ID: "m1", Content: "user prefers dark mode", Score: 0.92},
		{ID: "m2", Content: "user is in Berlin", Score: 0.81},
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeMemoryStore) Store(_ context.Context, _ string, content string, _ map[string]any) error {
	f.stored = append(f.stored, content)
	return nil
}

func (f *fakeMemoryStore) Delete(_ context.Context, _ string, _ string) error {
	return nil
}

func TestMemoryTools(t *testing.T) {
	store := &fakeMemoryStore{}
	tools := NewMemoryTools(store)
	require.Len(t, tools, 2)

	search := tools[0]
	assert.Equal(t, "search_memory", search.Name())

	result, err := search.Call(testToolContext("fc10"), map[string]any{"query": "preferences", "limit": 1.0})
	require.NoError(t, err)

	payload := result.(map[string]any)
	memories := payload["memories"].([]map[string]any)
	require.Len(t, memories, 1)
	assert.Equal(t, "user prefers dark mode", memories[0]["content"])
	assert.Equal(t, []string{"preferences"}, store.searches)

	save := tools[1]
	assert.Equal(t, "save_memory", save.Name())

	result, err = save.Call(testToolContext("fc11"), map[string]any{"content": "user likes tea"})
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]any)["saved"])
	assert.Equal(t, []string{"user likes tea"}, store.stored)
}
