package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/model"
	"github.com/hupe1980/gaiakit/tool"
	"github.com/hupe1980/gaiakit/toolstore"
	"github.com/hupe1980/gaiakit/transform"
)

// fakeEmbedder returns fixed vectors per text so retrieval ranking is
// deterministic without an embedding service.
type fakeEmbedder struct {
	vectors map[string][]float32
	failOn  map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failOn[text] {
		return nil, errors.New("embedding service unavailable")
	}

	if v, ok := f.vectors[text]; ok {
		return v, nil
	}

	return []float32{0.1, 0.1, 0.1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func namedTool(name, description string) tool.Tool {
	return tool.NewFunctionTool(name, description, map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return "ok", nil
	})
}

func boundNames(defs []model.ToolDefinition) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Function.Name)
	}

	return names
}

func newProviderRegistry(t *testing.T) *tool.Registry {
	t.Helper()

	registry := tool.NewRegistry()

	require.NoError(t, registry.Register("utility", []tool.Tool{
		namedTool("web_search", "Search the web"),
	}))
	require.NoError(t, registry.Register("gmail", []tool.Tool{
		namedTool("gmail_archive", "Archive Gmail threads matching a query"),
	}, func(o *tool.CategoryOptions) {
		o.Delegated = true
		o.Space = "gmail"
	}))
	require.NoError(t, registry.Register("handoff", []tool.Tool{
		tool.NewHandoffTool("gmail"),
	}, func(o *tool.CategoryOptions) {
		o.Core = true
	}))

	return registry
}

func TestNewDefaults(t *testing.T) {
	m := model.NewScriptedModel()
	a := New("assistant", m)

	assert.Equal(t, "assistant", a.Name())
	assert.True(t, a.Scope().Matches(core.MainScope()))
	assert.Equal(t, ReturnFinalOnly, a.ReturnMode())
	assert.NotNil(t, a.Registry())
	assert.Same(t, m, a.Model().(*model.ScriptedModel))

	instructions, err := a.Instructions(core.NewState())
	require.NoError(t, err)
	assert.Equal(t, "You are assistant, a helpful AI assistant.", instructions)
}

func TestMainAgentNeverBindsDelegatedTools(t *testing.T) {
	a := New("assistant", model.NewScriptedModel(), func(o *Options) {
		o.Registry = newProviderRegistry(t)
	})

	defs, bound := a.BindTools(context.Background(), core.NewState())

	assert.ElementsMatch(t, []string{"web_search", "call_gmail_agent"}, boundNames(defs))
	assert.Contains(t, bound, "web_search")
	assert.Contains(t, bound, "call_gmail_agent")
	assert.NotContains(t, bound, "gmail_archive")
}

func TestSubAgentBindsItsDelegatedView(t *testing.T) {
	registry := newProviderRegistry(t)

	sub, err := NewSubAgent("gmail", model.NewScriptedModel(), registry)
	require.NoError(t, err)

	assert.Equal(t, "gmail_agent", sub.Name())
	assert.Equal(t, core.ScopeSub, sub.Scope().Kind)
	assert.Equal(t, "gmail_agent", sub.Scope().Agent)

	defs, bound := sub.BindTools(context.Background(), core.NewState())

	assert.ElementsMatch(t, []string{"gmail_archive"}, boundNames(defs))
	assert.NotContains(t, bound, "web_search")
	assert.NotContains(t, bound, "call_gmail_agent")
}

func TestSubAgentViewIncludesMemoryTools(t *testing.T) {
	registry := newProviderRegistry(t)
	require.NoError(t, registry.Register(tool.MemoryCategory, []tool.Tool{
		namedTool("remember_fact", "Persist a durable fact about the user"),
	}))

	sub, err := NewSubAgent("gmail", model.NewScriptedModel(), registry)
	require.NoError(t, err)

	defs, _ := sub.BindTools(context.Background(), core.NewState())
	assert.ElementsMatch(t, []string{"gmail_archive", "remember_fact"}, boundNames(defs))
}

func TestNewSubAgentUnknownProvider(t *testing.T) {
	registry := newProviderRegistry(t)

	_, err := NewSubAgent("notion", model.NewScriptedModel(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion_agent")
}

func TestBindToolsRetrievesBySimilarity(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register("clock", []tool.Tool{
		namedTool("get_time", "Current date and time"),
	}, func(o *tool.CategoryOptions) {
		o.Core = true
	}))
	require.NoError(t, registry.Register("mail", []tool.Tool{
		namedTool("archive_mail", "Archive mail threads matching a query"),
	}))
	require.NoError(t, registry.Register("calendar", []tool.Tool{
		namedTool("create_event", "Create a calendar event"),
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Archive mail threads matching a query": {1, 0, 0},
		"Create a calendar event":               {0, 1, 0},
		"archive my newsletters":                {0.9, 0.1, 0},
	}}

	store := toolstore.New(emb)
	ctx := context.Background()
	require.NoError(t, store.Index(ctx, tool.DefaultSpace, "archive_mail", "Archive mail threads matching a query"))
	require.NoError(t, store.Index(ctx, tool.DefaultSpace, "create_event", "Create a calendar event"))

	a := New("assistant", model.NewScriptedModel(), func(o *Options) {
		o.Registry = registry
		o.Store = store
		o.RetrievalLimit = 1
	})

	defs, _ := a.BindTools(ctx, core.NewState(core.NewHumanMessage("archive my newsletters")))

	// Core tools always bind; only the top retrieval hit joins them.
	assert.ElementsMatch(t, []string{"get_time", "archive_mail"}, boundNames(defs))
}

func TestBindToolsRetrievalFailureFallsBackToCore(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register("clock", []tool.Tool{
		namedTool("get_time", "Current date and time"),
	}, func(o *tool.CategoryOptions) {
		o.Core = true
	}))
	require.NoError(t, registry.Register("mail", []tool.Tool{
		namedTool("archive_mail", "Archive mail threads matching a query"),
	}))

	emb := &fakeEmbedder{failOn: map[string]bool{"archive my newsletters": true}}

	store := toolstore.New(emb)
	require.NoError(t, store.Index(context.Background(), tool.DefaultSpace, "archive_mail", "Archive mail threads matching a query"))

	a := New("assistant", model.NewScriptedModel(), func(o *Options) {
		o.Registry = registry
		o.Store = store
	})

	defs, _ := a.BindTools(context.Background(), core.NewState(core.NewHumanMessage("archive my newsletters")))
	assert.ElementsMatch(t, []string{"get_time"}, boundNames(defs))
}

func TestBindToolsSelectedToolOverride(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register("clock", []tool.Tool{
		namedTool("get_time", "Current date and time"),
	}, func(o *tool.CategoryOptions) {
		o.Core = true
	}))
	require.NoError(t, registry.Register("calendar", []tool.Tool{
		namedTool("create_event", "Create a calendar event"),
	}))

	store := toolstore.New(&fakeEmbedder{})

	a := New("assistant", model.NewScriptedModel(), func(o *Options) {
		o.Registry = registry
		o.Store = store
	})

	state := core.NewState(core.NewHumanMessage("block tomorrow morning"))
	state.SelectedTool = "create_event"

	defs, _ := a.BindTools(context.Background(), state)
	assert.Contains(t, boundNames(defs), "create_event")

	// Unregistered overrides are ignored rather than failing the turn.
	state.SelectedTool = "ghost_tool"
	defs, _ = a.BindTools(context.Background(), state)
	assert.NotContains(t, boundNames(defs), "ghost_tool")
}

func TestSelectedToolNeverBindsDelegated(t *testing.T) {
	a := New("assistant", model.NewScriptedModel(), func(o *Options) {
		o.Registry = newProviderRegistry(t)
	})

	state := core.NewState(core.NewHumanMessage("archive my mail"))
	state.SelectedTool = "gmail_archive"

	_, bound := a.BindTools(context.Background(), state)
	assert.NotContains(t, bound, "gmail_archive")
}

func TestMainPipelineRefreshesSessionContext(t *testing.T) {
	a := New("assistant", model.NewScriptedModel())

	state := core.NewState(
		core.NewSystemMessage(transform.ContextPrefix+"Current datetime: stale"),
		core.NewHumanMessage("hi"),
	)
	state.UserName = "Ada"

	out, err := a.Pipeline().Apply(context.Background(), state)
	require.NoError(t, err)

	var contextBlocks []string
	for _, m := range out.Messages {
		if m.Role == core.RoleSystem && strings.HasPrefix(m.Content, transform.ContextPrefix) {
			contextBlocks = append(contextBlocks, m.Content)
		}
	}

	require.Len(t, contextBlocks, 1, "stale context must be replaced, not stacked")
	assert.Contains(t, contextBlocks[0], "User: Ada")
	assert.NotContains(t, contextBlocks[0], "stale")

	assert.Equal(t, core.RoleSystem, out.Messages[0].Role)

	last := out.Messages[len(out.Messages)-1]
	assert.Equal(t, core.RoleHuman, last.Role)
	assert.Equal(t, "hi", last.Content)
}

func TestSubAgentPipelineShowsOnlyItsConversation(t *testing.T) {
	registry := newProviderRegistry(t)

	sub, err := NewSubAgent("gmail", model.NewScriptedModel(), registry)
	require.NoError(t, err)

	subScope := core.SubScope("gmail_agent")
	state := core.NewState(
		core.NewHumanMessage("please archive my newsletters"),
		core.NewAssistantMessage("on it").WithScope(core.MainScope()),
		core.NewSystemMessage("You are the gmail specialist agent.").WithScope(subScope),
		core.NewHumanMessage("archive the newsletters").WithScope(subScope),
		core.NewAssistantMessage("notion note").WithScope(core.SubScope("notion_agent")),
	)

	out, err := sub.Pipeline().Apply(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, core.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, "archive the newsletters", out.Messages[1].Content)
}

func TestSubAgentCanOptIntoUnattributedHistory(t *testing.T) {
	registry := newProviderRegistry(t)

	sub, err := NewSubAgent("gmail", model.NewScriptedModel(), registry, func(o *SubAgentOptions) {
		o.AllowUnattributed = true
	})
	require.NoError(t, err)

	state := core.NewState(
		core.NewHumanMessage("please archive my newsletters"),
		core.NewHumanMessage("archive the newsletters").WithScope(core.SubScope("gmail_agent")),
	)

	out, err := sub.Pipeline().Apply(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, out.Messages, 2)
	assert.Equal(t, "please archive my newsletters", out.Messages[0].Content)
}
