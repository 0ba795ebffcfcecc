package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/logging"
	"github.com/hupe1980/gaiakit/model"
	"github.com/hupe1980/gaiakit/tool"
	"github.com/hupe1980/gaiakit/toolstore"
	"github.com/hupe1980/gaiakit/transform"
)

// boolPtr creates a pointer to a boolean value.
// This is useful for optional fields in structs where nil indicates "not set".
func boolPtr(b bool) *bool {
	return &b
}

// ReturnMode controls what a finished sub-agent run merges back into the
// parent conversation.
type ReturnMode int

const (
	// ReturnFinalOnly merges only the sub-agent's final assistant message,
	// keeping the parent context free of the specialist's internal tool-call
	// chatter.
	ReturnFinalOnly ReturnMode = iota
	// ReturnFullHistory merges the sub-agent's entire internal transcript.
	ReturnFullHistory
)

// Options configure an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// Instruction is the agent's system prompt. Static text is rendered as a
	// template against the turn state.
	Instruction Instruction
	// Scope attributes the agent's messages and selects its message view.
	// Main scope by default.
	Scope core.AgentScope
	// Registry is the agent's tool catalog. Sub-agents receive a restricted
	// view of the parent registry.
	Registry *tool.Registry
	// Store enables semantic tool retrieval over the agent's space. When nil
	// the agent binds its registry's whole bindable tool set every round trip.
	Store *toolstore.Store
	// Space is the retrieval namespace queried for candidate tools.
	Space string
	// RetrievalLimit caps how many tools one retrieval round binds.
	RetrievalLimit int
	// BindDelegated admits delegated-category tools into the binding. Always
	// off for the main agent; sub-agents bind their own provider category
	// this way.
	BindDelegated bool
	// ReturnMode selects the sub-agent merge shape.
	ReturnMode ReturnMode
	// AllowUnattributed admits unattributed messages into the agent's view.
	// Defaults to true for the main agent and false for sub-agents. The main
	// agent applies no sender filter (it sees the whole conversation,
	// including merged sub-agent results), so the flag only narrows
	// sub-scoped views.
	AllowUnattributed *bool
	// Recaller contributes memory context to the injected session context.
	// Main agent only.
	Recaller core.Recaller
	// ContextTemplate overrides the injected session-context template.
	ContextTemplate string
	// StripPrefixes are additional canonical prompt signatures tagged for
	// removal from incoming history.
	StripPrefixes []string
	// TokenBudget bounds the history submitted to the model. Zero disables
	// trimming.
	TokenBudget int
	// Counter supplies model-specific token counting for trimming.
	Counter transform.TokenCounter
	// Clock supplies the session-context timestamp. Defaults to time.Now.
	Clock func() time.Time

	Logger logging.Logger
}

// Agent is one named model-backed node: the main conversational agent or a
// provider specialist reached through handoff. It owns its instruction, its
// registry view, its message-view pipeline and its per-round-trip tool
// binding; the engine drives it through the turn state machine.
type Agent struct {
	name           string
	model          model.Model
	scope          core.AgentScope
	instruction    Instruction
	registry       *tool.Registry
	store          *toolstore.Store
	space          string
	retrievalLimit int
	bindDelegated  bool
	returnMode     ReturnMode
	pipeline       *transform.Chain
	logger         logging.Logger
}

// New creates an agent with sensible defaults: main scope, the default
// retrieval space, and a generic assistant instruction.
func New(name string, m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:     NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		Scope:           core.MainScope(),
		Space:           tool.DefaultSpace,
		RetrievalLimit:  5,
		ContextTemplate: transform.DefaultContextTemplate,
		Clock:           time.Now,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry()
	}
	if opts.Space == "" {
		opts.Space = tool.DefaultSpace
	}

	allowUnattributed := opts.Scope.Kind != core.ScopeSub
	if opts.AllowUnattributed != nil {
		allowUnattributed = *opts.AllowUnattributed
	}

	return &Agent{
		name:           name,
		model:          m,
		scope:          opts.Scope,
		instruction:    opts.Instruction,
		registry:       opts.Registry,
		store:          opts.Store,
		space:          opts.Space,
		retrievalLimit: opts.RetrievalLimit,
		bindDelegated:  opts.BindDelegated,
		returnMode:     opts.ReturnMode,
		pipeline:       buildPipeline(opts.Scope, allowUnattributed, opts),
		logger:         opts.Logger,
	}
}

// buildPipeline compiles the agent's message-view pipeline. Sub-agents see
// only their own delegated sub-conversation (sender filter); the main agent
// strips stale injected prompts and injects the fresh session context. Both
// end with trimming and tombstone compaction.
func buildPipeline(scope core.AgentScope, allowUnattributed bool, opts Options) *transform.Chain {
	var ts []transform.Transform

	if scope.Kind == core.ScopeSub {
		ts = append(ts, transform.NewSenderFilter(scope, func(o *transform.SenderFilterOptions) {
			o.AllowUnattributed = allowUnattributed
		}))
	} else {
		ts = append(ts, transform.NewSystemStrip(func(o *transform.SystemStripOptions) {
			o.Prefixes = append(o.Prefixes, opts.StripPrefixes...)
		}))
		ts = append(ts, transform.NewSystemInject(func(o *transform.SystemInjectOptions) {
			o.Template = opts.ContextTemplate
			o.Recaller = opts.Recaller
			o.Clock = opts.Clock
			o.Logger = opts.Logger
		}))
	}

	if opts.Counter != nil && opts.TokenBudget > 0 {
		ts = append(ts, transform.NewTokenTrim(opts.Counter, opts.TokenBudget, func(o *transform.TokenTrimOptions) {
			o.Logger = opts.Logger
		}))
	}

	ts = append(ts, transform.NewCompact())

	return transform.NewChain(ts, func(o *transform.ChainOptions) {
		o.Logger = opts.Logger
	})
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Scope returns the attribution scope of messages this agent authors.
func (a *Agent) Scope() core.AgentScope { return a.scope }

// ReturnMode returns the sub-agent merge shape.
func (a *Agent) ReturnMode() ReturnMode { return a.returnMode }

// Model returns the language model driving this agent.
func (a *Agent) Model() model.Model { return a.model }

// Registry returns the agent's tool catalog.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// Pipeline returns the agent's message-view pipeline, applied once per
// invocation before the model loop starts.
func (a *Agent) Pipeline() *transform.Chain { return a.pipeline }

// Instructions resolves the agent's system prompt against the turn state.
func (a *Agent) Instructions(state *core.State) (string, error) {
	return a.instruction.Resolve(state)
}

// BindTools resolves the tool set for one model round trip: core tools, plus
// semantically retrieved tools for the latest human message, plus the
// selected-tool override when the state carries one. Delegated tools never
// bind unless the agent owns them. Retrieval failure degrades to core tools
// with a warning; it never fails the turn.
func (a *Agent) BindTools(ctx context.Context, state *core.State) ([]model.ToolDefinition, map[string]tool.Tool) {
	bound := make(map[string]tool.Tool)
	var order []string

	add := func(t tool.Tool) {
		if t == nil {
			return
		}
		name := t.Name()
		if _, ok := bound[name]; ok {
			return
		}
		if !a.bindDelegated && a.isDelegated(name) {
			return
		}
		bound[name] = t
		order = append(order, name)
	}

	if a.store == nil {
		for _, t := range a.registry.AllTools(a.bindDelegated) {
			add(t)
		}
	} else {
		for _, t := range a.registry.CoreTools() {
			add(t)
		}
		for _, name := range a.retrieve(ctx, state) {
			if t, ok := a.registry.Tool(name); ok {
				add(t)
			}
		}
	}

	if state != nil && state.SelectedTool != "" {
		if t, ok := a.registry.Tool(state.SelectedTool); ok {
			add(t)
		} else {
			a.logger.Warn("selected tool not registered", "agent", a.name, "tool", state.SelectedTool)
		}
	}

	defs := make([]model.ToolDefinition, 0, len(order))
	for _, name := range order {
		t := bound[name]
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}

	return defs, bound
}

func (a *Agent) isDelegated(toolName string) bool {
	cat, ok := a.registry.Category(a.registry.CategoryOf(toolName))
	return ok && cat.Delegated
}

// retrieve queries the store for tools matching the latest human message.
func (a *Agent) retrieve(ctx context.Context, state *core.State) []string {
	if state == nil {
		return nil
	}

	last, ok := state.LastHumanMessage()
	if !ok || last.Content == "" {
		return nil
	}

	results, err := a.store.Retrieve(ctx, last.Content, a.space, a.retrievalLimit)
	if err != nil {
		a.logger.Warn("tool retrieval failed, continuing with core tools only",
			"agent", a.name, "space", a.space, "error", err)
		return nil
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}

	return names
}

// SubAgentOptions configure a provider sub-agent built with NewSubAgent.
type SubAgentOptions struct {
	// Instruction overrides the default specialist prompt.
	Instruction Instruction
	// Categories are additional registry categories exposed to the
	// sub-agent beyond the provider's own category and the memory tools.
	Categories []string
	// ReturnMode selects what the sub-agent merges back. Final message only
	// by default.
	ReturnMode ReturnMode
	// AllowUnattributed admits unattributed messages into the sub-agent's
	// view. Off by default: a specialist sees only its own delegated
	// sub-conversation.
	AllowUnattributed bool
	// TokenBudget bounds the sub-agent's history. Zero disables trimming.
	TokenBudget int
	// Counter supplies token counting for trimming.
	Counter transform.TokenCounter

	Logger logging.Logger
}

// NewSubAgent builds the specialist agent for one provider: named
// "<provider>_agent", scoped to its own delegated sub-conversation, and bound
// to a registry view containing the provider's category plus the memory tools
// when the parent registry carries them.
func NewSubAgent(provider string, m model.Model, registry *tool.Registry, optFns ...func(o *SubAgentOptions)) (*Agent, error) {
	name := fmt.Sprintf("%s_agent", provider)

	opts := SubAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf(
			"You are the %s specialist agent. Complete the delegated task using your %s tools, then reply with one consolidated result.",
			provider, provider,
		)),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	categories := []string{provider}
	if _, ok := registry.Category(tool.MemoryCategory); ok {
		categories = append(categories, tool.MemoryCategory)
	}
	categories = append(categories, opts.Categories...)

	view, err := registry.View(categories...)
	if err != nil {
		return nil, fmt.Errorf("sub-agent %s: %w", name, err)
	}

	return New(name, m, func(o *Options) {
		o.Instruction = opts.Instruction
		o.Scope = core.SubScope(name)
		o.Registry = view
		o.BindDelegated = true
		o.ReturnMode = opts.ReturnMode
		o.AllowUnattributed = boolPtr(opts.AllowUnattributed)
		o.TokenBudget = opts.TokenBudget
		o.Counter = opts.Counter
		o.Logger = opts.Logger
	}), nil
}
