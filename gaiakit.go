// Package gaiakit provides a high-level facade over the execution engine and
// its collaborators (tool registry, tool store, sub-agents, conversation
// store and logging) for building tool-routing conversational agents. Most
// applications interact with this package by:
//  1. Creating the main agent (and optionally provider sub-agents) from the
//     agent package
//  2. Creating a GaiaKit via New() (optionally overriding the in-memory
//     conversation store, follow-up generation and limits)
//  3. Driving turns via Stream (live SSE-style consumption), Run (silent
//     mode with progress persistence) or Ask (one-shot text in, text out)
//
// The facade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development and testing;
// production deployments typically supply a durable conversation store and a
// structured logger.
package gaiakit

import (
	"context"

	"github.com/hupe1980/gaiakit/agent"
	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/engine"
	"github.com/hupe1980/gaiakit/followup"
	"github.com/hupe1980/gaiakit/logging"
	"github.com/hupe1980/gaiakit/session"
)

// Version is the current gaiakit release.
const Version = "0.1.0"

// Re-exported core types so simple applications only import this package.
type (
	// State is the conversation working set a turn executes against.
	State = core.State

	// Message is one conversation entry.
	Message = core.Message

	// Event is the closed set of stream events produced by a turn.
	Event = core.Event

	// Result is the outcome of a silent turn.
	Result = engine.Result
)

// NewState builds a State from seed messages. See core.NewState.
func NewState(messages ...core.Message) *core.State { return core.NewState(messages...) }

// NewHumanMessage builds an unattributed human message. See core.NewHumanMessage.
func NewHumanMessage(text string) core.Message { return core.NewHumanMessage(text) }

// Options configures the GaiaKit instance.
type Options struct {
	// SubAgents are the provider specialists reachable through handoff
	// tools registered in the main agent's registry.
	SubAgents []*agent.Agent

	// Store receives progress and final snapshots during silent turns.
	// Defaults to the in-memory session store.
	Store core.ConversationStore

	// Followup, when set, generates follow-up suggestions after each turn.
	Followup *followup.Generator

	// MaxCalls bounds model round trips per turn across the main agent and
	// every sub-agent it delegates to. Zero keeps the engine default.
	MaxCalls int

	// EventBuffer sets the streaming channel buffer. Zero keeps the engine
	// default.
	EventBuffer int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// GaiaKit is the high-level facade aggregating the engine and its services.
type GaiaKit struct {
	engine *engine.Engine
	store  core.ConversationStore
}

// New creates a GaiaKit around the main agent with optional overrides. An
// unset conversation store is initialized with the in-memory implementation.
func New(mainAgent *agent.Agent, optFns ...func(o *Options)) *GaiaKit {
	opts := Options{
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(mainAgent, func(o *engine.Options) {
		o.SubAgents = opts.SubAgents
		o.Store = opts.Store
		o.Followup = opts.Followup
		o.MaxCalls = opts.MaxCalls
		o.EventBuffer = opts.EventBuffer
		o.Logger = opts.Logger
	})

	return &GaiaKit{engine: eng, store: opts.Store}
}

// Engine exposes the underlying engine for advanced wiring.
func (g *GaiaKit) Engine() *engine.Engine { return g.engine }

// Store exposes the conversation store the engine persists snapshots to.
func (g *GaiaKit) Store() core.ConversationStore { return g.store }

// Stream executes one turn and delivers events as they happen. See
// engine.Engine.Stream for channel semantics.
func (g *GaiaKit) Stream(ctx context.Context, state *core.State) (<-chan core.Event, <-chan error, error) {
	return g.engine.Stream(ctx, state)
}

// Run executes one turn silently, persisting progress snapshots to the
// store, and returns the collected result.
func (g *GaiaKit) Run(ctx context.Context, state *core.State) (*engine.Result, error) {
	return g.engine.Run(ctx, state)
}

// Ask is a one-shot helper: it runs a single self-contained turn for the
// given user text and returns the final answer. Callers holding conversation
// history pass a full State to Run or Stream instead.
func (g *GaiaKit) Ask(ctx context.Context, text string) (string, error) {
	result, err := g.engine.Run(ctx, core.NewState(core.NewHumanMessage(text)))
	if err != nil {
		return "", err
	}

	return result.Message, nil
}
