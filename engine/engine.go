package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/gaiakit/agent"
	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/followup"
	"github.com/hupe1980/gaiakit/logging"
)

const (
	// DefaultMaxCalls bounds model round trips per turn, main agent and
	// sub-agents combined, so a pathological tool-calling loop terminates
	// with an error instead of running forever.
	DefaultMaxCalls = 25

	// DefaultEventBuffer sizes the event channel returned by Stream.
	DefaultEventBuffer = 64
)

// Options configure an Engine.
//
// All fields are optional; the zero configuration yields an engine that
// drives the main agent alone, without persistence or follow-up suggestions.
type Options struct {
	// SubAgents are the handoff targets, looked up by Agent.Name when the
	// main agent invokes a handoff tool. A handoff naming an agent outside
	// this set is answered with a tool error, never a turn failure.
	SubAgents []*agent.Agent

	// Store receives partial progress snapshots and the final snapshot
	// during silent runs so pollers can observe the turn without a live
	// stream. Without it Run still returns the Result; it just leaves no
	// snapshots behind.
	Store core.ConversationStore

	// Followup proposes follow-up actions once the answer completed.
	// Optional and best effort; turns finish without suggestions when the
	// generator is unset or fails.
	Followup *followup.Generator

	// MaxCalls caps model round trips per turn. Values <= 0 fall back to
	// DefaultMaxCalls.
	MaxCalls int

	// EventBuffer sizes the Stream event channel. Values <= 0 fall back to
	// DefaultEventBuffer.
	EventBuffer int

	Logger logging.Logger
}

// Engine drives conversational turns through the turn state machine: model
// round trips, sequential tool dispatch, sub-agent handoffs and the
// follow-up post-node. It owns no conversation history; callers build a
// fresh core.State per turn and receive the evolved state back.
//
// The main agent, sub-agents and collaborating stores are injected at
// construction and immutable afterwards, so one Engine instance may serve
// concurrent turns: each Stream or Run call works on its own state and its
// own limiter.
type Engine struct {
	main        *agent.Agent
	subAgents   map[string]*agent.Agent
	store       core.ConversationStore
	followup    *followup.Generator
	maxCalls    int
	eventBuffer int
	logger      logging.Logger
}

// New builds an engine around the main agent.
//
// Example:
//
//	eng := engine.New(mainAgent, func(o *engine.Options) {
//	    o.SubAgents = []*agent.Agent{gmailAgent, calendarAgent}
//	    o.Store = conversationStore
//	    o.Followup = followup.NewGenerator(m)
//	})
func New(main *agent.Agent, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxCalls:    DefaultMaxCalls,
		EventBuffer: DefaultEventBuffer,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxCalls <= 0 {
		opts.MaxCalls = DefaultMaxCalls
	}

	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	subAgents := make(map[string]*agent.Agent, len(opts.SubAgents))
	for _, sub := range opts.SubAgents {
		if sub == nil {
			continue
		}

		subAgents[sub.Name()] = sub
	}

	return &Engine{
		main:        main,
		subAgents:   subAgents,
		store:       opts.Store,
		followup:    opts.Followup,
		maxCalls:    opts.MaxCalls,
		eventBuffer: opts.EventBuffer,
		logger:      opts.Logger,
	}
}

// Result is the outcome of one silent turn.
type Result struct {
	// Message is the final answer text.
	Message string

	// ToolData merges every custom payload tools emitted during the turn.
	// Nil when no tool emitted one.
	ToolData map[string]any

	// Suggestions are the proposed follow-up actions, when a generator is
	// configured and produced any.
	Suggestions []string

	// State is the evolved turn state: the main agent's message view plus
	// every message the turn appended. The caller's input state is not
	// mutated.
	State *core.State
}

// Stream executes one turn and delivers events as they are produced.
//
// Event ordering within the turn: TextEvent deltas carry the top-level
// answer incrementally (sub-agent deltas are suppressed); each tool call is
// announced by a ProgressEvent strictly before it runs; CustomEvent payloads
// pass through verbatim as tools emit them; an optional SuggestionsEvent
// precedes the CompleteEvent, which arrives strictly after every other event
// and carries the fully accumulated answer for persistence; DoneEvent
// terminates the stream.
//
// Both channels close when the turn finishes. A terminal failure is
// delivered on the error channel; consumer cancellation through ctx stops
// the turn cooperatively and is logged, not reported as an error.
func (e *Engine) Stream(ctx context.Context, state *core.State) (<-chan core.Event, <-chan error, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("engine: state must not be nil")
	}

	eventsCh := make(chan core.Event, e.eventBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventsCh)
		defer close(errCh)

		snk := &streamSink{ctx: ctx, events: eventsCh}

		if _, err := e.execute(ctx, state, snk, true); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				e.logger.Info("turn cancelled by consumer", "conversation_id", state.ConversationID)
				return
			}

			errCh <- err
		}
	}()

	return eventsCh, errCh, nil
}

// Run executes one turn silently and returns the collected outcome.
//
// No text deltas are produced; instead the final text, merged tool data and
// follow-up suggestions are returned together. When a conversation store is
// configured, the partial snapshot is upserted as tools report progress and
// the final snapshot is saved once the answer completed, so a poller can
// observe the turn without a live stream.
func (e *Engine) Run(ctx context.Context, state *core.State) (*Result, error) {
	if state == nil {
		return nil, fmt.Errorf("engine: state must not be nil")
	}

	snk := &silentSink{
		ctx:            ctx,
		store:          e.store,
		conversationID: state.ConversationID,
		userID:         state.UserID,
		logger:         e.logger,
	}

	final, err := e.execute(ctx, state, snk, false)
	if err != nil {
		return nil, err
	}

	return &Result{
		Message:     snk.message,
		ToolData:    snk.toolData,
		Suggestions: snk.suggestions,
		State:       final,
	}, nil
}

// execute drives one complete turn: the main agent's loop, the follow-up
// post-node and the closing Complete/Done pair. It returns the evolved state.
func (e *Engine) execute(ctx context.Context, state *core.State, snk sink, stream bool) (*core.State, error) {
	turnID := uuid.NewString()
	start := time.Now()
	limiter := core.NewLimiter(e.maxCalls)

	e.logger.Info("turn started",
		"turn_id", turnID,
		"conversation_id", state.ConversationID,
		"agent", e.main.Name(),
		"streaming", stream,
	)

	run, err := e.runAgent(ctx, e.main, state, limiter, snk, stream)
	if err != nil {
		e.logger.Error("turn failed",
			"turn_id", turnID,
			"round_trips", limiter.Count(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)

		return nil, err
	}

	if e.followup != nil {
		if suggestions := e.followup.Generate(ctx, run.state); len(suggestions) > 0 {
			if err := snk.emit(core.SuggestionsEvent{Suggestions: suggestions}); err != nil {
				return nil, err
			}
		}
	}

	if err := snk.emit(core.CompleteEvent{Message: run.final.Content}); err != nil {
		return nil, err
	}

	if err := snk.emit(core.DoneEvent{}); err != nil {
		return nil, err
	}

	e.logger.Info("turn completed",
		"turn_id", turnID,
		"round_trips", limiter.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return run.state, nil
}
