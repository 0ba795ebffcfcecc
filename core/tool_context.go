package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/gaiakit/logging"
)

// ToolContext provides a constrained, auditable surface for tool
// implementations invoked by an agent. It carries the invocation context, the
// originating call ID and a read-only view of the turn state, and accumulates
// orchestration signals (handoff requests, custom stream payloads) without
// directly mutating the state.
type ToolContext struct {
	ctx     context.Context
	callID  string
	state   *State
	scope   AgentScope
	emit    func(Event) error
	handoff *HandoffTask
	logger  logging.Logger
}

// NewToolContext constructs a tool context bound to one tool call. The emit
// callback is supplied by the engine and decides, per execution mode, whether
// custom payloads are streamed or accumulated. A nil logger is replaced with
// a NoOpLogger so tools can log unconditionally.
func NewToolContext(ctx context.Context, callID string, state *State, scope AgentScope, emit func(Event) error, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:    ctx,
		callID: callID,
		state:  state,
		scope:  scope,
		emit:   emit,
		logger: logger,
	}
}

// Context returns the invocation's context, falling back to Background.
func (tc *ToolContext) Context() context.Context {
	if tc.ctx == nil {
		return context.Background()
	}
	return tc.ctx
}

// CallID returns the tool-call ID this invocation answers.
func (tc *ToolContext) CallID() string { return tc.callID }

// Scope returns the scope of the agent executing the tool.
func (tc *ToolContext) Scope() AgentScope { return tc.scope }

// ConversationID returns the conversation the turn belongs to.
func (tc *ToolContext) ConversationID() string {
	if tc.state == nil {
		return ""
	}
	return tc.state.ConversationID
}

// UserID returns the user the turn belongs to.
func (tc *ToolContext) UserID() string {
	if tc.state == nil {
		return ""
	}
	return tc.state.UserID
}

// State returns the turn state visible to the tool. Tools must treat it as
// read-only; results flow back through return values and custom events.
func (tc *ToolContext) State() *State { return tc.state }

// Logger returns the logger tools should write through.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// EmitCustom forwards an arbitrary structured payload to the turn's event
// stream (streaming mode) or result accumulator (silent mode).
func (tc *ToolContext) EmitCustom(payload map[string]any) error {
	if tc.emit == nil {
		return fmt.Errorf("event emission not configured")
	}

	select {
	case <-tc.Context().Done():
		return tc.Context().Err()
	default:
	}

	return tc.emit(CustomEvent{Payload: payload})
}

// Handoff requests that control be routed to the named sub-agent with the
// given task description once this tool call returns.
func (tc *ToolContext) Handoff(agent, task string) {
	tc.handoff = &HandoffTask{Agent: agent, Task: task, CallID: tc.callID}
	tc.logger.Info("tool.handoff.request", "to_agent", agent, "call_id", tc.callID)
}

// PendingHandoff returns the handoff requested during this invocation, or nil.
// Consumed by the engine's dispatcher after the tool call returns.
func (tc *ToolContext) PendingHandoff() *HandoffTask { return tc.handoff }
