package transform

import (
	"context"

	"github.com/hupe1980/gaiakit/core"
)

// SenderFilterOptions configure SenderFilter.
type SenderFilterOptions struct {
	// AllowUnattributed retains messages carrying no scope. Main agents
	// usually enable this (shared history is unattributed); sub-agents keep
	// it off so they see only their own delegated sub-conversation.
	AllowUnattributed bool
}

// SenderFilter scopes the shared state down to one agent's private view.
// A message survives when its scope is visible to the target agent, or when
// it is a tool result answering a call emitted by an assistant message that
// itself survived. Tool-call ids are collected in a working set local to one
// Apply call, so repeated application is idempotent and nothing leaks across
// turns. Tool results whose call id never qualified (orphans) are dropped.
type SenderFilter struct {
	target            core.AgentScope
	allowUnattributed bool
}

// NewSenderFilter constructs a filter scoped to the target agent.
func NewSenderFilter(target core.AgentScope, optFns ...func(o *SenderFilterOptions)) *SenderFilter {
	opts := SenderFilterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SenderFilter{target: target, allowUnattributed: opts.AllowUnattributed}
}

// Name implements Transform.
func (t *SenderFilter) Name() string { return "sender_filter" }

// Apply implements Transform.
func (t *SenderFilter) Apply(_ context.Context, state *core.State) (*core.State, error) {
	next := state.Clone()

	// Working set of tool-call ids emitted by retained assistant messages,
	// scoped to this single pass.
	retainedCalls := make(map[string]struct{})

	kept := make([]core.Message, 0, len(next.Messages))

	for _, msg := range next.Messages {
		// Removal markers are bookkeeping for compaction, not content.
		if msg.IsRemoval() {
			kept = append(kept, msg)
			continue
		}

		if msg.Role == core.RoleTool {
			if _, ok := retainedCalls[msg.ToolCallID]; ok {
				kept = append(kept, msg)
			}

			continue
		}

		if !msg.Scope.VisibleTo(t.target, t.allowUnattributed) {
			continue
		}

		kept = append(kept, msg)

		for _, call := range msg.ToolCalls {
			if call.ID != "" {
				retainedCalls[call.ID] = struct{}{}
			}
		}
	}

	next.Messages = kept

	return next, nil
}
