package core

import (
	"fmt"
	"time"
)

// State is the mutable unit threaded through graph execution for one
// conversational turn. It is created fresh per turn from persisted history,
// mutated by pipeline stages and the execution engine, and discarded after the
// turn completes. A State is never shared between concurrent turns.
type State struct {
	ConversationID   string    `json:"conversation_id,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	UserName         string    `json:"user_name,omitempty"`
	Preferences      string    `json:"preferences,omitempty"`
	Datetime         time.Time `json:"datetime,omitzero"`
	SelectedTool     string    `json:"selected_tool,omitempty"`
	SelectedWorkflow string    `json:"selected_workflow,omitempty"`
	TriggerContext   string    `json:"trigger_context,omitempty"`

	Messages []Message `json:"messages"`
}

// NewState constructs a State seeded with the given messages.
func NewState(msgs ...Message) *State {
	return &State{Messages: msgs}
}

// Clone returns a deep copy. Context fields copy by value; messages are
// cloned individually.
func (s *State) Clone() *State {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		cp.Messages[i] = m.Clone()
	}
	return &cp
}

// Append adds messages to the end of the state.
func (s *State) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Compact consumes removal tombstones accumulated by pipeline stages.
func (s *State) Compact() {
	s.Messages = CompactMessages(s.Messages)
}

// LastHumanMessage returns the most recent human message, if any.
func (s *State) LastHumanMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastAssistantMessage returns the most recent assistant message, if any.
func (s *State) LastAssistantMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// ValidateToolPairing asserts that every tool message answers a tool call
// emitted by a preceding assistant message. States violating this are never
// valid input to a model call.
func (s *State) ValidateToolPairing() error {
	seen := map[string]struct{}{}
	for _, m := range s.Messages {
		switch m.Role {
		case RoleAssistant:
			for _, call := range m.ToolCalls {
				seen[call.ID] = struct{}{}
			}
		case RoleTool:
			if _, ok := seen[m.ToolCallID]; !ok {
				return fmt.Errorf("orphaned tool message: call id %q has no preceding assistant tool call", m.ToolCallID)
			}
		}
	}
	return nil
}
