package core

import (
	"maps"

	"github.com/google/uuid"
)

// Role identifies the conversational role of a Message.
type Role string

const (
	// RoleSystem is an instruction message injected by the pipeline.
	RoleSystem Role = "system"
	// RoleHuman is end-user input (or a task description handed to a sub-agent).
	RoleHuman Role = "human"
	// RoleAssistant is model output, optionally carrying tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool is the result of one tool call, answering a ToolCall by ID.
	RoleTool Role = "tool"
)

// ToolCall describes one tool invocation requested by an assistant message.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Message is the primary conversational record. After construction it should
// be treated as immutable; pipeline stages produce new messages (or removal
// tombstones) instead of mutating in place.
//
// Every message carries a stable ID so that state merges can replace or delete
// by identity rather than by position, keeping out-of-order merges consistent.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Scope      AgentScope `json:"scope,omitzero"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
	ToolName   string     `json:"tool_name,omitempty"`    // tool messages only

	remove bool // tombstone marker, consumed by CompactMessages
}

// NewSystemMessage constructs a system message with a fresh ID.
func NewSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Content: content}
}

// NewHumanMessage constructs a human message with a fresh ID.
func NewHumanMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleHuman, Content: content}
}

// NewAssistantMessage constructs an assistant message, optionally carrying
// tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage constructs a tool-result message answering the given call ID.
func NewToolMessage(callID, toolName, content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName}
}

// NewRemoval constructs a tombstone instructing CompactMessages to delete the
// message with the given ID. Tombstones never survive compaction.
func NewRemoval(id string) Message {
	return Message{ID: id, remove: true}
}

// WithScope returns a copy of the message attributed to the given scope.
func (m Message) WithScope(s AgentScope) Message {
	m.Scope = s
	return m
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// IsRemoval reports whether the message is a removal tombstone.
func (m Message) IsRemoval() bool { return m.remove }

// Clone returns a deep copy of the message. Tool call argument maps are
// copied one level deep; tools must not mutate nested argument values.
func (m Message) Clone() Message {
	cp := m
	if m.ToolCalls != nil {
		cp.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, call := range m.ToolCalls {
			cp.ToolCalls[i] = ToolCall{ID: call.ID, Name: call.Name, Args: maps.Clone(call.Args)}
		}
	}
	return cp
}

// CompactMessages consumes removal tombstones: the result contains neither the
// tombstones themselves nor any message whose ID a tombstone names. Order of
// the survivors is preserved.
func CompactMessages(msgs []Message) []Message {
	removed := map[string]struct{}{}
	for _, m := range msgs {
		if m.remove {
			removed[m.ID] = struct{}{}
		}
	}
	if len(removed) == 0 {
		return msgs
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.remove {
			continue
		}
		if _, gone := removed[m.ID]; gone {
			continue
		}
		out = append(out, m)
	}
	return out
}
