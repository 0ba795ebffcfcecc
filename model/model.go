package model

import (
	"context"
	"sync"

	"github.com/hupe1980/gaiakit/core"
)

// ToolDefinition is the wire-level description of one callable tool.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition names a single function and its JSON Schema parameters
// (the minimal subset: type, properties, required, enum).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewToolDefinition builds the function-calling definition for one tool.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Request captures the normalized model input produced by the engine.
type Request struct {
	// Instructions is the agent's system prompt for this call. Adapters map
	// it to the provider's system slot; it is never part of Messages.
	Instructions string `json:"instructions"`
	// Messages is the conversation history after the transform pipeline ran.
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
	// Silent marks a side-channel call whose output must never reach the
	// client stream (follow-up suggestion generation).
	Silent bool `json:"silent,omitempty"`
	// ResponseSchema, when set, constrains the output to a JSON object
	// matching this schema (structured output).
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// TokenUsage reports prompt and completion token counts when the provider
// supplies them.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one chunk emitted by a model call. Partial responses carry
// incremental text in Message.Content; the final response carries the
// complete assistant message including tool calls.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info describes a model implementation to callers that introspect it.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "local", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the engine to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info describes the implementation (name, provider, capabilities).
	Info() Info
}

// ScriptedTurn is one pre-recorded model reply used by ScriptedModel.
type ScriptedTurn struct {
	// Text is the assistant text of this turn. In streaming requests it is
	// emitted as per-rune partial chunks before the final response.
	Text string
	// ToolCalls, when non-empty, makes this turn a tool-calling response.
	ToolCalls []core.ToolCall
	// Err aborts the turn with this error instead of a response.
	Err error
}

// ScriptedModel replays a fixed sequence of turns, one per Generate call.
// It is the deterministic stand-in for engine and equivalence tests.
type ScriptedModel struct {
	mu    sync.Mutex
	turns []ScriptedTurn
	calls []Request
}

// NewScriptedModel constructs a ScriptedModel from an ordered turn list.
func NewScriptedModel(turns ...ScriptedTurn) *ScriptedModel {
	return &ScriptedModel{turns: turns}
}

// Calls returns the requests seen so far, in order.
func (m *ScriptedModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)

	return out
}

// Generate implements Model; replays the next scripted turn.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls = append(m.calls, req)

	var turn ScriptedTurn
	if len(m.turns) > 0 {
		turn = m.turns[0]
		m.turns = m.turns[1:]
	} else {
		turn = ScriptedTurn{Text: "script exhausted"}
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}

		if req.Stream && turn.Text != "" && len(turn.ToolCalls) == 0 {
			for _, r := range turn.Text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Message: core.Message{Role: core.RoleAssistant, Content: string(r)},
				}:
				}
			}
		}

		finishReason := "stop"
		if len(turn.ToolCalls) > 0 {
			finishReason = "tool_calls"
		}

		respCh <- Response{
			Partial:      false,
			Message:      core.NewAssistantMessage(turn.Text, turn.ToolCalls...),
			FinishReason: finishReason,
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "mock", SupportsTools: true}
}
