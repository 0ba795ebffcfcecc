// Package openai adapts the OpenAI Chat Completions API (streaming and
// non-streaming, with function calling) to the model.Model interface.
// Normalized messages are translated to the SDK wire format on the way out
// and back into core messages on the way in.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/model"
)

// Options configure the OpenAI model adapter. The fields cover the subset of
// Chat Completion parameters the engine needs; everything else keeps its SDK
// default.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model is the OpenAI-backed implementation of model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel constructs a Model with a client configured from the environment
// (OPENAI_API_KEY and friends).
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient wraps an existing SDK client. Use this to supply a
// custom base URL, HTTP client or retry policy.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate runs one completion, streaming or not depending on the request.
// Responses and errors are delivered on the returned channels, both of which
// close when the call completes.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		results := newToolResults(req.Messages)
		params := m.completionParams(req, chatMessages(req, results))
		if req.Stream {
			m.streamCompletion(ctx, params, out, errCh)
			return
		}
		m.completeOnce(ctx, params, out, errCh)
	}()
	return out, errCh
}

// toolResults indexes tool result messages by call id. The first result for a
// given id wins; insertion order is remembered so results whose originating
// call never shows up can still be appended deterministically.
type toolResults struct {
	byID  map[string]string
	order []string
}

func newToolResults(msgs []core.Message) *toolResults {
	r := &toolResults{byID: map[string]string{}}
	for _, msg := range msgs {
		if msg.Role != core.RoleTool || msg.ToolCallID == "" {
			continue
		}
		if _, seen := r.byID[msg.ToolCallID]; seen {
			continue
		}
		r.byID[msg.ToolCallID] = msg.Content
		r.order = append(r.order, msg.ToolCallID)
	}
	return r
}

// take removes and returns the result for the given call id.
func (r *toolResults) take(id string) (string, bool) {
	content, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
	}
	return content, ok
}

// leftovers returns the untaken results in first-seen order.
func (r *toolResults) leftovers() []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	for _, id := range r.order {
		if content, ok := r.byID[id]; ok {
			msgs = append(msgs, openai.ToolMessage(content, id))
		}
	}
	return msgs
}

// chatMessages converts the normalized history into OpenAI chat messages.
// Tool results are attached directly after the assistant message that
// requested them, which is where the API expects them.
func chatMessages(req model.Request, results *toolResults) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleTool:
			continue
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case core.RoleHuman:
			messages = append(messages, openai.UserMessage(msg.Content))
		case core.RoleAssistant:
			if !msg.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			messages = append(messages, assistantWithCalls(msg))
			for _, call := range msg.ToolCalls {
				if call.ID == "" {
					continue
				}
				if content, ok := results.take(call.ID); ok {
					messages = append(messages, openai.ToolMessage(content, call.ID))
				}
			}
		default:
			if msg.Content != "" {
				messages = append(messages, openai.UserMessage(msg.Content))
			}
		}
	}
	return append(messages, results.leftovers()...)
}

// assistantWithCalls builds the assistant message param for a turn that
// includes tool calls, re-serializing each call's arguments to JSON.
func assistantWithCalls(msg core.Message) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		args := "{}"
		if len(call.Args) > 0 {
			if raw, err := json.Marshal(call.Args); err == nil {
				args = string(raw)
			}
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID:   call.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	assistant := &openai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: calls,
	}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

// decodeArgs parses a tool call argument payload. Malformed JSON yields an
// empty map so downstream schema validation can report the concrete problem.
func decodeArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// completionParams assembles the request parameters, including tool
// definitions and an optional strict JSON schema response format.
func (m *Model) completionParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if req.ResponseSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "structured_response",
					Schema: req.ResponseSchema,
					Strict: openai.Bool(true),
				},
			},
		}
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// callAssembler reassembles tool calls from streaming deltas. Chunks carry a
// call's id, name and argument fragments spread across events, keyed by the
// call's stream index.
type callAssembler struct {
	drafts map[int64]*callDraft
}

type callDraft struct {
	id   string
	name string
	args strings.Builder
}

func newCallAssembler() *callAssembler {
	return &callAssembler{drafts: map[int64]*callDraft{}}
}

// absorb merges one tool call delta into the draft at the given index.
func (a *callAssembler) absorb(index int64, id, name, args string) {
	draft, ok := a.drafts[index]
	if !ok {
		draft = &callDraft{}
		a.drafts[index] = draft
	}
	if id != "" {
		draft.id = id
	}
	if name != "" {
		draft.name = name
	}
	if args != "" {
		draft.args.WriteString(args)
	}
}

// message assembles the complete assistant message from the accumulated text
// and the reassembled tool calls, ordered by stream index.
func (a *callAssembler) message(text string) core.Message {
	indexes := make([]int64, 0, len(a.drafts))
	for idx := range a.drafts {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	calls := make([]core.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		draft := a.drafts[idx]
		calls = append(calls, core.ToolCall{
			ID:   draft.id,
			Name: draft.name,
			Args: decodeArgs(draft.args.String()),
		})
	}
	return core.NewAssistantMessage(text, calls...)
}

// streamCompletion runs a streaming completion. Text deltas are forwarded as
// partial responses the moment they arrive; tool call deltas accumulate
// silently and surface only in the final response.
func (m *Model) streamCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)

	var text string
	assembler := newCallAssembler()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text += choice.Delta.Content
				out <- model.Response{
					Partial: true,
					Message: core.Message{Role: core.RoleAssistant, Content: choice.Delta.Content},
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				assembler.absorb(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				out <- model.Response{
					Partial:      false,
					Message:      assembler.message(text),
					FinishReason: choice.FinishReason,
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
	}
}

// completeOnce runs a single non-streaming completion.
func (m *Model) completeOnce(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}
	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}
	choice := resp.Choices[0]

	calls := make([]core.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, core.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArgs(tc.Function.Arguments),
		})
	}

	out <- model.Response{
		Partial:      false,
		Message:      core.NewAssistantMessage(choice.Message.Content, calls...),
		FinishReason: choice.FinishReason,
	}
}

// Info reports the configured model name and provider capabilities.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
