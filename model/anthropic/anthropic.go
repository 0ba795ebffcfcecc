// Package anthropic adapts the Anthropic Messages API to the model.Model
// interface. The Messages API differs from a plain chat completion API in two
// ways that matter here: system prompts travel in a dedicated parameter, and
// roles must strictly alternate, so consecutive same-role messages are merged
// into one.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/model"
)

// structuredOutputTool is the forced tool used to emulate structured output;
// the Messages API has no native response-format parameter.
const structuredOutputTool = "emit_structured_response"

// Options configure the Anthropic model adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Model is the Anthropic-backed implementation of model.Model.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel constructs a Model with its own SDK client. The API key comes from
// the APIKey option when set, otherwise from the environment.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := newOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient wraps an existing SDK client. Use this to supply a
// custom base URL, HTTP client or retry policy.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: newOptions(optFns)}
}

// Generate runs one message exchange, streaming or not depending on the
// request. Responses and errors are delivered on the returned channels, both
// of which close when the call completes.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.messageParams(req)

		if req.Stream {
			m.streamMessage(ctx, params, out, errCh)
			return
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}
		out <- responseFrom(resp)
	}()

	return out, errCh
}

// messageParams assembles the API parameters for one exchange. Structured
// output is emulated with a forced tool whose input schema is the response
// schema.
func (m *Model) messageParams(req model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    convertHistory(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}

	if blocks := systemBlocks(req); len(blocks) > 0 {
		params.System = blocks
	}

	for _, tdef := range req.Tools {
		params.Tools = append(params.Tools, toolParam(tdef.Function.Name, tdef.Function.Parameters))
	}

	if req.ResponseSchema != nil {
		params.Tools = append(params.Tools, toolParam(structuredOutputTool, req.ResponseSchema))
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredOutputTool},
		}
	}

	return params
}

// streamMessage forwards text deltas as they arrive and accumulates the
// complete message for the final response.
func (m *Model) streamMessage(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Messages.NewStreaming(ctx, params)

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			errCh <- fmt.Errorf("anthropic stream accumulation error: %w", err)
			return
		}

		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				out <- model.Response{
					Partial: true,
					Message: core.Message{Role: core.RoleAssistant, Content: delta.Text},
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		return
	}

	out <- responseFrom(&acc)
}

// responseFrom maps a complete API message onto the normalized response. A
// call to the forced structured-output tool is unwrapped back into plain JSON
// content instead of surfacing as a tool call.
func responseFrom(resp *anthropic.Message) model.Response {
	var (
		text  string
		calls []core.ToolCall
	)

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			use := block.AsToolUse()

			if use.Name == structuredOutputTool {
				if raw, err := json.Marshal(use.Input); err == nil {
					text = string(raw)
				}
				continue
			}

			args := map[string]any{}
			if raw, err := json.Marshal(use.Input); err == nil {
				_ = json.Unmarshal(raw, &args)
			}
			calls = append(calls, core.ToolCall{
				ID:   use.ID,
				Name: use.Name,
				Args: args,
			})
		}
	}

	reason := "stop"
	if resp.StopReason != "" {
		reason = string(resp.StopReason)
	}

	return model.Response{
		Partial:      false,
		Message:      core.NewAssistantMessage(text, calls...),
		FinishReason: reason,
	}
}

// history builds the alternating-role message list the API requires.
// Consecutive blocks with the same role are folded into one message.
type history struct {
	messages []anthropic.MessageParam
}

func (h *history) add(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
	if len(blocks) == 0 {
		return
	}
	if n := len(h.messages); n > 0 && h.messages[n-1].Role == role {
		h.messages[n-1].Content = append(h.messages[n-1].Content, blocks...)
		return
	}
	if role == anthropic.MessageParamRoleAssistant {
		h.messages = append(h.messages, anthropic.NewAssistantMessage(blocks...))
	} else {
		h.messages = append(h.messages, anthropic.NewUserMessage(blocks...))
	}
}

// convertHistory translates the normalized history into Anthropic messages.
// Tool results become tool_result blocks carried in user-role messages.
func convertHistory(msgs []core.Message) []anthropic.MessageParam {
	var h history

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			// Carried in the system parameter, not the message list.
		case core.RoleHuman:
			if msg.Content != "" {
				h.add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
			}
		case core.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				var input any = map[string]any{}
				if len(call.Args) > 0 {
					input = call.Args
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			h.add(anthropic.MessageParamRoleAssistant, blocks...)
		case core.RoleTool:
			if msg.ToolCallID != "" {
				h.add(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			}
		default:
			if msg.Content != "" {
				h.add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
			}
		}
	}

	return h.messages
}

// systemBlocks collects the agent instructions and any system messages into
// the system parameter, instructions first.
func systemBlocks(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}

	return blocks
}

// toolParam converts one tool's JSON schema parameters into an Anthropic tool
// definition.
func toolParam(name string, params map[string]any) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
	}
	if params != nil {
		if properties, ok := params["properties"]; ok {
			schema.Properties = properties
		}
		schema.Required = requiredStrings(params["required"])
	}
	return anthropic.ToolUnionParamOfTool(schema, name)
}

// requiredStrings normalizes the two schema encodings of the required list.
func requiredStrings(required any) []string {
	switch v := required.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Info reports the configured model name and provider capabilities.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
