// Package token provides model-aware token accounting for conversation
// context management, backed by tiktoken BPE encodings.
package token

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hupe1980/gaiakit/core"
)

const (
	// tokensPerMessage is the per-message framing overhead of the chat
	// format (<|start|>role ... <|end|>).
	tokensPerMessage = 3

	// replyPrimingTokens accounts for the <|start|>assistant<|message|>
	// priming of every model reply.
	replyPrimingTokens = 3
)

var (
	// Encodings are expensive to initialize; cache them per model.
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.RWMutex
)

// Counter counts tokens using the BPE encoding of a specific model.
// Counters are safe for concurrent use.
type Counter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewCounter returns a Counter for the given model. Models without a
// registered encoding fall back to cl100k_base.
func NewCounter(model string) (*Counter, error) {
	encodingCacheMu.RLock()
	cached, ok := encodingCache[model]
	encodingCacheMu.RUnlock()

	if ok {
		return &Counter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = encoding
	encodingCacheMu.Unlock()

	return &Counter{encoding: encoding, model: model}, nil
}

// Model returns the model name this counter was created for.
func (c *Counter) Model() string { return c.model }

// Count returns the token count of raw text.
func (c *Counter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// CountMessage returns the token cost of a single message, including the
// chat-format framing overhead, role, content and any tool call payloads.
func (c *Counter) CountMessage(msg core.Message) int {
	total := tokensPerMessage
	total += c.Count(string(msg.Role))
	total += c.Count(msg.Content)

	for _, call := range msg.ToolCalls {
		total += c.Count(call.Name)

		if len(call.Args) > 0 {
			if raw, err := json.Marshal(call.Args); err == nil {
				total += c.Count(string(raw))
			}
		}
	}

	if msg.ToolName != "" {
		total += c.Count(msg.ToolName)
	}

	return total
}

// CountMessages returns the token cost of a message list, including the
// priming overhead of the assistant reply that follows it.
func (c *Counter) CountMessages(msgs []core.Message) int {
	total := replyPrimingTokens
	for _, msg := range msgs {
		total += c.CountMessage(msg)
	}

	return total
}

// Truncate cuts text down to at most maxTokens tokens, splitting on a token
// boundary. Text already within the limit is returned unchanged.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return c.encoding.Decode(tokens[:maxTokens])
}
