package transform

import (
	"context"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/logging"
)

// TokenCounter is the model-specific counting interface TokenTrim depends on.
// token.Counter implements it.
type TokenCounter interface {
	Count(text string) int
	CountMessage(msg core.Message) int
	CountMessages(msgs []core.Message) int
	Truncate(text string, maxTokens int) string
}

// TokenTrimOptions configure TokenTrim.
type TokenTrimOptions struct {
	Logger logging.Logger
}

// TokenTrim drops the oldest non-system messages until the history fits the
// token budget. System messages are always exempt. The oldest retained
// message may be partially truncated (plain text messages only) when it
// straddles the budget boundary. Tool results whose assistant message was
// trimmed away are dropped too, so trimming never produces orphans.
type TokenTrim struct {
	counter TokenCounter
	budget  int
	logger  logging.Logger
}

// NewTokenTrim constructs the trim transform. A budget of zero or below
// disables trimming.
func NewTokenTrim(counter TokenCounter, budget int, optFns ...func(o *TokenTrimOptions)) *TokenTrim {
	opts := TokenTrimOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &TokenTrim{counter: counter, budget: budget, logger: opts.Logger}
}

// Name implements Transform.
func (t *TokenTrim) Name() string { return "token_trim" }

// Apply implements Transform.
func (t *TokenTrim) Apply(_ context.Context, state *core.State) (*core.State, error) {
	next := state.Clone()

	if t.counter == nil || t.budget <= 0 {
		return next, nil
	}

	msgs := next.Messages
	if t.counter.CountMessages(msgs) <= t.budget {
		return next, nil
	}

	keep := make([]bool, len(msgs))
	truncated := make(map[int]string)

	// Reply priming plus exempt messages charge the budget up front.
	budget := t.budget - t.counter.CountMessages(nil)

	for i, msg := range msgs {
		if msg.IsRemoval() {
			keep[i] = true
			continue
		}

		if msg.Role == core.RoleSystem {
			keep[i] = true
			budget -= t.counter.CountMessage(msg)
		}
	}

	// Retain the newest messages that still fit; everything older goes.
	for i := len(msgs) - 1; i >= 0; i-- {
		if keep[i] {
			continue
		}

		msg := msgs[i]

		cost := t.counter.CountMessage(msg)
		if cost <= budget {
			keep[i] = true
			budget -= cost

			continue
		}

		if cut, ok := t.truncate(msg, budget, cost); ok {
			keep[i] = true
			truncated[i] = cut
		}

		break
	}

	kept := make([]core.Message, 0, len(msgs))
	for i, msg := range msgs {
		if !keep[i] {
			continue
		}

		if content, ok := truncated[i]; ok {
			msg.Content = content
		}

		kept = append(kept, msg)
	}

	kept = dropOrphanedToolResults(kept)

	if dropped := len(msgs) - len(kept); dropped > 0 {
		t.logger.Debug("history trimmed to token budget", "budget", t.budget, "dropped", dropped, "kept", len(kept))
	}

	next.Messages = kept

	return next, nil
}

// truncate fits the boundary message's leading tokens into the remaining
// budget. Only plain text messages qualify: cutting tool calls or tool
// results would corrupt call pairing.
func (t *TokenTrim) truncate(msg core.Message, budget, cost int) (string, bool) {
	if budget <= 0 || msg.Content == "" || msg.HasToolCalls() || msg.Role == core.RoleTool {
		return "", false
	}

	overhead := cost - t.counter.Count(msg.Content)

	allowed := budget - overhead
	if allowed <= 0 {
		return "", false
	}

	cut := t.counter.Truncate(msg.Content, allowed)
	if cut == "" {
		return "", false
	}

	return cut, true
}

// dropOrphanedToolResults removes tool results whose originating assistant
// message did not survive trimming.
func dropOrphanedToolResults(msgs []core.Message) []core.Message {
	seen := make(map[string]struct{})

	kept := make([]core.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == core.RoleTool {
			if _, ok := seen[msg.ToolCallID]; !ok {
				continue
			}
		}

		for _, call := range msg.ToolCalls {
			if call.ID != "" {
				seen[call.ID] = struct{}{}
			}
		}

		kept = append(kept, msg)
	}

	return kept
}
