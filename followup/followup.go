// Package followup generates tappable follow-up suggestions after a turn
// completes. Generation runs as a silent structured-output model call and is
// strictly best-effort: every failure is swallowed after a debug log, so
// suggestions can never fail or block the turn they follow.
package followup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/logging"
	"github.com/hupe1980/gaiakit/model"
)

const instructions = `You suggest follow-up actions for a conversation with an assistant.
Based on the recent exchange, propose 3 to 4 short follow-ups phrased exactly as the user would say them.
Each suggestion must stand on its own and fit in one line.`

// maxSuggestions caps the surfaced suggestions even when the model ignores
// the schema bounds.
const maxSuggestions = 4

var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"suggestions": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 3,
			"maxItems": 4,
		},
	},
	"required":             []string{"suggestions"},
	"additionalProperties": false,
}

// Options configure a Generator.
type Options struct {
	// HistoryLimit caps how many trailing conversation messages are shown to
	// the suggestion model.
	HistoryLimit int

	Logger logging.Logger
}

// Generator produces follow-up suggestions from the tail of a finished turn.
type Generator struct {
	model        model.Model
	historyLimit int
	logger       logging.Logger
}

// NewGenerator constructs a Generator on top of any model.
func NewGenerator(m model.Model, optFns ...func(o *Options)) *Generator {
	opts := Options{
		HistoryLimit: 6,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Generator{model: m, historyLimit: opts.HistoryLimit, logger: opts.Logger}
}

// Generate returns 3-4 follow-up suggestions for the finished turn, or nil.
// All failures, including malformed model output and cancellation, result in
// nil.
func (g *Generator) Generate(ctx context.Context, state *core.State) []string {
	history := g.history(state)
	if len(history) == 0 {
		return nil
	}

	respCh, errCh := g.model.Generate(ctx, model.Request{
		Instructions:   instructions,
		Messages:       history,
		Silent:         true,
		ResponseSchema: responseSchema,
	})

	final, err := g.drain(ctx, respCh, errCh)
	if err != nil {
		g.logger.Debug("follow-up generation failed", "error", err)
		return nil
	}

	var payload struct {
		Suggestions []string `json:"suggestions"`
	}

	if err := json.Unmarshal([]byte(final.Content), &payload); err != nil {
		g.logger.Debug("follow-up output not parseable", "error", err)
		return nil
	}

	suggestions := make([]string, 0, len(payload.Suggestions))

	for _, s := range payload.Suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		suggestions = append(suggestions, s)
		if len(suggestions) == maxSuggestions {
			break
		}
	}

	if len(suggestions) == 0 {
		return nil
	}

	return suggestions
}

// history returns the trailing human and assistant text messages the
// suggestion prompt is grounded on.
func (g *Generator) history(state *core.State) []core.Message {
	msgs := core.CompactMessages(state.Messages)

	tail := make([]core.Message, 0, g.historyLimit)

	for i := len(msgs) - 1; i >= 0 && len(tail) < g.historyLimit; i-- {
		msg := msgs[i]
		if msg.Content == "" {
			continue
		}

		if msg.Role != core.RoleHuman && msg.Role != core.RoleAssistant {
			continue
		}

		tail = append(tail, msg)
	}

	// Restore chronological order after the backward scan.
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}

	return tail
}

func (g *Generator) drain(ctx context.Context, respCh <-chan model.Response, errCh <-chan error) (core.Message, error) {
	var final *model.Response

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if !resp.Partial {
				r := resp
				final = &r
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return core.Message{}, err
			}
		case <-ctx.Done():
			return core.Message{}, ctx.Err()
		}
	}

	if final == nil {
		return core.Message{}, errors.New("model closed without a final response")
	}

	return final.Message, nil
}
