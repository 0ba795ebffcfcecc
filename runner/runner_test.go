package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gaiakit/agent"
	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/engine"
	"github.com/hupe1980/gaiakit/followup"
	"github.com/hupe1980/gaiakit/model"
	"github.com/hupe1980/gaiakit/tool"
)

func newConsole(t *testing.T, eng *engine.Engine, input string) (*Runner, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	r := New(eng, func(o *Options) {
		o.Input = strings.NewReader(input)
		o.Output = &out
		o.ConversationID = "conv-console"
		o.UserID = "user-1"
	})

	return r, &out
}

func TestRunTwoTurnConversation(t *testing.T) {
	m := model.NewScriptedModel(
		model.ScriptedTurn{Text: "Hi there!"},
		model.ScriptedTurn{Text: "Bye!"},
	)

	eng := engine.New(agent.New("assistant", m))
	r, out := newConsole(t, eng, "hello\nbye\nexit\n")

	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "Hi there!")
	assert.Contains(t, out.String(), "Bye!")
	assert.GreaterOrEqual(t, strings.Count(out.String(), "> "), 3)

	calls := m.Calls()
	require.Len(t, calls, 2)

	// The second turn sees the first turn's transcript.
	var contents []string
	for _, msg := range calls[1].Messages {
		contents = append(contents, msg.Content)
	}
	assert.Contains(t, contents, "hello")
	assert.Contains(t, contents, "Hi there!")
	assert.Contains(t, contents, "bye")
}

func TestRunEndsAtEOF(t *testing.T) {
	m := model.NewScriptedModel(model.ScriptedTurn{Text: "Hi!"})

	eng := engine.New(agent.New("assistant", m))
	r, _ := newConsole(t, eng, "hello\n")

	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, m.Calls(), 1)
}

func TestRunSkipsBlankLines(t *testing.T) {
	m := model.NewScriptedModel()

	eng := engine.New(agent.New("assistant", m))
	r, _ := newConsole(t, eng, "\n   \nquit\n")

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, m.Calls())
}

func TestRunPrintsProgressAndSuggestions(t *testing.T) {
	m := model.NewScriptedModel(
		model.ScriptedTurn{ToolCalls: []core.ToolCall{{ID: "c1", Name: "get_time", Args: map[string]any{}}}},
		model.ScriptedTurn{Text: "It is noon."},
	)

	registry := tool.NewRegistry()
	clock := tool.NewFunctionTool("get_time", "Current date and time", map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}, func(*core.ToolContext, map[string]any) (any, error) {
		return "12:00", nil
	})
	require.NoError(t, registry.Register("utility", []tool.Tool{clock}))

	followupModel := model.NewScriptedModel(model.ScriptedTurn{Text: `{"suggestions":["Set an alarm"]}`})

	eng := engine.New(
		agent.New("assistant", m, func(o *agent.Options) {
			o.Registry = registry
		}),
		func(o *engine.Options) {
			o.Followup = followup.NewGenerator(followupModel)
		},
	)

	r, out := newConsole(t, eng, "what time is it?\nexit\n")

	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "[utility] Executing get_time...")
	assert.Contains(t, out.String(), "It is noon.")
	assert.Contains(t, out.String(), "Try next:")
	assert.Contains(t, out.String(), "  - Set an alarm")
}

func TestRunReportsTurnErrorAndContinues(t *testing.T) {
	m := model.NewScriptedModel(
		model.ScriptedTurn{Err: errors.New("model down")},
		model.ScriptedTurn{Text: "recovered"},
	)

	eng := engine.New(agent.New("assistant", m))
	r, out := newConsole(t, eng, "hi\nagain\nexit\n")

	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "error:")
	assert.Contains(t, out.String(), "model down")
	assert.Contains(t, out.String(), "recovered")
	assert.Len(t, m.Calls(), 2)
}
