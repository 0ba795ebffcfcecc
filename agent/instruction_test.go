package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gaiakit/core"
)

func TestInstructionStaticText(t *testing.T) {
	ins := NewInstructionFromText("You are a precise assistant.")

	assert.True(t, ins.IsStatic())

	resolved, err := ins.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "You are a precise assistant.", resolved)
}

func TestInstructionRendersStateFields(t *testing.T) {
	ins := NewInstructionFromText(`Assist {{.UserName | default "anonymous"}} ({{.Preferences | default "no preferences"}}). Now: {{.Datetime}}.`)

	state := core.NewState()
	state.UserName = "Ada"
	state.Datetime = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

	resolved, err := ins.Resolve(state)
	require.NoError(t, err)
	assert.Equal(t, "Assist Ada (no preferences). Now: Fri, 14 Mar 2025 09:30:00 UTC.", resolved)
}

func TestInstructionRendersTriggerContext(t *testing.T) {
	ins := NewInstructionFromText("Triggered by: {{.TriggerContext}}")

	state := core.NewState()
	state.TriggerContext = "calendar reminder fired"

	resolved, err := ins.Resolve(state)
	require.NoError(t, err)
	assert.Equal(t, "Triggered by: calendar reminder fired", resolved)
}

func TestInstructionFromFunc(t *testing.T) {
	ins := NewInstructionFromFunc(func(state *core.State) (string, error) {
		return "Serve " + state.UserName + ".", nil
	})

	assert.False(t, ins.IsStatic())

	state := core.NewState()
	state.UserName = "Ada"

	resolved, err := ins.Resolve(state)
	require.NoError(t, err)
	assert.Equal(t, "Serve Ada.", resolved)
}

func TestInstructionProviderErrorPropagates(t *testing.T) {
	ins := NewInstructionFromFunc(func(*core.State) (string, error) {
		return "", errors.New("prompt service unavailable")
	})

	_, err := ins.Resolve(core.NewState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt service unavailable")
}

func TestInstructionInvalidTemplate(t *testing.T) {
	ins := NewInstructionFromText("Hello {{.UserName")

	_, err := ins.Resolve(core.NewState())
	require.Error(t, err)
}
