package agent

import (
	"time"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/internal/util"
)

// Provider computes instruction text per turn, so prompts can react to the
// current state or environment.
type Provider interface {
	Instruction(state *core.State) (string, error)
}

// Func adapts an ordinary function into a Provider.
type Func func(state *core.State) (string, error)

// Instruction calls f.
func (f Func) Instruction(s *core.State) (string, error) { return f(s) }

// Instruction represents either a static instruction template or a dynamic
// provider. This mirrors a union of string | provider in a Go-idiomatic way.
// Static text is rendered as a template against the turn state, so prompts
// can interpolate the user's name, preferences and trigger context.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider wraps a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc wraps a plain function as a dynamic instruction.
func NewInstructionFromFunc(f func(state *core.State) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the final instruction text. Dynamic providers are invoked
// directly; static templates are rendered against the turn state.
func (i Instruction) Resolve(state *core.State) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(state)
	}

	if state == nil {
		return util.RenderTemplate(i.text, map[string]any{})
	}

	datetime := state.Datetime
	if datetime.IsZero() {
		datetime = time.Now()
	}

	return util.RenderTemplate(i.text, map[string]any{
		"UserName":       state.UserName,
		"Preferences":    state.Preferences,
		"Datetime":       datetime.Format(time.RFC1123),
		"TriggerContext": state.TriggerContext,
	})
}
