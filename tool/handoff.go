package tool

import (
	"fmt"

	"github.com/hupe1980/gaiakit/core"
)

// HandoffOptions configures a handoff tool.
type HandoffOptions struct {
	// ToolName overrides the default "call_<provider>_agent" name.
	ToolName string
	// AgentName overrides the default "<provider>_agent" target.
	AgentName string
	// Description overrides the default description shown to the model.
	Description string
}

// handoffTool transfers an entire provider-specific task to a specialist
// sub-agent. Invoking it performs no external API call; it records a
// HandoffTask on the ToolContext, which the engine's dispatcher consumes to
// route control.
type handoffTool struct {
	name        string
	agent       string
	description string
}

// NewHandoffTool constructs the handoff tool for one provider. By default the
// tool is named "call_<provider>_agent" and targets the sub-agent named
// "<provider>_agent"; both can be overridden through options.
func NewHandoffTool(provider string, optFns ...func(o *HandoffOptions)) Tool {
	opts := HandoffOptions{
		ToolName:  fmt.Sprintf("call_%s_agent", provider),
		AgentName: fmt.Sprintf("%s_agent", provider),
		Description: fmt.Sprintf(
			"Hand off a task to the %s specialist agent. Use for any request that requires %s capabilities; describe the complete task in plain language.",
			provider, provider,
		),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &handoffTool{
		name:        opts.ToolName,
		agent:       opts.AgentName,
		description: opts.Description,
	}
}

func (t *handoffTool) Name() string { return t.name }

func (t *handoffTool) Description() string { return t.description }

// TargetAgent returns the sub-agent this tool routes to.
func (t *handoffTool) TargetAgent() string { return t.agent }

func (t *handoffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_description": map[string]any{
				"type":        "string",
				"description": "Complete description of the task to delegate, including all context the specialist needs",
			},
		},
		"required": []string{"task_description"},
	}
}

func (t *handoffTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["task_description"]
	if !ok {
		return nil, &ToolError{Tool: t.name, Message: "missing required field 'task_description'", Code: "VALIDATION_ERROR"}
	}
	task, ok := raw.(string)
	if !ok || task == "" {
		return nil, &ToolError{Tool: t.name, Message: "field 'task_description' must be a non-empty string", Code: "VALIDATION_ERROR"}
	}

	tc.Handoff(t.agent, task)

	return map[string]any{"transferred": true, "agent": t.agent}, nil
}
