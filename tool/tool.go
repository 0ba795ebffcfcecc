// Package tool implements the tool-calling subsystem: the Tool interface and
// FunctionTool adapter with schema-validated arguments and a stable error
// taxonomy, the startup-built Registry grouping tools into categories with
// integration requirements and retrieval spaces, the handoff tool that routes
// work to sub-agents, and the memory tools injected into specialist views.
package tool

import (
	"fmt"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/internal/util"
)

// Tool is one callable capability an agent can invoke through function
// calling. The engine treats tools as opaque: it binds their declarations to
// model requests, dispatches calls by name, and serializes results back into
// the conversation.
//
// Implementations must be safe for concurrent calls and should use
// snake_case names; the Registry enforces global name uniqueness at
// registration.
type Tool interface {
	// Name is the unique identifier used in function-call declarations and
	// dispatch.
	Name() string

	// Description is shown to the model for call selection and doubles as
	// the text indexed for semantic retrieval.
	Description() string

	// Parameters is the JSON schema the arguments are validated against and
	// declared to the model with.
	Parameters() map[string]any

	// Call executes the tool. The ToolContext carries turn state, the call
	// ID, logging, custom event emission and handoff signaling.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError reports one parameter that failed schema validation.
type ValidationError = util.ValidationError

// ToolError is the uniform failure shape tools return. Code categorizes the
// failure (VALIDATION_ERROR, EXECUTION_ERROR, or a tool-specific code) so
// the serialized result gives the model something it can react to.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError builds a ToolError without details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
