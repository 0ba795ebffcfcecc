package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/internal/util"
	"github.com/hupe1980/gaiakit/logging"
)

// FunctionTool exposes a plain Go function as a tool. Arguments are validated
// against the declared JSON schema before the function runs, and every
// failure surfaces as a *ToolError with a stable code:
//
//	VALIDATION_ERROR  schema or argument mismatch, function never ran
//	EXECUTION_ERROR   the function returned an ordinary error
//	<custom>          *ToolError returned by the function, forwarded as-is
//
// A FunctionTool carries no mutable state after construction and may be
// called from multiple goroutines. The returned value must be
// JSON-serializable; tools needing richer output implement Tool directly.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool builds a FunctionTool from an explicit parameter schema.
// The schema only needs the subset ValidateParameters understands (type,
// properties, required, enum).
//
//	weather := NewFunctionTool("get_weather", "Current weather for a city",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "city": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"city"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return lookupWeather(tc.Context(), args["city"].(string))
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter schema from an argument
// struct (util.CreateSchema semantics: json tags name properties, description
// tags document them, non-pointer fields without omitempty are required).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema, then runs the wrapped
// function. See the type doc for the error taxonomy.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		return nil, t.wrapExecErr(logger, err)
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// wrapExecErr forwards *ToolError values untouched so custom codes survive,
// and wraps everything else as EXECUTION_ERROR.
func (t *FunctionTool) wrapExecErr(logger logging.Logger, err error) error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)
		return toolErr
	}

	logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

	return &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
}
