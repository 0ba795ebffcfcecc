package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/gaiakit/agent"
	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/model"
	"github.com/hupe1980/gaiakit/tool"
)

// agentRun captures the outcome of one agent's model loop.
type agentRun struct {
	// state is the evolved state: the agent's message view plus everything
	// the loop appended.
	state *core.State

	// final is the concluding assistant message, carrying no tool calls.
	final core.Message

	// base is the message count right after the view pipeline ran; messages
	// past it were appended by the loop.
	base int
}

// appended returns the messages the loop added on top of the agent's view.
func (r *agentRun) appended() []core.Message {
	return r.state.Messages[r.base:]
}

// runAgent drives one agent to completion: the message-view pipeline is
// applied once, then model round trips alternate with sequential tool
// dispatch until the model answers without tool calls. The limiter is shared
// between the main agent and every sub-agent it delegates to, so delegation
// cannot escape the per-turn cap.
func (e *Engine) runAgent(ctx context.Context, a *agent.Agent, state *core.State, limiter *core.Limiter, snk sink, stream bool) (*agentRun, error) {
	st, err := a.Pipeline().Apply(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("pipeline failed for %s: %w", a.Name(), err)
	}

	run := &agentRun{state: st, base: len(st.Messages)}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := st.ValidateToolPairing(); err != nil {
			return nil, fmt.Errorf("invalid history for %s: %w", a.Name(), err)
		}

		if err := limiter.Increment(); err != nil {
			return nil, err
		}

		defs, bound := a.BindTools(ctx, st)

		// Sub-agents carry their prompt as a scoped system message seeded
		// by the dispatcher; only the main agent resolves instructions into
		// the request's system slot.
		var instructions string
		if a.Scope().Kind != core.ScopeSub {
			instructions, err = a.Instructions(st)
			if err != nil {
				return nil, fmt.Errorf("resolve instructions for %s: %w", a.Name(), err)
			}
		}

		final, err := e.generate(ctx, a, model.Request{
			Instructions: instructions,
			Messages:     st.Messages,
			Tools:        defs,
			Stream:       stream,
		}, snk, stream)
		if err != nil {
			return nil, fmt.Errorf("model call failed for %s: %w", a.Name(), err)
		}

		msg := final.WithScope(a.Scope())
		st.Append(msg)

		if !msg.HasToolCalls() {
			run.final = msg
			return run, nil
		}

		if err := e.dispatchCalls(ctx, a, st, msg.ToolCalls, bound, limiter, snk); err != nil {
			return nil, err
		}
	}
}

// generate performs one model round trip, forwarding partial text to the
// sink while streaming, and returns the final assistant message.
func (e *Engine) generate(ctx context.Context, a *agent.Agent, req model.Request, snk sink, stream bool) (core.Message, error) {
	start := time.Now()

	respCh, errCh := a.Model().Generate(ctx, req)

	var (
		final core.Message
		done  bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return core.Message{}, ctx.Err()

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return core.Message{}, err
			}

		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if resp.Partial {
				if stream && resp.Message.Content != "" {
					if err := snk.emit(core.TextEvent{Text: resp.Message.Content}); err != nil {
						return core.Message{}, err
					}
				}

				continue
			}

			final = resp.Message
			done = true
		}
	}

	if !done {
		return core.Message{}, fmt.Errorf("model closed the stream without a final response")
	}

	e.logger.Debug("model round trip completed",
		"agent", a.Name(),
		"model", a.Model().Info().Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"tool_calls", len(final.ToolCalls),
	)

	return final, nil
}

// dispatchCalls executes the round trip's tool calls sequentially in call
// order, announcing each one with a progress event strictly before it runs.
// Results append as unattributed tool messages; a pending handoff routes
// control to the target sub-agent instead.
func (e *Engine) dispatchCalls(ctx context.Context, a *agent.Agent, st *core.State, calls []core.ToolCall, bound map[string]tool.Tool, limiter *core.Limiter, snk sink) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := snk.emit(core.ProgressEvent{
			Message:      fmt.Sprintf("Executing %s...", call.Name),
			ToolName:     call.Name,
			ToolCategory: a.Registry().CategoryOf(call.Name),
		}); err != nil {
			return err
		}

		impl, ok := bound[call.Name]
		if !ok {
			e.logger.Warn("model requested a tool outside its binding", "agent", a.Name(), "tool", call.Name)

			st.Append(core.NewToolMessage(call.ID, call.Name, encodeResult(call.Name, nil,
				tool.NewToolError(call.Name, "tool is not available in this context", "UNKNOWN_TOOL"))))

			continue
		}

		toolCtx := core.NewToolContext(ctx, call.ID, st, a.Scope(), snk.emit, e.logger)

		result, err := e.callTool(toolCtx, a, impl, call.Args)

		if task := toolCtx.PendingHandoff(); task != nil && err == nil {
			if err := e.dispatchHandoff(ctx, task, call.Name, st, limiter, snk); err != nil {
				return err
			}

			continue
		}

		st.Append(core.NewToolMessage(call.ID, call.Name, encodeResult(call.Name, result, err)))
	}

	return nil
}

// callTool runs one tool invocation with panic recovery, so a misbehaving
// tool degrades to an error result instead of tearing down the turn.
func (e *Engine) callTool(toolCtx *core.ToolContext, a *agent.Agent, impl tool.Tool, args map[string]any) (result any, err error) {
	start := time.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = tool.NewToolError(impl.Name(), fmt.Sprintf("panic: %v", r), "EXECUTION_ERROR")
				e.logger.Error("tool panicked", "agent", a.Name(), "tool", impl.Name(), "recover", r)
			}
		}()

		if args == nil {
			args = map[string]any{}
		}

		result, err = impl.Call(toolCtx, args)
	}()

	e.logger.Info("tool executed",
		"agent", a.Name(),
		"tool", impl.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return result, err
}

// dispatchHandoff routes control to the requested sub-agent and merges the
// outcome back into the parent state. Success merges the transfer ack, the
// sub-agent's scoped instruction and task pair, and its result; failure
// merges only a tool-error message answering the original call, so the main
// model sees the failure and reacts to it.
func (e *Engine) dispatchHandoff(ctx context.Context, task *core.HandoffTask, toolName string, st *core.State, limiter *core.Limiter, snk sink) error {
	sub, ok := e.subAgents[task.Agent]
	if !ok {
		e.logger.Warn("handoff to unknown sub-agent", "agent", task.Agent, "call_id", task.CallID)

		st.Append(core.NewToolMessage(task.CallID, toolName, encodeResult(toolName, nil,
			tool.NewToolError(toolName, fmt.Sprintf("no sub-agent registered as %q", task.Agent), "EXECUTION_ERROR"))))

		return nil
	}

	e.logger.Info("handoff dispatched", "agent", task.Agent, "call_id", task.CallID)

	instructions, err := sub.Instructions(st)
	if err != nil {
		st.Append(core.NewToolMessage(task.CallID, toolName, encodeResult(toolName, nil,
			tool.NewToolError(toolName, fmt.Sprintf("resolve %s instructions: %s", task.Agent, err), "EXECUTION_ERROR"))))

		return nil
	}

	scope := sub.Scope()
	ack := core.NewToolMessage(task.CallID, toolName, fmt.Sprintf("Successfully transferred to %s", task.Agent))
	prompt := core.NewSystemMessage(instructions).WithScope(scope)
	assignment := core.NewHumanMessage(task.Task).WithScope(scope)

	subState := st.Clone()
	subState.Append(ack, prompt, assignment)

	run, err := e.runAgent(ctx, sub, subState, limiter, snk, false)
	if err != nil {
		if errors.Is(err, core.ErrLimitExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		e.logger.Warn("sub-agent run failed", "agent", task.Agent, "error", err)

		st.Append(core.NewToolMessage(task.CallID, toolName, encodeResult(toolName, nil,
			tool.NewToolError(toolName, fmt.Sprintf("%s failed: %s", task.Agent, err), "EXECUTION_ERROR"))))

		return nil
	}

	st.Append(ack, prompt, assignment)

	if sub.ReturnMode() == agent.ReturnFullHistory {
		st.Append(run.appended()...)
	} else {
		st.Append(run.final)
	}

	e.logger.Info("handoff completed", "agent", task.Agent, "call_id", task.CallID)

	return nil
}

// encodeResult renders a tool outcome as tool-message content. Results are
// JSON-encoded with strings passing through verbatim; errors become a
// structured payload the model can read and react to.
func encodeResult(toolName string, result any, err error) string {
	if err != nil {
		var terr *tool.ToolError
		if !errors.As(err, &terr) {
			terr = tool.NewToolError(toolName, err.Error(), "EXECUTION_ERROR")
		}

		payload := map[string]any{
			"tool":  terr.Tool,
			"error": terr.Message,
			"code":  terr.Code,
		}
		if terr.Details != nil {
			payload["details"] = terr.Details
		}

		encoded, merr := json.Marshal(payload)
		if merr != nil {
			return fmt.Sprintf(`{"error":%q}`, terr.Message)
		}

		return string(encoded)
	}

	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, merr := json.Marshal(v)
		if merr != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
