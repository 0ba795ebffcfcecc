// Package engine implements the turn state machine at the heart of GaiaKit.
//
// One turn starts from a caller-built core.State, runs the main agent's
// message-view pipeline once, and then alternates model round trips with
// sequential tool dispatch until the model answers without tool calls:
//
//	AwaitingLLM ──► ToolCalls ──► ToolExecuting / HandoffExecuting ──┐
//	     ▲                                                           │
//	     └───────────────────────────────────────────────────────────┘
//	AwaitingLLM ──► Text ──► follow-up post-node ──► Complete ──► Done
//
// # Execution modes
//
// Stream delivers core.Event values on a channel as the turn produces them:
// answer-text deltas, per-tool progress announcements, verbatim custom
// payloads, optional follow-up suggestions, the accumulated complete message
// and the terminating done marker. Run drives the identical state machine
// silently and returns the collected Result instead; with a conversation
// store configured it additionally upserts partial progress snapshots while
// tools execute and saves the final snapshot once the answer completed. The
// two modes produce byte-identical final text for the same model behavior.
//
// # Tool dispatch and handoffs
//
// Tool calls execute sequentially in call order, each announced by a
// ProgressEvent strictly before it runs. Tool failures, panics included,
// degrade to structured error results the model can react to; they never
// fail the turn by themselves. A tool that requests a handoff routes control
// to the named sub-agent: the dispatcher clones the state, seeds the
// transfer ack and the sub-agent's scoped instruction and task, runs the
// sub-agent's own loop to completion, and merges the outcome back into the
// parent conversation. Sub-agent text never reaches the client stream;
// progress and custom events pass through.
//
// # Bounds and cancellation
//
// A shared core.Limiter counts model round trips across the main agent and
// every sub-agent, terminating runaway tool-calling loops with
// core.ErrLimitExceeded. Context cancellation is honored on every channel
// operation and between tool calls; a consumer that disconnects mid-stream
// stops the turn cooperatively.
package engine
