package core

// Event represents one unit of output produced while a turn executes.
// Concrete event types implement the unexported isEvent marker enabling a
// closed set; consumers switch over the concrete types.
//
// Ordering guarantees within one turn: a ProgressEvent for a tool call is
// emitted strictly before that call's result is available, and the
// CompleteEvent is emitted strictly after every other event except DoneEvent,
// which terminates the stream.
type Event interface{ isEvent() }

// TextEvent carries one incremental answer-text delta from the top-level
// agent. Sub-agent deltas are suppressed before events reach consumers.
type TextEvent struct {
	Text string `json:"response"`
}

// isEvent implements the Event interface for TextEvent.
func (TextEvent) isEvent() {}

// ProgressEvent announces that a tool call is about to execute.
type ProgressEvent struct {
	Message      string `json:"message"`
	ToolName     string `json:"tool_name"`
	ToolCategory string `json:"tool_category"`
}

// isEvent implements the Event interface for ProgressEvent.
func (ProgressEvent) isEvent() {}

// CustomEvent carries an arbitrary structured payload emitted by a tool hook
// (e.g. "created draft X"). Payloads are forwarded verbatim to consumers.
type CustomEvent struct {
	Payload map[string]any `json:"payload"`
}

// isEvent implements the Event interface for CustomEvent.
func (CustomEvent) isEvent() {}

// SuggestionsEvent carries follow-up actions proposed after the answer
// completed. Best effort; a turn may finish without one.
type SuggestionsEvent struct {
	Suggestions []string `json:"follow_up_actions"`
}

// isEvent implements the Event interface for SuggestionsEvent.
func (SuggestionsEvent) isEvent() {}

// CompleteEvent carries the fully accumulated answer text for persistence.
// It is an out-of-band marker, not display content.
type CompleteEvent struct {
	Message string `json:"complete_message"`
}

// isEvent implements the Event interface for CompleteEvent.
func (CompleteEvent) isEvent() {}

// DoneEvent terminates the stream for one turn.
type DoneEvent struct{}

// isEvent implements the Event interface for DoneEvent.
func (DoneEvent) isEvent() {}
