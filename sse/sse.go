// Package sse encodes engine events as server-sent-event lines, the wire
// protocol conversational clients consume. Each event becomes one
// field-prefixed line pair terminated by a blank line:
//
//	data: {"response": "<delta>"}            assistant text
//	data: {"progress": {...}}                tool progress
//	data: {...}                              tool custom payload, verbatim
//	data: {"follow_up_actions": [...]}       suggestions
//	nostream: {"complete_message": "<text>"} full final text
//	data: [DONE]                             end of stream
//
// The nostream field carries the assembled final message so that clients
// which skipped delta rendering still receive the complete answer on the
// same connection.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hupe1980/gaiakit/core"
)

// PrepareHeaders sets the response headers required for incremental delivery:
// the event-stream content type, caching off, and proxy buffering off.
func PrepareHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

type responseLine struct {
	Response string `json:"response"`
}

type progressBody struct {
	Message      string `json:"message"`
	ToolName     string `json:"tool_name"`
	ToolCategory string `json:"tool_category"`
}

type progressLine struct {
	Progress progressBody `json:"progress"`
}

type suggestionsLine struct {
	FollowUpActions []string `json:"follow_up_actions"`
}

type completeLine struct {
	CompleteMessage string `json:"complete_message"`
}

type errorLine struct {
	Error string `json:"error"`
}

// Writer serializes engine events onto one SSE connection. When the
// underlying writer implements http.Flusher (an http.ResponseWriter behind
// most routers does), every line is flushed as soon as it is written.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w for event encoding.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}

	return sw
}

// WriteEvent encodes one event as its wire line. Custom payloads pass
// through verbatim; DoneEvent emits the [DONE] sentinel.
func (sw *Writer) WriteEvent(ev core.Event) error {
	switch ev := ev.(type) {
	case core.TextEvent:
		return sw.writeJSON("data", responseLine{Response: ev.Text})
	case core.ProgressEvent:
		return sw.writeJSON("data", progressLine{Progress: progressBody{
			Message:      ev.Message,
			ToolName:     ev.ToolName,
			ToolCategory: ev.ToolCategory,
		}})
	case core.CustomEvent:
		return sw.writeJSON("data", ev.Payload)
	case core.SuggestionsEvent:
		return sw.writeJSON("data", suggestionsLine{FollowUpActions: ev.Suggestions})
	case core.CompleteEvent:
		return sw.writeJSON("nostream", completeLine{CompleteMessage: ev.Message})
	case core.DoneEvent:
		return sw.writeRaw("data", "[DONE]")
	default:
		return nil
	}
}

// WriteError reports a terminal failure to the client as an error payload.
// It does not emit the [DONE] sentinel; the caller decides how to close.
func (sw *Writer) WriteError(err error) error {
	return sw.writeJSON("data", errorLine{Error: err.Error()})
}

func (sw *Writer) writeJSON(field string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", field, err)
	}

	return sw.writeRaw(field, string(data))
}

func (sw *Writer) writeRaw(field, payload string) error {
	if _, err := fmt.Fprintf(sw.w, "%s: %s\n\n", field, payload); err != nil {
		return err
	}

	if sw.flusher != nil {
		sw.flusher.Flush()
	}

	return nil
}

// Stream pumps an engine event stream onto w until the events channel
// closes, then returns the terminal error, if any. Write failures abort the
// pump early; the engine notices the consumer is gone through its context.
func Stream(w io.Writer, events <-chan core.Event, errs <-chan error) error {
	sw := NewWriter(w)

	for ev := range events {
		if err := sw.WriteEvent(ev); err != nil {
			return err
		}
	}

	return <-errs
}
