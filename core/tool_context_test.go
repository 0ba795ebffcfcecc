package core

import (
	"context"
	"testing"
)

func TestToolContext_EmitCustom(t *testing.T) {
	var captured []Event
	emit := func(ev Event) error {
		captured = append(captured, ev)
		return nil
	}

	state := NewState()
	state.ConversationID = "conv-1"
	state.UserID = "user-1"

	tc := NewToolContext(context.Background(), "call-1", state, MainScope(), emit, nil)

	if err := tc.EmitCustom(map[string]any{"draft_id": "d-42"}); err != nil {
		t.Fatalf("EmitCustom failed: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected one emitted event, got %d", len(captured))
	}

	custom, ok := captured[0].(CustomEvent)
	if !ok || custom.Payload["draft_id"] != "d-42" {
		t.Fatalf("unexpected event: %+v", captured[0])
	}

	if tc.ConversationID() != "conv-1" || tc.UserID() != "user-1" {
		t.Errorf("context accessors wrong: %q %q", tc.ConversationID(), tc.UserID())
	}
}

func TestToolContext_EmitCustomWithoutSink(t *testing.T) {
	tc := NewToolContext(context.Background(), "call-1", NewState(), MainScope(), nil, nil)
	if err := tc.EmitCustom(map[string]any{}); err == nil {
		t.Fatal("EmitCustom without an emit sink must error")
	}
}

func TestToolContext_EmitCustomHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tc := NewToolContext(ctx, "call-1", NewState(), MainScope(), func(Event) error { return nil }, nil)
	if err := tc.EmitCustom(map[string]any{}); err == nil {
		t.Fatal("EmitCustom after cancellation must error")
	}
}

func TestToolContext_Handoff(t *testing.T) {
	tc := NewToolContext(context.Background(), "call-7", NewState(), MainScope(), nil, nil)

	if tc.PendingHandoff() != nil {
		t.Fatal("fresh context must have no pending handoff")
	}

	tc.Handoff("gmail_agent", "archive the newsletter")

	h := tc.PendingHandoff()
	if h == nil || h.Agent != "gmail_agent" || h.CallID != "call-7" {
		t.Fatalf("unexpected handoff task: %+v", h)
	}
	if h.Task != "archive the newsletter" {
		t.Errorf("task description lost: %q", h.Task)
	}
}
