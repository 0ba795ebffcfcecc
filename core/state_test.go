package core

import "testing"

func TestState_CloneIndependence(t *testing.T) {
	s := NewState(NewHumanMessage("hello"))
	s.ConversationID = "conv-1"
	s.UserID = "user-1"

	cp := s.Clone()
	cp.Append(NewAssistantMessage("world"))
	cp.UserID = "user-2"

	if len(s.Messages) != 1 {
		t.Errorf("clone append leaked into the original: %d messages", len(s.Messages))
	}
	if s.UserID != "user-1" {
		t.Errorf("clone field write leaked into the original: %q", s.UserID)
	}
	if cp.ConversationID != "conv-1" {
		t.Errorf("clone lost context fields: %+v", cp)
	}
}

func TestState_ValidateToolPairing(t *testing.T) {
	ai := NewAssistantMessage("", ToolCall{ID: "c1", Name: "t"})
	ok := NewState(NewHumanMessage("x"), ai, NewToolMessage("c1", "t", "done"))
	if err := ok.ValidateToolPairing(); err != nil {
		t.Fatalf("paired state must validate, got %v", err)
	}

	orphan := NewState(NewToolMessage("c9", "t", "stray"))
	if err := orphan.ValidateToolPairing(); err == nil {
		t.Fatal("orphaned tool message must fail validation")
	}

	// A tool message appearing before the assistant message that issued its
	// call ID is also an orphan: ordering matters.
	reversed := NewState(NewToolMessage("c1", "t", "early"), ai)
	if err := reversed.ValidateToolPairing(); err == nil {
		t.Fatal("tool message preceding its call must fail validation")
	}
}

func TestState_LastHumanMessage(t *testing.T) {
	s := NewState(
		NewSystemMessage("sys"),
		NewHumanMessage("first"),
		NewAssistantMessage("answer"),
		NewHumanMessage("second"),
	)

	m, found := s.LastHumanMessage()
	if !found || m.Content != "second" {
		t.Fatalf("expected most recent human message, got %+v found=%v", m, found)
	}

	empty := NewState(NewSystemMessage("sys"))
	if _, found := empty.LastHumanMessage(); found {
		t.Error("state without human messages must report not found")
	}
}
