package core

import "testing"

func TestMessage_Constructors(t *testing.T) {
	sys := NewSystemMessage("instructions")
	if sys.ID == "" || sys.Role != RoleSystem || sys.Content != "instructions" {
		t.Fatalf("NewSystemMessage did not initialize fields correctly: %+v", sys)
	}

	human := NewHumanMessage("hi")
	if human.Role != RoleHuman || human.Scope.Kind != ScopeUnattributed {
		t.Fatalf("NewHumanMessage malformed: %+v", human)
	}

	call := ToolCall{ID: "c1", Name: "send_email", Args: map[string]any{"to": "a@b.c"}}
	ai := NewAssistantMessage("", call)
	if !ai.HasToolCalls() || ai.ToolCalls[0].ID != "c1" {
		t.Fatalf("NewAssistantMessage tool calls malformed: %+v", ai)
	}

	res := NewToolMessage("c1", "send_email", "sent")
	if res.Role != RoleTool || res.ToolCallID != "c1" || res.ToolName != "send_email" {
		t.Fatalf("NewToolMessage malformed: %+v", res)
	}

	scoped := human.WithScope(SubScope("gmail_agent"))
	if scoped.Scope.Kind != ScopeSub || scoped.Scope.Agent != "gmail_agent" {
		t.Fatalf("WithScope malformed: %+v", scoped.Scope)
	}
	if human.Scope.Kind != ScopeUnattributed {
		t.Error("WithScope must not mutate the receiver")
	}
}

func TestMessage_CloneIsDeep(t *testing.T) {
	orig := NewAssistantMessage("", ToolCall{ID: "c1", Name: "t", Args: map[string]any{"k": "v"}})
	cp := orig.Clone()

	cp.ToolCalls[0].Args["k"] = "mutated"
	if orig.ToolCalls[0].Args["k"] != "v" {
		t.Errorf("Clone shares tool call args with the original")
	}

	cp.ToolCalls[0].ID = "c2"
	if orig.ToolCalls[0].ID != "c1" {
		t.Errorf("Clone shares the tool call slice with the original")
	}
}

func TestCompactMessages_ConsumesTombstones(t *testing.T) {
	keep := NewHumanMessage("keep me")
	strip := NewSystemMessage("strip me")

	out := CompactMessages([]Message{NewRemoval(strip.ID), keep, strip})
	if len(out) != 1 || out[0].ID != keep.ID {
		t.Fatalf("expected only the kept message to survive, got %+v", out)
	}

	// A tombstone naming an absent ID disappears without effect.
	out = CompactMessages([]Message{keep, NewRemoval("no-such-id")})
	if len(out) != 1 || out[0].ID != keep.ID {
		t.Fatalf("dangling tombstone must be dropped, got %+v", out)
	}

	// No tombstones: input passes through untouched.
	in := []Message{keep, strip}
	out = CompactMessages(in)
	if len(out) != 2 {
		t.Fatalf("compaction without tombstones must be identity, got %+v", out)
	}
}
