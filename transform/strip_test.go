package transform

import (
	"context"
	"testing"

	"github.com/hupe1980/gaiakit/core"
)

func TestSystemStripTagsInjectedContext(t *testing.T) {
	injected := core.NewSystemMessage(ContextPrefix + "Datetime: Thu, 21 Aug 2025")
	memory := core.NewSystemMessage(MemoryContextPrefix + "User prefers short answers.")

	state := core.NewState(
		injected,
		memory,
		core.NewHumanMessage("what time is it?"),
	)

	strip := NewSystemStrip()

	got, err := strip.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 3 {
		t.Fatalf("strip must tag in place, got %d messages", len(got.Messages))
	}

	marker := got.Messages[0]
	if !marker.IsRemoval() || marker.ID != injected.ID {
		t.Errorf("injected context should become a removal marker for %s, got %+v", injected.ID, marker)
	}

	if got.Messages[1].IsRemoval() {
		t.Error("memory context messages must survive the strip")
	}

	if got.Messages[2].IsRemoval() {
		t.Error("human messages must never be stripped")
	}
}

func TestSystemStripIgnoresNonSystemMessages(t *testing.T) {
	state := core.NewState(
		core.NewHumanMessage(ContextPrefix + "pasted by the user"),
		core.NewAssistantMessage(ContextPrefix + "echoed by the model"),
	)

	strip := NewSystemStrip()

	got, err := strip.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, msg := range got.Messages {
		if msg.IsRemoval() {
			t.Errorf("messages[%d] with role %s must not be stripped", i, msg.Role)
		}
	}
}

func TestSystemStripCustomPrefixes(t *testing.T) {
	subPrompt := core.NewSystemMessage("You are the Gmail agent.\nBe concise.")

	state := core.NewState(
		subPrompt,
		core.NewSystemMessage(ContextPrefix+"Datetime: now"),
	)

	strip := NewSystemStrip(func(o *SystemStripOptions) {
		o.Prefixes = append(o.Prefixes, "You are the Gmail agent.")
	})

	got, err := strip.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !got.Messages[0].IsRemoval() || !got.Messages[1].IsRemoval() {
		t.Error("both the sub-agent prompt and the injected context should be tagged")
	}
}

func TestCompactConsumesRemovalMarkers(t *testing.T) {
	injected := core.NewSystemMessage(ContextPrefix + "Datetime: then")

	state := core.NewState(
		injected,
		core.NewHumanMessage("hello"),
	)

	chain := NewChain([]Transform{NewSystemStrip(), NewCompact()})

	got, err := chain.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("compact should drop the marker and its target, got %v", contents(got.Messages))
	}
}

func TestCompactDropsMarkerWithoutTarget(t *testing.T) {
	// A marker can arrive from a persisted turn whose original message was
	// already compacted away. It must still vanish on its own.
	state := core.NewState(
		core.NewRemoval("long-gone"),
		core.NewHumanMessage("still here"),
	)

	compact := NewCompact()

	got, err := compact.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 1 || got.Messages[0].Content != "still here" {
		t.Errorf("orphan markers should be dropped, got %v", contents(got.Messages))
	}
}

func TestSystemStripIdempotent(t *testing.T) {
	state := core.NewState(
		core.NewSystemMessage(ContextPrefix + "Datetime: now"),
		core.NewHumanMessage("hi"),
	)

	strip := NewSystemStrip()

	once, err := strip.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	twice, err := strip.Apply(context.Background(), once)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	markers := 0

	for _, msg := range twice.Messages {
		if msg.IsRemoval() {
			markers++
		}
	}

	if markers != 1 {
		t.Errorf("second strip pass produced %d markers, want 1", markers)
	}
}
