package transform

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/gaiakit/core"
)

// wordCounter makes trim arithmetic predictable in tests: one token per word
// plus one framing token per message and one reply-priming token.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func (c wordCounter) CountMessage(msg core.Message) int {
	cost := 1 + c.Count(msg.Content)
	cost += len(msg.ToolCalls)

	return cost
}

func (c wordCounter) CountMessages(msgs []core.Message) int {
	total := 1
	for _, msg := range msgs {
		total += c.CountMessage(msg)
	}

	return total
}

func (c wordCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}

	return strings.Join(words[:maxTokens], " ")
}

func TestTokenTrimIdentityUnderBudget(t *testing.T) {
	state := core.NewState(
		core.NewSystemMessage("be brief"),
		core.NewHumanMessage("hello there"),
	)

	trim := NewTokenTrim(wordCounter{}, 100)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 2 {
		t.Errorf("under-budget history must pass through, got %v", contents(got.Messages))
	}
}

func TestTokenTrimKeepsSystemDropsOldestTruncatesBoundary(t *testing.T) {
	state := core.NewState(
		core.NewSystemMessage("always answer politely"),
		core.NewHumanMessage("first question asked"),
		core.NewAssistantMessage("first answer given here"),
		core.NewHumanMessage("second question asked"),
	)

	// Costs: priming 1, system 4, oldest human 4, assistant 5, newest
	// human 4. A budget of 12 leaves room for the newest human plus two
	// words of the assistant answer.
	trim := NewTokenTrim(wordCounter{}, 12)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"always answer politely", "first answer", "second question asked"}
	if len(got.Messages) != len(want) {
		t.Fatalf("got %v, want %v", contents(got.Messages), want)
	}

	for i, content := range want {
		if got.Messages[i].Content != content {
			t.Errorf("messages[%d] = %q, want %q", i, got.Messages[i].Content, content)
		}
	}

	if cost := (wordCounter{}).CountMessages(got.Messages); cost > 12 {
		t.Errorf("trimmed history still costs %d tokens, budget 12", cost)
	}
}

func TestTokenTrimSystemSurvivesAnyBudget(t *testing.T) {
	state := core.NewState(
		core.NewSystemMessage("rule one rule two rule three"),
		core.NewHumanMessage("question"),
		core.NewAssistantMessage("answer"),
	)

	trim := NewTokenTrim(wordCounter{}, 2)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 1 || got.Messages[0].Role != core.RoleSystem {
		t.Errorf("system messages are exempt from trimming, got %v", contents(got.Messages))
	}
}

func TestTokenTrimDropsOrphanedToolResults(t *testing.T) {
	state := core.NewState(
		core.NewAssistantMessage("", core.ToolCall{ID: "c1", Name: "lookup"}),
		core.NewToolMessage("c1", "lookup", "result one"),
		core.NewHumanMessage("latest question"),
	)

	// Priming 1, assistant 2, tool result 3, human 3. Budget 7 admits the
	// human and the tool result but not the assistant that issued the call,
	// so the result must go too.
	trim := NewTokenTrim(wordCounter{}, 7)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 1 || got.Messages[0].Content != "latest question" {
		t.Fatalf("orphaned tool result should be dropped, got %v", contents(got.Messages))
	}

	if err := got.ValidateToolPairing(); err != nil {
		t.Errorf("trimmed state violates tool pairing: %v", err)
	}
}

func TestTokenTrimNeverTruncatesToolCarryingMessages(t *testing.T) {
	state := core.NewState(
		core.NewAssistantMessage("thinking about the request now", core.ToolCall{ID: "c1", Name: "lookup"}),
		core.NewToolMessage("c1", "lookup", "ok"),
		core.NewHumanMessage("next question"),
	)

	// The assistant message straddles the boundary but carries a tool
	// call, so it is dropped whole instead of truncated.
	trim := NewTokenTrim(wordCounter{}, 9)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, msg := range got.Messages {
		if msg.HasToolCalls() && msg.Content != "thinking about the request now" {
			t.Errorf("tool-carrying message was truncated: %+v", msg)
		}
	}

	if err := got.ValidateToolPairing(); err != nil {
		t.Errorf("trimmed state violates tool pairing: %v", err)
	}
}

func TestTokenTrimDisabled(t *testing.T) {
	state := core.NewState(
		core.NewHumanMessage("one two three four five six seven"),
	)

	for name, trim := range map[string]*TokenTrim{
		"zero budget": NewTokenTrim(wordCounter{}, 0),
		"nil counter": NewTokenTrim(nil, 5),
	} {
		got, err := trim.Apply(context.Background(), state)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		if len(got.Messages) != 1 || got.Messages[0].Content != state.Messages[0].Content {
			t.Errorf("%s: trimming should be disabled", name)
		}
	}
}

func TestTokenTrimRetainsRemovalMarkers(t *testing.T) {
	state := core.NewState(
		core.NewRemoval("previous-context"),
		core.NewHumanMessage("only question"),
	)

	trim := NewTokenTrim(wordCounter{}, 4)

	got, err := trim.Apply(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Messages) != 2 || !got.Messages[0].IsRemoval() {
		t.Errorf("removal markers must survive trimming, got %d messages", len(got.Messages))
	}
}
