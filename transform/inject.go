package transform

import (
	"context"
	"time"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/internal/util"
	"github.com/hupe1980/gaiakit/logging"
)

// ContextPrefix is the canonical signature of injected session-context
// system messages. SystemStrip matches this prefix, so a fresh context block
// each turn never piles up on top of last turn's copy.
const ContextPrefix = "Session context:\n"

// MemoryContextPrefix marks recalled-memory system messages. It deliberately
// does not share ContextPrefix, so stripping leaves memory context in place.
const MemoryContextPrefix = "Relevant memory context:\n"

// DefaultContextTemplate renders the session context block.
const DefaultContextTemplate = `Current datetime: {{.Datetime}}
User: {{.UserName | default "anonymous"}}
Preferences: {{.Preferences | default "none"}}`

// SystemInjectOptions configure SystemInject.
type SystemInjectOptions struct {
	// Template is rendered with datetime, user name and preference fields.
	Template string
	// Recaller, when set, contributes a memory-context system message for
	// the latest human message. Recall is best-effort: failures are logged
	// and skipped.
	Recaller core.Recaller
	// Scope tags the injected messages. The default unattributed scope makes
	// them visible to agents that allow unattributed messages.
	Scope core.AgentScope
	// Clock supplies the current time when the state carries none.
	Clock func() time.Time

	Logger logging.Logger
}

// SystemInject prepends the per-turn session context system message, plus a
// memory-context message when a relevant memory exists. It always runs first,
// once per turn.
type SystemInject struct {
	template string
	recaller core.Recaller
	scope    core.AgentScope
	clock    func() time.Time
	logger   logging.Logger
}

// NewSystemInject constructs the injection transform.
func NewSystemInject(optFns ...func(o *SystemInjectOptions)) *SystemInject {
	opts := SystemInjectOptions{
		Template: DefaultContextTemplate,
		Scope:    core.Unattributed(),
		Clock:    time.Now,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SystemInject{
		template: opts.Template,
		recaller: opts.Recaller,
		scope:    opts.Scope,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Name implements Transform.
func (t *SystemInject) Name() string { return "system_inject" }

// Apply implements Transform.
func (t *SystemInject) Apply(ctx context.Context, state *core.State) (*core.State, error) {
	next := state.Clone()

	datetime := next.Datetime
	if datetime.IsZero() {
		datetime = t.clock()
	}

	rendered, err := util.RenderTemplate(t.template, map[string]any{
		"Datetime":    datetime.Format(time.RFC1123),
		"UserName":    next.UserName,
		"Preferences": next.Preferences,
	})
	if err != nil {
		return nil, err
	}

	injected := []core.Message{
		core.NewSystemMessage(ContextPrefix + rendered).WithScope(t.scope),
	}

	if memory := t.recall(ctx, next); memory != "" {
		injected = append(injected, core.NewSystemMessage(MemoryContextPrefix+memory).WithScope(t.scope))
	}

	next.Messages = append(injected, next.Messages...)

	return next, nil
}

// recall fetches memory context for the latest human message, best-effort.
func (t *SystemInject) recall(ctx context.Context, state *core.State) string {
	if t.recaller == nil {
		return ""
	}

	last, ok := state.LastHumanMessage()
	if !ok || last.Content == "" {
		return ""
	}

	memory, err := t.recaller.Recall(ctx, state.UserID, last.Content)
	if err != nil {
		t.logger.Warn("memory recall failed, continuing without memory context", "error", err)
		return ""
	}

	return memory
}
