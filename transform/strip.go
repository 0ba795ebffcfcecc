package transform

import (
	"context"
	"strings"

	"github.com/hupe1980/gaiakit/core"
)

// SystemStripOptions configure SystemStrip.
type SystemStripOptions struct {
	// Prefixes are the canonical system-prompt signatures to strip. Matching
	// is a plain prefix comparison, so prompt wording can evolve behind the
	// signature without migrating stored messages.
	Prefixes []string
}

// SystemStrip replaces system messages carrying a canonical prompt signature
// with removal markers. Markers are consumed by Compact (or State.Compact at
// a merge point), keeping out-of-order merges consistent. Memory-context
// messages never match and are preserved.
type SystemStrip struct {
	prefixes []string
}

// NewSystemStrip constructs the strip transform. With no options it strips
// the injected session-context messages.
func NewSystemStrip(optFns ...func(o *SystemStripOptions)) *SystemStrip {
	opts := SystemStripOptions{
		Prefixes: []string{ContextPrefix},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SystemStrip{prefixes: opts.Prefixes}
}

// Name implements Transform.
func (t *SystemStrip) Name() string { return "system_strip" }

// Apply implements Transform.
func (t *SystemStrip) Apply(_ context.Context, state *core.State) (*core.State, error) {
	next := state.Clone()

	for i, msg := range next.Messages {
		if msg.Role != core.RoleSystem || msg.IsRemoval() {
			continue
		}

		if t.matches(msg.Content) {
			next.Messages[i] = core.NewRemoval(msg.ID)
		}
	}

	return next, nil
}

func (t *SystemStrip) matches(content string) bool {
	for _, prefix := range t.prefixes {
		if prefix != "" && strings.HasPrefix(content, prefix) {
			return true
		}
	}

	return false
}

// Compact consumes removal markers, dropping them together with any message
// they tombstone.
type Compact struct{}

// NewCompact constructs the compaction transform.
func NewCompact() *Compact { return &Compact{} }

// Name implements Transform.
func (t *Compact) Name() string { return "compact" }

// Apply implements Transform.
func (t *Compact) Apply(_ context.Context, state *core.State) (*core.State, error) {
	next := state.Clone()
	next.Compact()

	return next, nil
}
