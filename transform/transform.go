// Package transform implements the message history pipeline applied around
// every agent invocation: context injection, canonical prompt stripping,
// sender-scoped filtering and token-budget trimming. Transforms are pure
// functions over ConversationState; a failing transform is logged and treated
// as the identity so a pipeline error never aborts a turn.
package transform

import (
	"context"
	"fmt"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/logging"
)

// Transform rewrites a conversation state and returns the result. Transforms
// never mutate their input; they clone and return a new state.
type Transform interface {
	// Name identifies the transform in logs.
	Name() string

	// Apply returns the transformed state.
	Apply(ctx context.Context, state *core.State) (*core.State, error)
}

// ChainOptions configure a Chain.
type ChainOptions struct {
	Logger logging.Logger
}

// Chain composes transforms in order. A transform that returns an error or
// panics is skipped: the state passes through unchanged and the failure is
// logged, never surfaced to the caller.
type Chain struct {
	transforms []Transform
	logger     logging.Logger
}

// NewChain builds a Chain over the given transforms.
func NewChain(transforms []Transform, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Chain{transforms: transforms, logger: opts.Logger}
}

// Name implements Transform.
func (c *Chain) Name() string { return "chain" }

// Apply implements Transform.
func (c *Chain) Apply(ctx context.Context, state *core.State) (*core.State, error) {
	current := state

	for _, t := range c.transforms {
		next, err := c.applyOne(ctx, t, current)
		if err != nil {
			c.logger.Warn("transform failed, passing state through", "transform", t.Name(), "error", err)
			continue
		}

		current = next
	}

	return current, nil
}

func (c *Chain) applyOne(ctx context.Context, t Transform, state *core.State) (next *core.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, fmt.Errorf("transform %s panicked: %v", t.Name(), r)
		}
	}()

	next, err = t.Apply(ctx, state)
	if err == nil && next == nil {
		err = fmt.Errorf("transform %s returned nil state", t.Name())
	}

	return next, err
}
