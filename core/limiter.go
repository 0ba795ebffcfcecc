package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLimitExceeded is returned by Limiter.Increment once the configured
// ceiling on model round trips is passed. It is fatal for the turn.
var ErrLimitExceeded = errors.New("model call limit exceeded")

// Limiter enforces a maximum number of allowed model calls per turn so that
// pathological tool-calling loops terminate instead of hanging.
type Limiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewLimiter creates a limiter allowing at most max calls; max == 0 means no
// ceiling.
func NewLimiter(max int) *Limiter {
	return &Limiter{max: max}
}

// Increment increases the call counter and returns an error wrapping
// ErrLimitExceeded if the limit is exceeded.
func (l *Limiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: max %d", ErrLimitExceeded, l.max)
	}

	return nil
}

// Count reports how many calls have been made so far.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining reports how many calls are left, or -1 when unlimited.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
