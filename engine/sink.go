package engine

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/gaiakit/core"
	"github.com/hupe1980/gaiakit/logging"
)

// sink receives the events one turn produces. The streaming sink forwards
// them to the consumer channel; the silent sink folds them into a Result and
// keeps the conversation store's progress snapshot current.
type sink interface {
	emit(ev core.Event) error
}

// streamSink forwards events to the consumer channel, honoring cancellation
// so a disconnected consumer stops the turn instead of blocking it.
type streamSink struct {
	ctx    context.Context
	events chan<- core.Event
}

func (s *streamSink) emit(ev core.Event) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.events <- ev:
		return nil
	}
}

// silentSink accumulates the turn outcome for Run. Custom payloads merge into
// one tool-data map; progress announcements and payload merges each upsert
// the conversation's partial snapshot so pollers observe the turn without a
// live stream.
type silentSink struct {
	ctx            context.Context
	store          core.ConversationStore
	conversationID string
	userID         string
	logger         logging.Logger

	progress    string
	message     string
	toolData    map[string]any
	suggestions []string
}

func (s *silentSink) emit(ev core.Event) error {
	switch ev := ev.(type) {
	case core.ProgressEvent:
		s.progress = ev.Message
		s.upsert()

	case core.CustomEvent:
		if s.toolData == nil {
			s.toolData = make(map[string]any, len(ev.Payload))
		}

		maps.Copy(s.toolData, ev.Payload)
		s.upsert()

	case core.SuggestionsEvent:
		s.suggestions = ev.Suggestions

	case core.CompleteEvent:
		s.message = ev.Message

		if s.store != nil {
			if err := s.store.SaveFinal(s.ctx, s.conversationID, s.userID, s.message, s.toolData); err != nil {
				return fmt.Errorf("save final snapshot: %w", err)
			}
		}
	}

	return nil
}

// upsert pushes the current partial snapshot. Best effort: a failing upsert
// is logged and the turn continues.
func (s *silentSink) upsert() {
	if s.store == nil {
		return
	}

	if err := s.store.UpsertProgress(s.ctx, s.conversationID, s.userID, s.progress, s.toolData); err != nil {
		s.logger.Warn("progress upsert failed", "conversation_id", s.conversationID, "error", err)
	}
}
