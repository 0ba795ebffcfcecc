package core

import (
	"context"
	"time"
)

// Progress is a partial-result snapshot for one conversation, updated while a
// turn executes so that external pollers can observe progress without a live
// stream.
type Progress struct {
	Message   string         `json:"message"`
	ToolData  map[string]any `json:"tool_data,omitempty"`
	Final     bool           `json:"final"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ConversationStore is the external persistence collaborator. It owns message
// IDs and ordering; the engine only hands it partial and final snapshots.
//
// UpsertProgress must be idempotent with last-write-wins semantics: the engine
// may call it after every tool-produced custom event.
type ConversationStore interface {
	UpsertProgress(ctx context.Context, conversationID, userID string, message string, toolData map[string]any) error
	SaveFinal(ctx context.Context, conversationID, userID string, message string, toolData map[string]any) error
}
