package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/gaiakit/core"
)

type record struct {
	userID   string
	progress core.Progress
}

// InMemoryStore is a volatile ConversationStore keeping the latest progress
// snapshot per conversation in a process-local map. It is safe for concurrent
// access and best suited for tests or ephemeral demo servers. Snapshots are
// cloned on read and write so callers never share tool-data maps with the
// store.
//
// UpsertProgress is idempotent last-write-wins: replaying the same snapshot
// leaves the observable state unchanged.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]record
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]record)}
}

// UpsertProgress implements core.ConversationStore.
func (s *InMemoryStore) UpsertProgress(_ context.Context, conversationID, userID string, message string, toolData map[string]any) error {
	s.put(conversationID, userID, message, toolData, false)
	return nil
}

// SaveFinal implements core.ConversationStore.
func (s *InMemoryStore) SaveFinal(_ context.Context, conversationID, userID string, message string, toolData map[string]any) error {
	s.put(conversationID, userID, message, toolData, true)
	return nil
}

// Progress returns a clone of the latest snapshot for the conversation, if
// one exists. Pollers use it to observe partial results of a running turn.
func (s *InMemoryStore) Progress(conversationID string) (core.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[conversationID]
	if !ok {
		return core.Progress{}, false
	}

	snapshot := rec.progress
	snapshot.ToolData = cloneToolData(snapshot.ToolData)

	return snapshot, true
}

// UserID returns the user a conversation belongs to, if known.
func (s *InMemoryStore) UserID(conversationID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[conversationID]
	if !ok {
		return "", false
	}

	return rec.userID, true
}

func (s *InMemoryStore) put(conversationID, userID, message string, toolData map[string]any, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[conversationID] = record{
		userID: userID,
		progress: core.Progress{
			Message:   message,
			ToolData:  cloneToolData(toolData),
			Final:     final,
			UpdatedAt: time.Now(),
		},
	}
}

func cloneToolData(toolData map[string]any) map[string]any {
	if toolData == nil {
		return nil
	}

	cloned := make(map[string]any, len(toolData))
	for k, v := range toolData {
		cloned[k] = v
	}

	return cloned
}
