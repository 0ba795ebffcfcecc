package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/gaiakit/core"
)

type entry struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// InMemoryStore is a process-local MemoryStore keeping per-user memories in
// insertion order. Search scores by query-term overlap, so results stay
// deterministic without an embedding index. Suitable for tests and demos;
// swap in a vector-backed store for production retrieval.
//
// Safe for concurrent use; an RWMutex guards the entry map.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int
	entries map[string][]entry // userID -> stored memories
}

// NewInMemoryStore creates an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]entry)}
}

// Search scores stored memories by the fraction of query terms they contain
// and returns the best matches, newest first on ties. An empty query matches
// everything with a score of 1.0.
func (s *InMemoryStore) Search(_ context.Context, userID, query string, limit int) ([]core.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return []core.SearchResult{}, nil
	}

	terms := strings.Fields(strings.ToLower(query))

	type scored struct {
		idx   int
		score float64
	}

	matches := make([]scored, 0, len(s.entries[userID]))

	for i, stored := range s.entries[userID] {
		score := termOverlap(stored.Content, terms)
		if score > 0 {
			matches = append(matches, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].score != matches[b].score {
			return matches[a].score > matches[b].score
		}

		return matches[a].idx > matches[b].idx
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]core.SearchResult, 0, len(matches))

	for _, m := range matches {
		stored := s.entries[userID][m.idx]

		md := make(map[string]any, len(stored.Metadata))
		for k, v := range stored.Metadata {
			md[k] = v
		}

		results = append(results, core.SearchResult{ID: stored.ID, Content: stored.Content, Score: m.score, Metadata: md})
	}

	return results, nil
}

// Store appends a new memory for the user.
func (s *InMemoryStore) Store(_ context.Context, userID, content string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	s.seq++
	s.entries[userID] = append(s.entries[userID], entry{
		ID:       fmt.Sprintf("mem_%d", s.seq),
		Content:  content,
		Metadata: md,
	})

	return nil
}

// Delete removes a stored memory by id.
func (s *InMemoryStore) Delete(_ context.Context, userID, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.entries[userID]
	for i, e := range stored {
		if e.ID == memoryID {
			s.entries[userID] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("memory %s not found", memoryID)
}

// termOverlap returns the fraction of terms contained in content. No terms
// means the query was empty, which matches everything.
func termOverlap(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 1.0
	}

	lowered := strings.ToLower(content)

	matched := 0

	for _, term := range terms {
		if strings.Contains(lowered, term) {
			matched++
		}
	}

	return float64(matched) / float64(len(terms))
}
