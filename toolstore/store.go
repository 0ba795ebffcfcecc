// Package toolstore provides the embedding-backed semantic index used to
// retrieve relevant tools from free-text intent. Tool descriptions are
// indexed per retrieval space; spaces are hard partitions, so a query only
// ever sees tools indexed under its own space.
package toolstore

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/hupe1980/gaiakit/batch"
	"github.com/hupe1980/gaiakit/embedder"
	"github.com/hupe1980/gaiakit/logging"
	"github.com/hupe1980/gaiakit/tool"
)

// Result is one retrieval hit: a tool name with its cosine similarity score.
type Result struct {
	Name  string
	Score float32
}

// Options configure the Store.
type Options struct {
	// Logger receives index and retrieval diagnostics.
	Logger logging.Logger
	// IndexConcurrency bounds parallel embedding calls during IndexRegistry.
	IndexConcurrency int
}

// Store is an in-memory vector index over tool descriptions. It is written
// once at startup and read concurrently afterwards.
type Store struct {
	db       *chromem.DB
	embedder embedder.Embedder
	logger   logging.Logger

	indexConcurrency int

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// New creates an empty Store backed by the given embedder.
func New(emb embedder.Embedder, optFns ...func(o *Options)) *Store {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		IndexConcurrency: 8,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{
		db:               chromem.NewDB(),
		embedder:         emb,
		logger:           opts.Logger,
		indexConcurrency: opts.IndexConcurrency,
		collections:      make(map[string]*chromem.Collection),
	}
}

// collection returns the existing collection for a space, if any.
func (s *Store) collection(space string) (*chromem.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[space]

	return col, ok
}

// getOrCreateCollection returns the collection for a space, creating it on
// first use. Vectors are always pre-computed, so the embedding func installed
// on the collection must never run.
func (s *Store) getOrCreateCollection(space string) (*chromem.Collection, error) {
	if col, ok := s.collection(space); ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[space]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(space, nil, func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("embedding func called for space %q but vectors are pre-computed", space)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection for space %q: %w", space, err)
	}

	s.collections[space] = col

	return col, nil
}

// Index writes one tool into the given space. The tool name is the document
// key, so re-indexing the same name overwrites the previous entry.
func (s *Store) Index(ctx context.Context, space, toolName, description string) error {
	vector, err := s.embedder.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("failed to embed tool %q: %w", toolName, err)
	}

	return s.add(ctx, space, []chromem.Document{{
		ID:        toolName,
		Content:   description,
		Embedding: vector,
	}})
}

// indexEntry pairs one tool with its retrieval space for batch indexing.
type indexEntry struct {
	space       string
	name        string
	description string
}

// IndexRegistry indexes every registered tool, including tools of delegated
// categories, which must stay searchable even though they are never bound to
// the main agent. Embeddings are computed in parallel under a bounded gate;
// a tool whose embedding fails is skipped and logged, never aborting the
// rest of the batch.
func (s *Store) IndexRegistry(ctx context.Context, reg *tool.Registry) error {
	var entries []indexEntry

	for _, cat := range reg.Categories() {
		for _, tl := range cat.Tools() {
			entries = append(entries, indexEntry{
				space:       cat.Space,
				name:        tl.Name(),
				description: tl.Description(),
			})
		}
	}

	if len(entries) == 0 {
		return nil
	}

	vectors, errs := batch.Map(ctx, entries, s.indexConcurrency, func(ctx context.Context, e indexEntry) ([]float32, error) {
		return s.embedder.Embed(ctx, e.description)
	})

	bySpace := make(map[string][]chromem.Document)
	failed := 0

	for i, entry := range entries {
		if errs[i] != nil {
			failed++
			s.logger.Warn("tool indexing failed", "tool", entry.name, "space", entry.space, "error", errs[i])

			continue
		}

		bySpace[entry.space] = append(bySpace[entry.space], chromem.Document{
			ID:        entry.name,
			Content:   entry.description,
			Embedding: vectors[i],
		})
	}

	if failed == len(entries) {
		return fmt.Errorf("failed to index any of %d tools: %w", len(entries), batch.FirstError(errs))
	}

	for space, docs := range bySpace {
		if err := s.add(ctx, space, docs); err != nil {
			return err
		}
	}

	s.logger.Info("tool index built", "tools", len(entries)-failed, "spaces", len(bySpace), "failed", failed)

	return nil
}

func (s *Store) add(ctx context.Context, space string, docs []chromem.Document) error {
	col, err := s.getOrCreateCollection(space)
	if err != nil {
		return err
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index tools in space %q: %w", space, err)
	}

	return nil
}

// Retrieve embeds the query and returns up to limit tool names from the given
// space, ranked by cosine similarity. A space with no indexed tools yields an
// empty result. Errors (embedding failure included) are returned to the
// caller, which degrades to core tools only.
func (s *Store) Retrieve(ctx context.Context, query, space string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, nil
	}

	col, ok := s.collection(space)
	if !ok {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	if limit > count {
		limit = count
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed retrieval query: %w", err)
	}

	hits, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval in space %q failed: %w", space, err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{Name: hit.ID, Score: hit.Similarity})
	}

	return results, nil
}
