// Package memory contains concrete MemoryStore implementations plus the
// Recaller that folds search hits into the memory-context block injected at
// the start of a turn. The store interface and SearchResult type reside in
// the core package: depend on core.MemoryStore in your code and select an
// implementation (like the in-memory store below) at wiring time.
package memory
