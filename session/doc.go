// Package session holds concrete implementations of core.ConversationStore.
// The interface itself (and the Progress snapshot) is defined in core along
// with the rest of the domain contracts, so agents and the engine never
// import a concrete storage backend.
//
// Add additional backends (Redis, Postgres, Firestore, etc.) in sub-packages
// without changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package session
