// Package agent defines the named model-backed nodes the engine drives: the
// main conversational agent and the provider specialists reached through
// handoff. The package focuses on three concerns:
//
//  1. Instruction resolution (static templates or dynamic providers)
//  2. Per-round-trip tool binding (core + retrieved + selected override)
//  3. The per-agent message-view pipeline (strip/inject for the main agent,
//     sender filtering for sub-agents, trimming and tombstone compaction)
//
// Nothing here holds global state: registries, stores and models are
// injected. Sub-agents are ordinary Agents with a restricted registry view
// and a scoped message filter, built via NewSubAgent. Execution lives in the
// engine package; an Agent only describes itself. Persistence, model
// specifics and registry internals stay in their own packages, which also
// keeps the dependency graph acyclic.
package agent
