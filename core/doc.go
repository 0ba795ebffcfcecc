// Package core provides the foundational domain types used by GaiaKit. It
// defines the core abstractions for:
//
//   - Messages (role-based conversational records with scope attribution)
//   - AgentScope (typed attribution replacing free-text author names)
//   - State (the per-turn conversational unit threaded through execution)
//   - Stream events (text deltas, tool progress, custom payloads, sentinels)
//   - HandoffTask (the ephemeral transfer unit for sub-agent dispatch)
//   - ToolContext (scoped execution surface handed to tool implementations)
//   - Pluggable stores for conversation progress and memory recall/search
//
// Implementation concerns stay out of this package: persistence, engine
// orchestration and concrete agents live in their own packages and depend on
// the small interfaces defined here, so custom backends can be swapped in
// without touching the domain types.
package core
