package core

// ScopeKind discriminates the closed set of message attributions. The zero
// value is ScopeUnattributed so that messages constructed without explicit
// scoping (plain user input, external history) are unattributed by default.
type ScopeKind string

const (
	// ScopeUnattributed marks a message carrying no agent attribution.
	ScopeUnattributed ScopeKind = ""
	// ScopeMain marks a message authored by or addressed to the main agent.
	ScopeMain ScopeKind = "main"
	// ScopeSub marks a message belonging to a named sub-agent's delegated
	// conversation.
	ScopeSub ScopeKind = "sub"
)

// AgentScope is a typed attribution tag attached to every Message. It replaces
// free-text author names as the routing key for per-agent visibility, so that
// filtering is a total match over a closed set instead of string comparison.
type AgentScope struct {
	Kind  ScopeKind `json:"kind"`
	Agent string    `json:"agent,omitempty"` // sub-agent name, set iff Kind == ScopeSub
}

// Unattributed returns the scope of a message with no agent attribution.
func Unattributed() AgentScope { return AgentScope{} }

// MainScope returns the scope of the main agent.
func MainScope() AgentScope { return AgentScope{Kind: ScopeMain} }

// SubScope returns the scope of the named sub-agent.
func SubScope(agent string) AgentScope { return AgentScope{Kind: ScopeSub, Agent: agent} }

// IsUnattributed reports whether the scope carries no attribution.
func (s AgentScope) IsUnattributed() bool { return s.Kind == ScopeUnattributed }

// Matches reports whether two scopes denote the same attribution.
func (s AgentScope) Matches(other AgentScope) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind == ScopeSub {
		return s.Agent == other.Agent
	}
	return true
}

// VisibleTo decides whether a message carrying this scope belongs in the view
// of the target agent. Unattributed messages are admitted only when the target
// enables the bypass. The switch covers every ScopeKind; an unknown kind is
// never visible.
func (s AgentScope) VisibleTo(target AgentScope, allowUnattributed bool) bool {
	switch s.Kind {
	case ScopeUnattributed:
		return allowUnattributed
	case ScopeMain:
		return target.Kind == ScopeMain
	case ScopeSub:
		return target.Kind == ScopeSub && s.Agent == target.Agent
	default:
		return false
	}
}

// String renders the scope for logging.
func (s AgentScope) String() string {
	switch s.Kind {
	case ScopeMain:
		return "main"
	case ScopeSub:
		return "sub:" + s.Agent
	default:
		return "unattributed"
	}
}
