package core

// HandoffTask is the ephemeral transfer unit produced when the main agent
// invokes a handoff tool. It is consumed immediately by routing control to the
// target sub-agent and is never persisted independently; its effect is
// recorded as ordinary messages appended to the State.
type HandoffTask struct {
	Agent  string // target sub-agent name
	Task   string // free-text task description
	CallID string // originating tool-call id
}
