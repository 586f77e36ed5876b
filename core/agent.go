package core

// Agent is an opaque, capability-typed responder. The orchestrator never looks
// inside an agent: it hands over a RunContext holding the history so far and
// records whatever text comes back as the agent's turn.
//
// Implementations must:
//   - Respect cancellation of rc.Context
//   - Return the turn body without the "NAME >" transcript marker
//   - Not mutate the history they were given
type Agent interface {
	Identity() Identity
	Description() string
	Respond(rc *RunContext) (string, error)
}

// AgentSet is the read-only view of an agent registry that orchestration
// needs: lookup by identity and enumeration of what is available.
type AgentSet interface {
	Get(id Identity) (Agent, bool)
	Identities() []Identity
}
