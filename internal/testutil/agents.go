package testutil

import (
	"slices"

	"github.com/hupe1980/sentinelmesh/core"
)

// StubAgent is a core.Agent answering every turn with a fixed reply, or with
// Reply(rc) when set.
type StubAgent struct {
	ID     core.Identity
	Text   string
	Reply  func(rc *core.RunContext) (string, error)
	Called int
}

// Identity implements core.Agent.
func (a *StubAgent) Identity() core.Identity { return a.ID }

// Description implements core.Agent.
func (a *StubAgent) Description() string { return "stub " + string(a.ID) }

// Respond implements core.Agent.
func (a *StubAgent) Respond(rc *core.RunContext) (string, error) {
	a.Called++
	if a.Reply != nil {
		return a.Reply(rc)
	}
	return a.Text, nil
}

// AgentSet is a map backed core.AgentSet.
type AgentSet map[core.Identity]core.Agent

// Get implements core.AgentSet.
func (s AgentSet) Get(id core.Identity) (core.Agent, bool) {
	a, ok := s[id]
	return a, ok
}

// Identities implements core.AgentSet in canonical pipeline order.
func (s AgentSet) Identities() []core.Identity {
	var out []core.Identity
	for _, id := range core.Identities() {
		if _, ok := s[id]; ok {
			out = append(out, id)
		}
	}
	return slices.Clip(out)
}

// FullTeam returns an AgentSet with a stub for every agent identity. Each stub
// replies "<identity> done".
func FullTeam() AgentSet {
	set := AgentSet{}
	for _, id := range core.Identities() {
		set[id] = &StubAgent{ID: id, Text: string(id) + " done"}
	}
	return set
}
