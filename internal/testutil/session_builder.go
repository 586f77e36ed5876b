package testutil

import (
	"github.com/hupe1980/sentinelmesh/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").State("k", "v").Turns(t1, t2).Build()
type SessionBuilder struct {
	id    string
	state map[string]any
	turns []core.Turn
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// State sets or overwrites a state key/value pair (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Turns appends turns to the session history (chainable).
func (b *SessionBuilder) Turns(ts ...core.Turn) *SessionBuilder {
	b.turns = append(b.turns, ts...)
	return b
}

// Build returns a *core.Session with pre-populated state and turns.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	s.ApplyStateDelta(b.state)
	for _, t := range b.turns {
		s.AddTurn(t)
	}
	return s
}
