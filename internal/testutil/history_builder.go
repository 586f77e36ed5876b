package testutil

import (
	"github.com/hupe1980/sentinelmesh/core"
)

// HistoryBuilder provides a fluent helper for constructing turn histories.
// Example:
//
//	h := NewHistoryBuilder().User("forecast flu").Agent(core.DataCollection, "collected").Build()
type HistoryBuilder struct {
	turns []core.Turn
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user-authored turn (chainable).
func (b *HistoryBuilder) User(content string) *HistoryBuilder {
	b.turns = append(b.turns, core.NewUserTurn(content))
	return b
}

// Agent appends an agent-authored turn (chainable).
func (b *HistoryBuilder) Agent(id core.Identity, content string) *HistoryBuilder {
	b.turns = append(b.turns, core.NewAgentTurn(id, content))
	return b
}

// Line appends a turn parsed from transcript form (chainable).
func (b *HistoryBuilder) Line(line string) *HistoryBuilder {
	b.turns = append(b.turns, core.ParseTranscript(line))
	return b
}

// Build returns a copy of the accumulated turns.
func (b *HistoryBuilder) Build() []core.Turn {
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}
