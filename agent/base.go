package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
)

// BaseAgent bundles the identity and description every agent carries. Embed
// it in concrete agent implementations and supply a Respond method to satisfy
// core.Agent.
type BaseAgent struct {
	identity    core.Identity
	description string
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(id core.Identity) BaseAgent {
	return BaseAgent{
		identity:    id,
		description: fmt.Sprintf("Agent %s", strings.ToLower(strings.ReplaceAll(string(id), "_", " "))),
	}
}

// Identity returns the agent identity.
func (b *BaseAgent) Identity() core.Identity { return b.identity }

// Description returns a description of the agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// FuncAgent turns a plain function into a core.Agent.
type FuncAgent struct {
	BaseAgent
	fn func(rc *core.RunContext) (string, error)
}

// NewFuncAgent creates an agent answering with fn.
func NewFuncAgent(id core.Identity, fn func(rc *core.RunContext) (string, error)) *FuncAgent {
	return &FuncAgent{BaseAgent: NewBaseAgent(id), fn: fn}
}

// Respond implements core.Agent.
func (f *FuncAgent) Respond(rc *core.RunContext) (string, error) {
	if err := rc.Err(); err != nil {
		return "", err
	}
	return f.fn(rc)
}
