package agent

import (
	"maps"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string, a template
// rendered per turn, or a dynamic provider.
type Instruction struct {
	text     string
	vars     map[string]any
	template bool
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromTemplate creates an Instruction rendered with Go template
// syntax on every turn. Besides vars the template sees "query" (the latest
// user query), "session_id" and "agent".
func NewInstructionFromTemplate(text string, vars map[string]any) Instruction {
	return Instruction{text: text, vars: maps.Clone(vars), template: true}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil && !i.template }

// Resolve returns the instruction text, invoking the provider or rendering
// the template if needed.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	if !i.template {
		return i.text, nil
	}

	data := make(map[string]any, len(i.vars)+3)
	maps.Copy(data, i.vars)
	if rc != nil {
		query, _ := rc.LastUserQuery()
		data["query"] = query
		data["session_id"] = rc.SessionID
		data["agent"] = rc.Agent.String()
	}
	return util.RenderTemplate(i.text, data)
}
