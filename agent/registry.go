package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/sentinelmesh/core"
)

var (
	// ErrUnknownIdentity is returned when registering an agent whose identity
	// is not one of the known agent identities.
	ErrUnknownIdentity = errors.New("unknown agent identity")
	// ErrDuplicateAgent is returned when an identity is registered twice.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("agent registry is frozen")
	// ErrNilAgent is returned when registering a nil agent.
	ErrNilAgent = errors.New("agent is nil")
)

// Registry is the agent set the orchestrator routes over. It implements
// core.AgentSet. Once frozen (the runner freezes it on first use) the set is
// read-only and can be shared by any number of concurrent sessions.
type Registry struct {
	mu     sync.RWMutex
	agents map[core.Identity]core.Agent
	frozen bool
}

// NewRegistry creates an empty registry and registers the given agents.
func NewRegistry(agents ...core.Agent) (*Registry, error) {
	r := &Registry{agents: make(map[core.Identity]core.Agent)}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an agent under its identity.
func (r *Registry) Register(a core.Agent) error {
	if a == nil {
		return ErrNilAgent
	}
	id := a.Identity()
	if !id.IsAgent() {
		return fmt.Errorf("%w: %q", ErrUnknownIdentity, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, id)
	}
	if _, exists := r.agents[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}
	r.agents[id] = a
	return nil
}

// Get implements core.AgentSet.
func (r *Registry) Get(id core.Identity) (core.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Identities implements core.AgentSet. Identities are returned in canonical
// pipeline order.
func (r *Registry) Identities() []core.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Identity, 0, len(r.agents))
	for _, id := range core.Identities() {
		if _, ok := r.agents[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Freeze makes the registry read-only. Freezing twice is a no-op.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
