package artifact

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// InMemoryStore is an in process ArtifactStore implementation for tests,
// examples and single process deployments. Data is copied on save and on
// retrieval so callers can never alias internal buffers.
//
// Layout: sessionID -> artifactID -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// ValidateID rejects ids that cannot be used as a download path segment.
func ValidateID(artifactID string) error {
	if strings.TrimSpace(artifactID) == "" || strings.ContainsAny(artifactID, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, artifactID)
	}
	return nil
}

// Save stores (or overwrites) the artifact bytes for the given session and id.
func (a *InMemoryStore) Save(sessionID, artifactID string, data []byte) error {
	if err := ValidateID(artifactID); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[sessionID]; !exists {
		a.artifacts[sessionID] = make(map[string][]byte)
	}
	a.artifacts[sessionID][artifactID] = slices.Clone(data)
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(sessionID, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.artifacts[sessionID][artifactID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, sessionID, artifactID)
	}
	return slices.Clone(data), nil
}

// List returns the sorted artifact ids stored for the session.
func (a *InMemoryStore) List(sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.artifacts[sessionID]))
	for id := range a.artifacts[sessionID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(sessionID, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.artifacts[sessionID]
	if _, ok := m[artifactID]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, sessionID, artifactID)
	}
	delete(m, artifactID)
	if len(m) == 0 {
		delete(a.artifacts, sessionID)
	}
	return nil
}
