package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/sentinelmesh/logging"
)

// RunContext carries the execution scope for one agent turn. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID) and the acting agent's identity
//   - A snapshot of the history the agent should respond to
//   - Backing services (artifacts) and a logger
//
// A RunContext is created by the runner for every turn and must not be kept
// beyond the Respond call it was passed to.
type RunContext struct {
	Context          context.Context
	SessionID, RunID string
	Agent            Identity
	ArtifactStore    ArtifactStore

	history []Turn

	*turnLogger
}

// NewRunContext constructs a RunContext. The history slice is copied.
func NewRunContext(
	ctx context.Context,
	sessionID, runID string,
	agent Identity,
	history []Turn,
	artifactStore ArtifactStore,
	logger logging.Logger,
) *RunContext {
	h := make([]Turn, len(history))
	copy(h, history)
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         runID,
		Agent:         agent,
		ArtifactStore: artifactStore,
		history:       h,
		turnLogger:    newTurnLogger(logger, sessionID, runID, agent),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// History returns a copy of the turns recorded before this one.
func (rc *RunContext) History() []Turn {
	out := make([]Turn, len(rc.history))
	copy(out, rc.history)
	return out
}

// LastUserQuery returns the content of the most recent user turn.
func (rc *RunContext) LastUserQuery() (string, bool) {
	for i := len(rc.history) - 1; i >= 0; i-- {
		if rc.history[i].IsUser() {
			return rc.history[i].Content, true
		}
	}
	return "", false
}

// SaveArtifact stores bytes in the ArtifactStore under the current session.
func (rc *RunContext) SaveArtifact(id string, data []byte) error {
	if rc.ArtifactStore == nil {
		return fmt.Errorf("artifact store not configured")
	}
	return rc.ArtifactStore.Save(rc.SessionID, id, data)
}

// GetArtifact retrieves previously saved artifact bytes.
func (rc *RunContext) GetArtifact(id string) ([]byte, error) {
	if rc.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}
	return rc.ArtifactStore.Get(rc.SessionID, id)
}
