// Package flow implements the turn-based orchestration strategies of
// sentinelmesh:
//
//   - Selector decides which agent acts next, classifying each new user query
//     into a pipeline of agent identities and walking that pipeline as agents
//     respond.
//   - Terminator decides after every agent turn whether the collaborative
//     session must stop (iteration cap, terminal role, completion phrase).
//
// Both strategies only read the shared, append-only turn history; they never
// call each other. A driver (see package runner) invokes them alternately.
// Each session owns its own Selector and Terminator; neither is safe for
// concurrent use.
package flow

// StopReason explains why a session stopped (or that it continues).
type StopReason int

const (
	// ReasonNone means the session continues.
	ReasonNone StopReason = iota
	// ReasonMaxIterations means the turn counter reached the configured cap.
	ReasonMaxIterations
	// ReasonTerminalRole means a terminal role (reporting, assistant) spoke.
	ReasonTerminalRole
	// ReasonCompletionPhrase means the last turn contained a completion phrase.
	ReasonCompletionPhrase
	// ReasonPipelineExhausted means the selector had no next agent: the
	// pipeline ran out, was never set, or named an agent that is unavailable.
	ReasonPipelineExhausted
)

// String returns a stable, log friendly name.
func (r StopReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMaxIterations:
		return "max_iterations"
	case ReasonTerminalRole:
		return "terminal_role"
	case ReasonCompletionPhrase:
		return "completion_phrase"
	case ReasonPipelineExhausted:
		return "pipeline_exhausted"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one Terminator evaluation.
type Decision struct {
	Stop   bool
	Reason StopReason
}
