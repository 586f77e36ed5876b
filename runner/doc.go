// Package runner drives the turn-based collaboration of the surveillance
// team.
//
// For every user query the Runner appends the user turn, then loops:
//
//	Selector.Next -> Agent.Respond -> append turn -> Terminator.Evaluate
//
// until the selector has no next agent or the terminator stops the session.
// Each session owns one Selector/Terminator pair; a session runs at most one
// query at a time while different sessions run in parallel.
//
// # Responsibilities (abridged)
//   - Session history persistence through core.SessionStore
//   - Run lifecycle management and cancellation
//   - Streaming turns to callers (Run) or collecting them (RunSync)
//   - Tracing and logging of runs and turns
package runner
