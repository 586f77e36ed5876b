// Package core provides the foundational domain types and interfaces used by
// sentinelmesh. It defines:
//
//   - Identities (the closed set of surveillance agent roles plus the user)
//   - Turns (immutable authored contributions to a conversation)
//   - Sessions (append-only turn history plus key/value state)
//   - Agents and agent sets (opaque responders looked up by identity)
//   - RunContext (the per-turn execution scope handed to an agent)
//   - Pluggable stores for sessions and artifacts
//
// Orchestration decisions (who acts next, when to stop) live in package flow;
// the driving loop lives in package runner. This package keeps only the
// contracts they share.
package core
