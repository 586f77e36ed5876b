// Package agent contains the concrete agents of the surveillance team and
// the registry the orchestrator routes over.
//
// The package focuses on four concerns:
//
//  1. Identity plumbing (BaseAgent) and the frozen agent Registry
//  2. The model backed role agent (ModelAgent) with static or dynamic
//     instructions
//  3. The reporting decorator that persists reports as artifacts
//     (ReportingAgent)
//  4. Assembly of the full surveillance team (NewSurveillanceTeam)
//
// Agents are opaque to the orchestrator: they receive a *core.RunContext and
// return the text of their turn.
package agent
