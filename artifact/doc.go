// Package artifact contains concrete implementations of core.ArtifactStore,
// the storage used for generated surveillance reports and exported data.
//
// The interface lives in the core package so agents can save artifacts
// through their RunContext without depending on a backend. A durable backend
// is provided by session/sqlite.
package artifact
