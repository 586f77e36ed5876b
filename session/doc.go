// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// the runner depends only on the contract.
//
// InMemoryStore keeps sessions in a process local map. A durable SQLite
// backend lives in the sqlite sub package.
package session
