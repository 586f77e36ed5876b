// Package logging provides a minimal logging interface and adapters for
// sentinelmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runner, flow strategies and agents use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - New, building a configured slog-backed Logger (level, format, output)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, closeFn, err := logging.New(logging.Config{Level: "debug", Format: "json"})
//	mesh := sentinelmesh.New(func(o *sentinelmesh.Options) { o.Logger = logger })
package logging
