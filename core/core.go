package core

import "github.com/hupe1980/sentinelmesh/logging"

// turnLogger binds the identifiers of one agent turn to every log line so
// agents only pass the fields specific to their message. A nil logger is
// replaced by a NoOpLogger.
type turnLogger struct {
	logger logging.Logger
	attrs  []any
}

func newTurnLogger(l logging.Logger, sessionID, runID string, agent Identity) *turnLogger {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &turnLogger{
		logger: l,
		attrs:  []any{"session", sessionID, "run", runID, "agent", agent.String()},
	}
}

// Logger returns the underlying logger without the bound turn fields.
func (l *turnLogger) Logger() logging.Logger { return l.logger }

func (l *turnLogger) with(args []any) []any {
	out := make([]any, 0, len(l.attrs)+len(args))
	out = append(out, l.attrs...)
	return append(out, args...)
}

// LogDebug logs a debug message.
func (l *turnLogger) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs an info message.
func (l *turnLogger) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs a warning message.
func (l *turnLogger) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs an error message.
func (l *turnLogger) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
