package flow

import (
	"slices"
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/logging"
)

// DefaultMaxIterations bounds the number of agent turns per query.
const DefaultMaxIterations = 10

// DefaultTerminalRoles returns the roles whose turn always ends a session.
func DefaultTerminalRoles() []core.Identity {
	return []core.Identity{core.Reporting, core.Assistant}
}

// DefaultCompletionPhrases returns the lowercase phrases that mark a finished
// task when found in the last turn.
func DefaultCompletionPhrases() []string {
	return []string{
		"report generated successfully",
		"analysis complete",
		"assessment complete",
		"📄",
		"download url",
		"report id",
	}
}

// TerminatorOptions configures a Terminator. The values are fixed once the
// Terminator is built; Reset never touches them.
type TerminatorOptions struct {
	MaxIterations     int
	TerminalRoles     []core.Identity
	CompletionPhrases []string
	Logger            logging.Logger
}

// Terminator decides after every agent turn whether the session must stop.
type Terminator struct {
	maxIterations int
	terminalRoles []core.Identity
	phrases       []string
	logger        logging.Logger

	count int
}

// NewTerminator creates a Terminator with the default cap, terminal roles and
// completion phrases unless overridden.
func NewTerminator(optFns ...func(o *TerminatorOptions)) *Terminator {
	opts := TerminatorOptions{
		MaxIterations:     DefaultMaxIterations,
		TerminalRoles:     DefaultTerminalRoles(),
		CompletionPhrases: DefaultCompletionPhrases(),
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	phrases := make([]string, 0, len(opts.CompletionPhrases))
	for _, p := range opts.CompletionPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}

	return &Terminator{
		maxIterations: opts.MaxIterations,
		terminalRoles: slices.Clone(opts.TerminalRoles),
		phrases:       phrases,
		logger:        opts.Logger,
	}
}

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) func(o *TerminatorOptions) {
	return func(o *TerminatorOptions) { o.MaxIterations = n }
}

// WithTerminalRoles overrides the terminal role set.
func WithTerminalRoles(roles ...core.Identity) func(o *TerminatorOptions) {
	return func(o *TerminatorOptions) { o.TerminalRoles = roles }
}

// WithCompletionPhrases overrides the completion phrase list.
func WithCompletionPhrases(phrases ...string) func(o *TerminatorOptions) {
	return func(o *TerminatorOptions) { o.CompletionPhrases = phrases }
}

// WithTerminatorLogger sets the logger used for stop diagnostics.
func WithTerminatorLogger(l logging.Logger) func(o *TerminatorOptions) {
	return func(o *TerminatorOptions) { o.Logger = l }
}

// Evaluate counts one agent turn and reports whether to stop and why.
// Conditions are checked in priority order: iteration cap, terminal role,
// completion phrase in the last turn.
func (t *Terminator) Evaluate(acting core.Identity, history []core.Turn) Decision {
	t.count++

	if t.count >= t.maxIterations {
		t.logger.Warn("iteration cap reached", "count", t.count, "max", t.maxIterations)
		return Decision{Stop: true, Reason: ReasonMaxIterations}
	}

	if slices.Contains(t.terminalRoles, acting) {
		t.logger.Debug("terminal role responded", "agent", acting)
		return Decision{Stop: true, Reason: ReasonTerminalRole}
	}

	if len(history) > 0 {
		content := strings.ToLower(history[len(history)-1].Content)
		for _, p := range t.phrases {
			if strings.Contains(content, p) {
				t.logger.Debug("completion phrase detected", "agent", acting, "phrase", p)
				return Decision{Stop: true, Reason: ReasonCompletionPhrase}
			}
		}
	}

	return Decision{Reason: ReasonNone}
}

// ShouldTerminate is Evaluate reduced to the stop flag.
func (t *Terminator) ShouldTerminate(acting core.Identity, history []core.Turn) bool {
	return t.Evaluate(acting, history).Stop
}

// Count returns the number of evaluations since the last reset.
func (t *Terminator) Count() int { return t.count }

// MaxIterations returns the configured cap.
func (t *Terminator) MaxIterations() int { return t.maxIterations }

// Reset zeroes the counter. Configuration is left untouched.
func (t *Terminator) Reset() { t.count = 0 }
