package flow

import (
	"slices"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/logging"
)

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Logger logging.Logger
}

// Selector picks the next agent to act for one session.
//
// When the latest turn is user-authored the query is classified and the
// resulting pipeline replaces any previous one. When the latest turn is
// agent-authored the selector advances to the element following the author in
// the stored pipeline. Every "nothing to do" situation (empty history, no
// pipeline, author not in pipeline, pipeline exhausted, agent unavailable) is
// reported as ok == false, never as an error.
type Selector struct {
	pipeline []core.Identity
	intent   Intent
	logger   logging.Logger
}

// NewSelector creates a Selector with an empty pipeline.
func NewSelector(optFns ...func(o *SelectorOptions)) *Selector {
	opts := SelectorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Selector{intent: IntentGeneral, logger: opts.Logger}
}

// WithSelectorLogger sets the logger used for routing diagnostics.
func WithSelectorLogger(l logging.Logger) func(o *SelectorOptions) {
	return func(o *SelectorOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Next returns the agent that should act after the given history.
func (s *Selector) Next(agents core.AgentSet, history []core.Turn) (core.Agent, bool) {
	id, ok := s.NextIdentity(history)
	if !ok {
		return nil, false
	}
	if agents == nil {
		s.logger.Warn("no agent set provided", "agent", id)
		return nil, false
	}
	a, found := agents.Get(id)
	if !found {
		s.logger.Warn("selected agent not registered", "agent", id, "intent", s.intent.String())
		return nil, false
	}
	return a, true
}

// NextIdentity performs the routing decision without resolving the identity
// against an agent set. It mutates the stored pipeline only when the last turn
// is user-authored.
func (s *Selector) NextIdentity(history []core.Turn) (core.Identity, bool) {
	if len(history) == 0 {
		return "", false
	}
	last := history[len(history)-1]

	if last.IsUser() {
		s.intent = Classify(last.Content)
		s.pipeline = s.intent.Pipeline()
		s.logger.Debug("classified query", "intent", s.intent.String(), "pipeline", s.pipeline)
		return s.intent.Entry(), true
	}

	if len(s.pipeline) == 0 {
		return "", false
	}
	idx := slices.Index(s.pipeline, last.Author)
	if idx < 0 {
		s.logger.Debug("author not in pipeline", "agent", last.Author)
		return "", false
	}
	if idx+1 >= len(s.pipeline) {
		return "", false
	}
	return s.pipeline[idx+1], true
}

// Pipeline returns a copy of the stored pipeline (nil if none).
func (s *Selector) Pipeline() []core.Identity {
	if s.pipeline == nil {
		return nil
	}
	return slices.Clone(s.pipeline)
}

// Intent returns the intent of the most recently classified query.
func (s *Selector) Intent() Intent { return s.intent }

// Reset discards the stored pipeline.
func (s *Selector) Reset() {
	s.pipeline = nil
	s.intent = IntentGeneral
}
