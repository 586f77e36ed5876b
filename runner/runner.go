package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/sentinelmesh/artifact"
	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/flow"
	"github.com/hupe1980/sentinelmesh/internal/tracing"
	"github.com/hupe1980/sentinelmesh/logging"
	"github.com/hupe1980/sentinelmesh/session"
)

var (
	// ErrSessionBusy is returned when a query is started on a session that is
	// still processing another one.
	ErrSessionBusy = errors.New("session is busy")
	// ErrRunNotFound is returned by Cancel for unknown or finished runs.
	ErrRunNotFound = errors.New("run not found")
	// ErrEmptyQuery is returned for blank user queries.
	ErrEmptyQuery = errors.New("query is empty")
)

// Session state keys written after every run.
const (
	StateLastRunID      = "last_run_id"
	StateLastIntent     = "last_intent"
	StateLastStopReason = "last_stop_reason"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MaxIterations caps agent turns per query.
	MaxIterations int
	// TerminalRoles are the identities whose turn always ends a query.
	TerminalRoles []core.Identity
	// CompletionPhrases end a query when found in the latest turn.
	CompletionPhrases []string
	// MaxConcurrentRuns limits runs across all sessions. Zero means unlimited.
	MaxConcurrentRuns int
	// TurnBufferSize sets channel buffering for streamed turns.
	TurnBufferSize int
	// Session management services.
	SessionStore core.SessionStore
	// Artifact management services.
	ArtifactStore core.ArtifactStore
	// Logging services.
	Logger logging.Logger
}

// Result summarizes a finished run.
type Result struct {
	RunID     string
	SessionID string
	// Turns holds the agent turns produced by this run in order.
	Turns    []core.Turn
	Intent   flow.Intent
	Pipeline []core.Identity
	Reason   flow.StopReason
}

// Final returns the last agent turn of the run.
func (r *Result) Final() (core.Turn, bool) {
	if r == nil || len(r.Turns) == 0 {
		return core.Turn{}, false
	}
	return r.Turns[len(r.Turns)-1], true
}

// conversation is the session scoped orchestration state.
type conversation struct {
	mu         sync.Mutex
	selector   *flow.Selector
	terminator *flow.Terminator
}

type run struct {
	id     string
	turns  chan core.Turn
	errs   chan error
	result Result
}

// Runner coordinates the surveillance team. Public methods are safe for
// concurrent use.
type Runner struct {
	agents core.AgentSet

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	logger        logging.Logger

	turnBufferSize int
	sem            chan struct{}
	newSelector    func() *flow.Selector
	newTerminator  func() *flow.Terminator

	conversations map[string]*conversation
	activeRuns    map[string]context.CancelFunc
	mu            sync.Mutex
}

// New constructs a Runner over agents. A registry offering Freeze is frozen
// so the agent set stays read-only while sessions run.
func New(agents core.AgentSet, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxIterations:     flow.DefaultMaxIterations,
		TerminalRoles:     flow.DefaultTerminalRoles(),
		CompletionPhrases: flow.DefaultCompletionPhrases(),
		MaxConcurrentRuns: 10,
		TurnBufferSize:    16,
		SessionStore:      session.NewInMemoryStore(),
		ArtifactStore:     artifact.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}

	if f, ok := agents.(interface{ Freeze() }); ok {
		f.Freeze()
	}

	var sem chan struct{}
	if opts.MaxConcurrentRuns > 0 {
		sem = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	logger := opts.Logger
	return &Runner{
		agents:         agents,
		sessionStore:   opts.SessionStore,
		artifactStore:  opts.ArtifactStore,
		logger:         logger,
		turnBufferSize: opts.TurnBufferSize,
		sem:            sem,
		newSelector: func() *flow.Selector {
			return flow.NewSelector(flow.WithSelectorLogger(logger))
		},
		newTerminator: func() *flow.Terminator {
			return flow.NewTerminator(
				flow.WithMaxIterations(opts.MaxIterations),
				flow.WithTerminalRoles(opts.TerminalRoles...),
				flow.WithCompletionPhrases(opts.CompletionPhrases...),
				flow.WithTerminatorLogger(logger),
			)
		},
		conversations: make(map[string]*conversation),
		activeRuns:    make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous run for a user query. Agent turns are streamed
// on the returned channel; at most one error is delivered on the error
// channel. Both channels are closed when the run ends.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	query string,
) (string, <-chan core.Turn, <-chan error, error) {
	rn, err := r.start(ctx, sessionID, query)
	if err != nil {
		return "", nil, nil, err
	}
	return rn.id, rn.turns, rn.errs, nil
}

// RunSync runs a user query to completion and returns its result.
func (r *Runner) RunSync(ctx context.Context, sessionID string, query string) (*Result, error) {
	rn, err := r.start(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	var runErr error
	turns, errs := rn.turns, rn.errs
	for turns != nil || errs != nil {
		select {
		case _, ok := <-turns:
			if !ok {
				turns = nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			runErr = err
		}
	}

	res := rn.result
	if runErr != nil {
		return &res, runErr
	}
	return &res, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	cancel()

	return nil
}

// Forget drops the orchestration state of an idle session. The session
// history in the store is left untouched.
func (r *Runner) Forget(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok {
		return nil
	}
	if !conv.mu.TryLock() {
		return fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer conv.mu.Unlock()
	delete(r.conversations, sessionID)
	return nil
}

// Agents returns the agent set the runner routes over.
func (r *Runner) Agents() core.AgentSet { return r.agents }

// SessionStore returns the session store.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// ArtifactStore returns the artifact store.
func (r *Runner) ArtifactStore() core.ArtifactStore { return r.artifactStore }

// lockConversation returns the session's conversation locked for one run.
// Lookup and TryLock both happen under r.mu, the lock Forget holds.
func (r *Runner) lockConversation(sessionID string) (*conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[sessionID]
	if !ok {
		conv = &conversation{selector: r.newSelector(), terminator: r.newTerminator()}
		r.conversations[sessionID] = conv
	}
	if !conv.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	return conv, nil
}

func (r *Runner) start(ctx context.Context, sessionID, query string) (*run, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	conv, err := r.lockConversation(sessionID)
	if err != nil {
		return nil, err
	}

	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		conv.mu.Unlock()
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	history := sess.Turns()
	userTurn := core.NewUserTurn(query)
	if err := r.sessionStore.AppendTurn(sessionID, userTurn); err != nil {
		conv.mu.Unlock()
		return nil, fmt.Errorf("failed to append user turn: %w", err)
	}
	history = append(history, userTurn)

	rn := &run{
		id:    core.NewID(),
		turns: make(chan core.Turn, r.turnBufferSize),
		errs:  make(chan error, 1),
		result: Result{
			SessionID: sessionID,
		},
	}
	rn.result.RunID = rn.id

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[rn.id] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, rn.id)
			r.mu.Unlock()
			conv.mu.Unlock()
			close(rn.turns)
			close(rn.errs)
		}()

		if err := r.acquire(ctx); err != nil {
			rn.errs <- err
			return
		}
		defer r.release()

		if err := r.drive(ctx, conv, rn, history); err != nil {
			rn.errs <- err
		}
	}()

	return rn, nil
}

func (r *Runner) acquire(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() {
	if r.sem != nil {
		<-r.sem
	}
}

// drive runs the selector/agent/terminator loop for one query.
func (r *Runner) drive(ctx context.Context, conv *conversation, rn *run, history []core.Turn) (err error) {
	sessionID := rn.result.SessionID

	ctx, span := tracing.StartSpan(ctx, "sentinel.run",
		tracing.StringAttr("session.id", sessionID),
		tracing.StringAttr("run.id", rn.id),
	)
	defer func() {
		span.SetAttributes(
			tracing.StringAttr("run.intent", rn.result.Intent.String()),
			tracing.StringAttr("run.stop_reason", rn.result.Reason.String()),
			tracing.IntAttr("run.turns", len(rn.result.Turns)),
		)
		if err != nil {
			tracing.RecordError(span, err)
		} else {
			tracing.SetOK(span)
		}
		span.End()
	}()

	conv.terminator.Reset()
	r.logger.Info("run.start", "session", sessionID, "run", rn.id)

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run.cancelled", "session", sessionID, "run", rn.id)
			return err
		}

		a, ok := conv.selector.Next(r.agents, history)
		rn.result.Intent = conv.selector.Intent()
		rn.result.Pipeline = conv.selector.Pipeline()
		if !ok {
			rn.result.Reason = flow.ReasonPipelineExhausted
			break
		}

		turn, err := r.respond(ctx, a, rn, history)
		if err != nil {
			return err
		}
		history = append(history, turn)
		rn.result.Turns = append(rn.result.Turns, turn)

		select {
		case rn.turns <- turn:
		case <-ctx.Done():
			return ctx.Err()
		}

		if d := conv.terminator.Evaluate(a.Identity(), history); d.Stop {
			rn.result.Reason = d.Reason
			break
		}
	}

	r.logger.Info("run.complete",
		"session", sessionID,
		"run", rn.id,
		"intent", rn.result.Intent.String(),
		"reason", rn.result.Reason.String(),
		"turns", len(rn.result.Turns),
	)

	if err := r.sessionStore.ApplyDelta(sessionID, map[string]any{
		StateLastRunID:      rn.id,
		StateLastIntent:     rn.result.Intent.String(),
		StateLastStopReason: rn.result.Reason.String(),
	}); err != nil {
		return fmt.Errorf("failed to apply state delta: %w", err)
	}
	return nil
}

// respond invokes one agent and persists its turn.
func (r *Runner) respond(ctx context.Context, a core.Agent, rn *run, history []core.Turn) (core.Turn, error) {
	id := a.Identity()
	ctx, span := tracing.StartSpan(ctx, "sentinel.turn", tracing.StringAttr("agent", id.String()))
	defer span.End()

	rc := core.NewRunContext(ctx, rn.result.SessionID, rn.id, id, history, r.artifactStore, r.logger)
	rc.LogDebug("turn.start")

	text, err := a.Respond(rc)
	if err != nil {
		tracing.RecordError(span, err)
		r.logger.Error("turn.failed", "agent", id, "run", rn.id, "error", err.Error())
		return core.Turn{}, fmt.Errorf("agent %s failed: %w", id, err)
	}

	turn := core.NewAgentTurn(id, text)
	if err := r.sessionStore.AppendTurn(rn.result.SessionID, turn); err != nil {
		tracing.RecordError(span, err)
		return core.Turn{}, fmt.Errorf("failed to append turn: %w", err)
	}

	tracing.SetOK(span)
	rc.LogDebug("turn.complete", "chars", len(text))
	return turn, nil
}
