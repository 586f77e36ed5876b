// Package sentinelmesh provides a high-level façade over the surveillance
// runner and its services (sessions, artifacts, logging, tracing). Most
// applications interact with this package by:
//  1. Creating a SentinelMesh via New() or NewFromConfig()
//  2. Registering the role agents (or using the configured surveillance team)
//  3. Asking questions synchronously (Ask) or as a turn stream (AskStream)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing.
package sentinelmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/sentinelmesh/agent"
	"github.com/hupe1980/sentinelmesh/artifact"
	"github.com/hupe1980/sentinelmesh/config"
	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/flow"
	"github.com/hupe1980/sentinelmesh/internal/tracing"
	"github.com/hupe1980/sentinelmesh/logging"
	"github.com/hupe1980/sentinelmesh/model"
	"github.com/hupe1980/sentinelmesh/model/anthropic"
	"github.com/hupe1980/sentinelmesh/model/openai"
	"github.com/hupe1980/sentinelmesh/runner"
	"github.com/hupe1980/sentinelmesh/session"
	"github.com/hupe1980/sentinelmesh/session/sqlite"
)

// Options configures the SentinelMesh instance.
type Options struct {
	// MaxIterations caps agent turns per query.
	MaxIterations int
	// TerminalRoles are the roles whose turn ends a query.
	TerminalRoles []core.Identity
	// CompletionPhrases end a query when the latest turn contains one.
	CompletionPhrases []string

	// MaxConcurrentRuns limits runs across all sessions. This provides
	// backpressure when many sessions ask at once. Set to 0 for unlimited.
	MaxConcurrentRuns int

	// TurnBufferSize sets the channel buffer size for streamed turns.
	TurnBufferSize int

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// SentinelMesh is the high-level façade aggregating the agent registry, the
// runner and the backing services.
type SentinelMesh struct {
	opts     Options
	registry *agent.Registry

	once   sync.Once
	runner *runner.Runner

	closers []func(context.Context) error
}

// New creates a new SentinelMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *SentinelMesh {
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

	// An empty registry never fails to build.
	reg, _ := agent.NewRegistry()

	return &SentinelMesh{opts: opts, registry: reg}
}

// NewFromConfig wires logging, tracing, the model provider, the stores and
// the surveillance team from cfg. Close releases everything it opened.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*SentinelMesh, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var closers []func(context.Context) error
	fail := func(err error) (*SentinelMesh, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](ctx)
		}
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Config{
		Level:     cfg.Logger.Level,
		Format:    cfg.Logger.Format,
		Output:    cfg.Logger.Output,
		Component: "sentinelmesh",
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, func(context.Context) error { return closeLog() })

	shutdown, err := tracing.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fail(fmt.Errorf("setup tracing: %w", err))
	}
	closers = append(closers, shutdown)

	terminal, err := cfg.TerminalIdentities()
	if err != nil {
		return fail(err)
	}

	opts := []func(o *Options){func(o *Options) {
		o.MaxIterations = cfg.Orchestration.MaxIterations
		o.TerminalRoles = terminal
		o.CompletionPhrases = cfg.Orchestration.CompletionPhrases
		o.MaxConcurrentRuns = cfg.Orchestration.MaxConcurrentRuns
		o.Logger = logger
	}}

	if cfg.Store.Driver == "sqlite" {
		store, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func(context.Context) error { return store.Close() })
		opts = append(opts, func(o *Options) {
			o.SessionStore = store
			o.ArtifactStore = store.Artifacts()
		})
	}

	llm := NewModel(cfg.Model)

	team, err := agent.NewSurveillanceTeam(llm, func(o *agent.TeamOptions) {
		o.PredictionHorizonWeeks = cfg.Surveillance.PredictionHorizonWeeks
		o.AnomalyThreshold = cfg.Surveillance.AnomalyThreshold
		o.HighRiskThreshold = cfg.Surveillance.HighRiskThreshold
		o.MediumRiskThreshold = cfg.Surveillance.MediumRiskThreshold
		o.LowRiskThreshold = cfg.Surveillance.LowRiskThreshold
		o.ReportBaseURL = cfg.Reports.BaseURL
		o.EnableStreaming = cfg.Model.Stream
	})
	if err != nil {
		return fail(err)
	}

	m := New(append(opts, optFns...)...)
	m.registry = team
	m.closers = closers

	info := llm.Info()
	logger.Info("sentinelmesh.ready",
		"provider", info.Provider,
		"model", info.Name,
		"store", cfg.Store.Driver,
		"agents", team.Len(),
	)

	return m, nil
}

// NewModel builds the model.Model selected by cfg.Provider. Unknown providers
// fall back to the offline mock model.
func NewModel(cfg config.ModelConfig) model.Model {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	default:
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock")
	}
}

// RegisterAgent adds an agent to the registry. Agents can only be registered
// before the first question is asked.
func (m *SentinelMesh) RegisterAgent(a core.Agent) error { return m.registry.Register(a) }

// Agents returns the registered agent set.
func (m *SentinelMesh) Agents() *agent.Registry { return m.registry }

// Runner returns the underlying runner, building it on first use. From then
// on the agent registry is frozen.
func (m *SentinelMesh) Runner() *runner.Runner {
	m.once.Do(func() {
		m.runner = runner.New(m.registry, func(o *runner.Options) {
			o.MaxIterations = m.opts.MaxIterations
			o.TerminalRoles = m.opts.TerminalRoles
			o.CompletionPhrases = m.opts.CompletionPhrases
			o.MaxConcurrentRuns = m.opts.MaxConcurrentRuns
			o.TurnBufferSize = m.opts.TurnBufferSize
			o.SessionStore = m.opts.SessionStore
			o.ArtifactStore = m.opts.ArtifactStore
			o.Logger = m.opts.Logger
		})
	})
	return m.runner
}

// Ask runs a user query to completion and returns the produced turns.
func (m *SentinelMesh) Ask(ctx context.Context, sessionID, query string) (*runner.Result, error) {
	return m.Runner().RunSync(ctx, sessionID, query)
}

// AskStream starts a query and streams agent turns as they are produced.
func (m *SentinelMesh) AskStream(
	ctx context.Context,
	sessionID string,
	query string,
) (string, <-chan core.Turn, <-chan error, error) {
	return m.Runner().Run(ctx, sessionID, query)
}

// Cancel cancels a running query by run ID.
func (m *SentinelMesh) Cancel(runID string) error { return m.Runner().Cancel(runID) }

// History returns the full turn history of a session.
func (m *SentinelMesh) History(sessionID string) ([]core.Turn, error) {
	sess, err := m.Runner().SessionStore().Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Turns(), nil
}

// Artifact returns a stored artifact such as a generated report.
func (m *SentinelMesh) Artifact(sessionID, artifactID string) ([]byte, error) {
	return m.Runner().ArtifactStore().Get(sessionID, artifactID)
}

// Close releases resources opened by NewFromConfig in reverse order.
func (m *SentinelMesh) Close(ctx context.Context) error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
