package config

import (
	"fmt"
	"strings"

	"github.com/hupe1980/sentinelmesh/core"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateOrchestration(cfg, ve)
	validateModel(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateStore(cfg, ve)
	validateSurveillance(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateOrchestration(cfg *Config, ve *ValidationError) {
	o := cfg.Orchestration
	if o.MaxIterations <= 0 {
		ve.Add("orchestration.max_iterations must be > 0")
	}
	if o.MaxConcurrentRuns < 0 {
		ve.Add("orchestration.max_concurrent_runs must be >= 0")
	}
	for _, r := range o.TerminalRoles {
		if _, ok := core.ParseIdentity(strings.TrimSpace(r)); !ok {
			ve.Add("orchestration.terminal_roles: unknown agent %q", r)
		}
	}
	for _, p := range o.CompletionPhrases {
		if strings.TrimSpace(p) == "" {
			ve.Add("orchestration.completion_phrases must not contain empty phrases")
			break
		}
	}
}

func validateModel(cfg *Config, ve *ValidationError) {
	switch cfg.Model.Provider {
	case "mock", "openai", "anthropic":
	default:
		ve.Add("model.provider %q is not one of mock, openai, anthropic", cfg.Model.Provider)
	}
	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > 2 {
		ve.Add("model.temperature must be within [0, 2]")
	}
	if cfg.Model.MaxTokens <= 0 {
		ve.Add("model.max_tokens must be > 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "json", "text":
	default:
		ve.Add("logger.format %q is not one of json, text", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not one of stdout, noop", cfg.Tracer.Exporter)
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			ve.Add("store.path is required for the sqlite driver")
		}
	default:
		ve.Add("store.driver %q is not one of memory, sqlite", cfg.Store.Driver)
	}
}

func validateSurveillance(cfg *Config, ve *ValidationError) {
	s := cfg.Surveillance
	if s.PredictionHorizonWeeks <= 0 {
		ve.Add("surveillance.prediction_horizon_weeks must be > 0")
	}
	thresholds := []struct {
		name  string
		value float64
	}{
		{"anomaly_threshold", s.AnomalyThreshold},
		{"high_risk_threshold", s.HighRiskThreshold},
		{"medium_risk_threshold", s.MediumRiskThreshold},
		{"low_risk_threshold", s.LowRiskThreshold},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 1 {
			ve.Add("surveillance.%s must be within [0, 1]", th.name)
		}
	}
	if !(s.LowRiskThreshold <= s.MediumRiskThreshold && s.MediumRiskThreshold <= s.HighRiskThreshold) {
		ve.Add("surveillance risk thresholds must satisfy low <= medium <= high")
	}
}
