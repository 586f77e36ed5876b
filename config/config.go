// Package config loads sentinelmesh configuration from a YAML file with
// SENTINEL_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/sentinelmesh/core"
	"github.com/hupe1980/sentinelmesh/flow"
)

// Config is the top-level application configuration.
type Config struct {
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Model         ModelConfig         `yaml:"model"`
	Logger        LoggerConfig        `yaml:"logger"`
	Tracer        TracerConfig        `yaml:"tracer"`
	Store         StoreConfig         `yaml:"store"`
	Reports       ReportsConfig       `yaml:"reports"`
	Surveillance  SurveillanceConfig  `yaml:"surveillance"`
}

// OrchestrationConfig configures the selector/terminator loop.
type OrchestrationConfig struct {
	MaxIterations     int      `yaml:"max_iterations"`
	TerminalRoles     []string `yaml:"terminal_roles"`
	CompletionPhrases []string `yaml:"completion_phrases"`
	MaxConcurrentRuns int      `yaml:"max_concurrent_runs"`
}

// ModelConfig selects and tunes the language model backing the team.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // mock, openai, anthropic
	Name        string  `yaml:"name"`     // empty selects the provider default
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Stream      bool    `yaml:"stream"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// StoreConfig selects the session and artifact backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// ReportsConfig configures generated report links.
type ReportsConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SurveillanceConfig carries the domain thresholds handed to the role agents.
type SurveillanceConfig struct {
	PredictionHorizonWeeks int     `yaml:"prediction_horizon_weeks"`
	AnomalyThreshold       float64 `yaml:"anomaly_threshold"`
	HighRiskThreshold      float64 `yaml:"high_risk_threshold"`
	MediumRiskThreshold    float64 `yaml:"medium_risk_threshold"`
	LowRiskThreshold       float64 `yaml:"low_risk_threshold"`
}

// Defaults returns a configuration that runs fully offline with the mock model.
func Defaults() *Config {
	roles := flow.DefaultTerminalRoles()
	terminal := make([]string, len(roles))
	for i, r := range roles {
		terminal[i] = r.String()
	}

	return &Config{
		Orchestration: OrchestrationConfig{
			MaxIterations:     flow.DefaultMaxIterations,
			TerminalRoles:     terminal,
			CompletionPhrases: flow.DefaultCompletionPhrases(),
			MaxConcurrentRuns: 10,
		},
		Model: ModelConfig{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
		Store:  StoreConfig{Driver: "memory"},
		Reports: ReportsConfig{
			BaseURL: "/reports",
		},
		Surveillance: SurveillanceConfig{
			PredictionHorizonWeeks: 3,
			AnomalyThreshold:       0.75,
			HighRiskThreshold:      0.8,
			MediumRiskThreshold:    0.5,
			LowRiskThreshold:       0.3,
		},
	}
}

// Load reads a YAML config file, applies env var overrides and validates the
// result. A missing file yields the defaults (plus overrides).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps SENTINEL_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v, ok := envInt("SENTINEL_MAX_ITERATIONS"); ok {
		cfg.Orchestration.MaxIterations = v
	}
	if v := os.Getenv("SENTINEL_TERMINAL_ROLES"); v != "" {
		cfg.Orchestration.TerminalRoles = splitAndTrim(v, ",")
	}
	if v, ok := envInt("SENTINEL_MAX_CONCURRENT_RUNS"); ok {
		cfg.Orchestration.MaxConcurrentRuns = v
	}
	if v := os.Getenv("SENTINEL_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("SENTINEL_MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("SENTINEL_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("SENTINEL_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SENTINEL_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SENTINEL_LOG_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("SENTINEL_TRACER_ENABLED"); v != "" {
		cfg.Tracer.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SENTINEL_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("SENTINEL_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SENTINEL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SENTINEL_REPORTS_BASE_URL"); v != "" {
		cfg.Reports.BaseURL = v
	}
	if v, ok := envInt("SENTINEL_PREDICTION_HORIZON_WEEKS"); ok {
		cfg.Surveillance.PredictionHorizonWeeks = v
	}
}

// TerminalIdentities resolves the configured terminal role names.
func (c *Config) TerminalIdentities() ([]core.Identity, error) {
	out := make([]core.Identity, 0, len(c.Orchestration.TerminalRoles))
	for _, name := range c.Orchestration.TerminalRoles {
		id, ok := core.ParseIdentity(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown terminal role %q", name)
		}
		out = append(out, id)
	}
	return out, nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
