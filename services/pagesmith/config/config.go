// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads pagesmith service configuration with priority
// env > file > defaults.
//
// # File Format
//
// YAML is tried first, then JSON. Durations in YAML are written as Go
// duration strings ("30s", "5m").
//
//	server:
//	  port: 12230
//	compose:
//	  beamWidth: 4
//	store:
//	  backends: [badger, sqlite, memory]
//	  badgerPath: ~/.pagesmith/sessions
//	llm:
//	  backend: ollama
//	  ollamaModel: llama3.2
//
// # Environment
//
// Every scalar key has a PAGESMITH_ variable; see loadFromEnv.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
	"github.com/AleutianAI/pagesmith/pkg/logging"
	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/sessionstore"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "PAGESMITH_"

// Store backend names.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Compose       ComposeConfig       `yaml:"compose" json:"compose"`
	Store         StoreConfig         `yaml:"store" json:"store"`
	LLM           LLMConfig           `yaml:"llm" json:"llm"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit" json:"rateLimit"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	GinMode         string        `yaml:"ginMode" json:"ginMode" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" validate:"gt=0"`
}

// ComposeConfig bounds the beam search.
type ComposeConfig struct {
	BeamWidth int `yaml:"beamWidth" json:"beamWidth" validate:"min=1,max=64"`
	MaxDepth  int `yaml:"maxDepth" json:"maxDepth" validate:"min=1,max=32"`
}

// StoreConfig selects and configures session persistence.
type StoreConfig struct {
	// Backends is the probe order; the first healthy backend wins.
	Backends []string `yaml:"backends" json:"backends" validate:"min=1,dive,oneof=badger sqlite memory"`

	BadgerPath     string `yaml:"badgerPath" json:"badgerPath"`
	BadgerInMemory bool   `yaml:"badgerInMemory" json:"badgerInMemory"`
	SQLitePath     string `yaml:"sqlitePath" json:"sqlitePath"`

	// SessionTTL is fixed at 30m in production; it is configurable for tests.
	SessionTTL    time.Duration `yaml:"sessionTTL" json:"sessionTTL" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweepInterval" json:"sweepInterval" validate:"gt=0"`
}

// LLMConfig configures the optional language-model collaborators.
type LLMConfig struct {
	Backend string `yaml:"backend" json:"backend" validate:"oneof=none openai ollama"`

	OpenAIAPIKey  string `yaml:"openaiAPIKey" json:"openaiAPIKey" validate:"required_if=Backend openai"`
	OpenAIModel   string `yaml:"openaiModel" json:"openaiModel"`
	OllamaBaseURL string `yaml:"ollamaBaseURL" json:"ollamaBaseURL" validate:"omitempty,url"`
	OllamaModel   string `yaml:"ollamaModel" json:"ollamaModel"`

	InterpreterThreshold float64       `yaml:"interpreterThreshold" json:"interpreterThreshold" validate:"gte=0,lte=1"`
	InterpreterTimeout   time.Duration `yaml:"interpreterTimeout" json:"interpreterTimeout" validate:"gt=0"`

	ContentGeneration bool          `yaml:"contentGeneration" json:"contentGeneration"`
	ContentTimeout    time.Duration `yaml:"contentTimeout" json:"contentTimeout" validate:"gt=0"`
}

// RateLimitConfig configures the per-client token bucket. Zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond" validate:"gte=0"`
	Burst             int     `yaml:"burst" json:"burst" validate:"gte=0"`
}

// AuthConfig enables static bearer tokens. With no tokens every request is
// the local user.
type AuthConfig struct {
	Tokens      []extensions.StaticToken `yaml:"tokens" json:"tokens" validate:"dive"`
	WriterRoles []string                 `yaml:"writerRoles" json:"writerRoles"`

	// AuditLog writes an audit record for every session write.
	AuditLog bool `yaml:"auditLog" json:"auditLog"`
}

// ObservabilityConfig configures logging, metrics and tracing.
type ObservabilityConfig struct {
	LogLevel string `yaml:"logLevel" json:"logLevel" validate:"oneof=debug info warn warning error"`
	LogJSON  bool   `yaml:"logJSON" json:"logJSON"`
	LogDir   string `yaml:"logDir" json:"logDir"`

	MetricsEnabled bool `yaml:"metricsEnabled" json:"metricsEnabled"`

	// OTLPEndpoint is a host:port gRPC collector. Empty disables tracing.
	OTLPEndpoint string `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	OTLPInsecure bool   `yaml:"otlpInsecure" json:"otlpInsecure"`
}

// =============================================================================
// Defaults
// =============================================================================

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            12230,
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Compose: ComposeConfig{
			BeamWidth: compose.DefaultConfig.BeamWidth,
			MaxDepth:  compose.DefaultConfig.MaxDepth,
		},
		Store: StoreConfig{
			Backends:      []string{BackendBadger, BackendSQLite, BackendMemory},
			BadgerPath:    "~/.pagesmith/sessions",
			SQLitePath:    "~/.pagesmith/sessions.db",
			SessionTTL:    sessionstore.TTL,
			SweepInterval: sessionstore.DefaultSweepInterval,
		},
		LLM: LLMConfig{
			Backend:              "none",
			OpenAIModel:          "gpt-4o-mini",
			OllamaModel:          "llama3.2",
			InterpreterThreshold: 0.7,
			InterpreterTimeout:   5 * time.Second,
			ContentTimeout:       5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Auth: AuthConfig{
			WriterRoles: []string{"editor", "admin"},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogJSON:        true,
			MetricsEnabled: true,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load loads configuration with priority: env > file > defaults.
//
// # Inputs
//
//   - path: YAML/JSON config file (optional, can be empty). A missing file
//     is not an error.
//
// # Outputs
//
//   - Config: Merged configuration.
//   - error: Non-nil if the file is unreadable or invalid, an environment
//     variable does not parse, or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadFromEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// envReader collects parse failures while applying overrides.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := r.get(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = i
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = f
	}
}

func (r *envReader) bool(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = b
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = d
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := r.get(key); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

func loadFromEnv(cfg *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	// Server
	r.int("PORT", &cfg.Server.Port)
	r.str("GIN_MODE", &cfg.Server.GinMode)
	r.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Compose
	r.int("BEAM_WIDTH", &cfg.Compose.BeamWidth)
	r.int("MAX_DEPTH", &cfg.Compose.MaxDepth)

	// Store
	r.list("STORE_BACKENDS", &cfg.Store.Backends)
	r.str("BADGER_PATH", &cfg.Store.BadgerPath)
	r.bool("BADGER_IN_MEMORY", &cfg.Store.BadgerInMemory)
	r.str("SQLITE_PATH", &cfg.Store.SQLitePath)
	r.duration("SESSION_TTL", &cfg.Store.SessionTTL)
	r.duration("SWEEP_INTERVAL", &cfg.Store.SweepInterval)

	// LLM
	r.str("LLM_BACKEND", &cfg.LLM.Backend)
	r.str("OPENAI_API_KEY", &cfg.LLM.OpenAIAPIKey)
	r.str("OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	r.str("OLLAMA_BASE_URL", &cfg.LLM.OllamaBaseURL)
	r.str("OLLAMA_MODEL", &cfg.LLM.OllamaModel)
	r.float("INTERPRETER_THRESHOLD", &cfg.LLM.InterpreterThreshold)
	r.duration("INTERPRETER_TIMEOUT", &cfg.LLM.InterpreterTimeout)
	r.bool("CONTENT_GENERATION", &cfg.LLM.ContentGeneration)
	r.duration("CONTENT_TIMEOUT", &cfg.LLM.ContentTimeout)

	// Rate limiting
	r.float("RATE_LIMIT_RPS", &cfg.RateLimit.RequestsPerSecond)
	r.int("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	// Auth
	r.bool("AUDIT_LOG", &cfg.Auth.AuditLog)

	// Observability
	r.str("LOG_LEVEL", &cfg.Observability.LogLevel)
	r.bool("LOG_JSON", &cfg.Observability.LogJSON)
	r.str("LOG_DIR", &cfg.Observability.LogDir)
	r.bool("METRICS_ENABLED", &cfg.Observability.MetricsEnabled)
	r.str("OTEL_ENDPOINT", &cfg.Observability.OTLPEndpoint)
	r.bool("OTEL_INSECURE", &cfg.Observability.OTLPInsecure)

	return errors.Join(r.errs...)
}

// =============================================================================
// Validation
// =============================================================================

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, b := range c.Store.Backends {
		if b == BackendBadger && c.Store.BadgerPath == "" && !c.Store.BadgerInMemory {
			return errors.New("store.badgerPath is required when badger is enabled without badgerInMemory")
		}
		if b == BackendSQLite && c.Store.SQLitePath == "" {
			return errors.New("store.sqlitePath is required when sqlite is enabled")
		}
	}
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// ComposeBounds returns the engine search bounds.
func (c Config) ComposeBounds() compose.Config {
	return compose.Config{BeamWidth: c.Compose.BeamWidth, MaxDepth: c.Compose.MaxDepth}
}

// LLMClientConfig returns the llm.New configuration.
func (c Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Backend:       c.LLM.Backend,
		OpenAIAPIKey:  c.LLM.OpenAIAPIKey,
		OpenAIModel:   c.LLM.OpenAIModel,
		OllamaBaseURL: c.LLM.OllamaBaseURL,
		OllamaModel:   c.LLM.OllamaModel,
	}
}

// LoggingConfig returns the process logger configuration.
func (c Config) LoggingConfig(service string) logging.Config {
	level, err := logging.ParseLevel(c.Observability.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		JSON:    c.Observability.LogJSON,
		LogDir:  c.Observability.LogDir,
		Service: service,
	}
}

// ServiceOptions returns the auth extension points the config selects.
func (c Config) ServiceOptions() extensions.ServiceOptions {
	opts := extensions.DefaultOptions()
	if len(c.Auth.Tokens) > 0 {
		opts = opts.WithAuth(extensions.NewStaticTokenProvider(c.Auth.Tokens)).
			WithAuthz(extensions.NewRoleAuthzProvider(c.Auth.WriterRoles...))
	}
	if c.Auth.AuditLog {
		opts = opts.WithAudit(extensions.NewSlogAuditLogger(slog.Default()))
	}
	return opts
}

// ExpandHome expands a leading ~ in a configured path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
