// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
	"github.com/AleutianAI/pagesmith/pkg/logging"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Compose.BeamWidth)
	assert.Equal(t, 8, cfg.Compose.MaxDepth)
	assert.Equal(t, 30*time.Minute, cfg.Store.SessionTTL)
	assert.Equal(t, time.Minute, cfg.Store.SweepInterval)
	assert.Equal(t, []string{"badger", "sqlite", "memory"}, cfg.Store.Backends)
	assert.Equal(t, 0.7, cfg.LLM.InterpreterThreshold)
	assert.Equal(t, 5*time.Second, cfg.LLM.InterpreterTimeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "pagesmith.yaml", `
server:
  port: 9000
compose:
  beamWidth: 2
store:
  backends: [memory]
  sweepInterval: 30s
llm:
  backend: ollama
  ollamaBaseURL: http://localhost:11434
  interpreterTimeout: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Compose.BeamWidth)
	assert.Equal(t, 8, cfg.Compose.MaxDepth, "unset keys keep defaults")
	assert.Equal(t, []string{"memory"}, cfg.Store.Backends)
	assert.Equal(t, 30*time.Second, cfg.Store.SweepInterval)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, 2*time.Second, cfg.LLM.InterpreterTimeout)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "pagesmith.json", `{"server":{"port":9100},"rateLimit":{"requestsPerSecond":0}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Zero(t, cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "pagesmith.yaml", "server:\n  port: 9000\n")
	t.Setenv("PAGESMITH_PORT", "9200")
	t.Setenv("PAGESMITH_STORE_BACKENDS", "sqlite, memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, []string{"sqlite", "memory"}, cfg.Store.Backends)
}

func TestLoadFromEnv_AllKinds(t *testing.T) {
	cfg := Default()
	err := loadFromEnv(&cfg, envMap(map[string]string{
		"PAGESMITH_BEAM_WIDTH":            "6",
		"PAGESMITH_BADGER_IN_MEMORY":      "true",
		"PAGESMITH_INTERPRETER_THRESHOLD": "0.9",
		"PAGESMITH_SESSION_TTL":           "1m",
		"PAGESMITH_LLM_BACKEND":           "openai",
		"PAGESMITH_OPENAI_API_KEY":        "sk-test",
		"PAGESMITH_OTEL_ENDPOINT":         "collector:4317",
		"PAGESMITH_LOG_LEVEL":             "",
	}))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Compose.BeamWidth)
	assert.True(t, cfg.Store.BadgerInMemory)
	assert.Equal(t, 0.9, cfg.LLM.InterpreterThreshold)
	assert.Equal(t, time.Minute, cfg.Store.SessionTTL)
	assert.Equal(t, "collector:4317", cfg.Observability.OTLPEndpoint)
	assert.Equal(t, "info", cfg.Observability.LogLevel, "empty variables are ignored")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_ParseErrors(t *testing.T) {
	cfg := Default()
	err := loadFromEnv(&cfg, envMap(map[string]string{
		"PAGESMITH_PORT":           "eighty",
		"PAGESMITH_SWEEP_INTERVAL": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAGESMITH_PORT")
	assert.Contains(t, err.Error(), "PAGESMITH_SWEEP_INTERVAL")
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero beam", func(c *Config) { c.Compose.BeamWidth = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backends = []string{"redis"} }},
		{"no backends", func(c *Config) { c.Store.Backends = nil }},
		{"threshold above one", func(c *Config) { c.LLM.InterpreterThreshold = 1.5 }},
		{"openai without key", func(c *Config) { c.LLM.Backend = "openai" }},
		{"unknown llm", func(c *Config) { c.LLM.Backend = "gemini" }},
		{"zero ttl", func(c *Config) { c.Store.SessionTTL = 0 }},
		{"bad gin mode", func(c *Config) { c.Server.GinMode = "prod" }},
		{"badger without path", func(c *Config) { c.Store.BadgerPath = "" }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"short token", func(c *Config) {
			c.Auth.Tokens = []extensions.StaticToken{{Token: "short", UserID: "u"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Store.BadgerPath = ""
	cfg.Store.BadgerInMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Compose.BeamWidth = 3
	cfg.LLM.Backend = "ollama"
	cfg.Observability.LogLevel = "debug"

	assert.Equal(t, 3, cfg.ComposeBounds().BeamWidth)
	assert.Equal(t, "ollama", cfg.LLMClientConfig().Backend)
	lc := cfg.LoggingConfig("pagesmith")
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "pagesmith", lc.Service)

	_, ok := cfg.ServiceOptions().AuthProvider.(*extensions.NopAuthProvider)
	assert.True(t, ok, "no tokens means local auth")

	cfg.Auth.Tokens = []extensions.StaticToken{{Token: "0123456789abcdef", UserID: "u", Roles: []string{"editor"}}}
	opts := cfg.ServiceOptions()
	_, ok = opts.AuthProvider.(*extensions.StaticTokenProvider)
	assert.True(t, ok)
	_, ok = opts.AuthzProvider.(*extensions.RoleAuthzProvider)
	assert.True(t, ok)
	_, ok = opts.AuditLogger.(*extensions.NopAuditLogger)
	assert.True(t, ok, "audit log is off by default")

	cfg.Auth.AuditLog = true
	_, ok = cfg.ServiceOptions().AuditLogger.(*extensions.SlogAuditLogger)
	assert.True(t, ok)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home+"/.pagesmith", ExpandHome("~/.pagesmith"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
}
