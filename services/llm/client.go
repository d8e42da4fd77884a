// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the language-model collaborators used by pagesmith:
// the command interpreter and the content generator. Both are optional; the
// engine never depends on a model for correctness.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoBackend is returned by New when the backend is disabled.
var ErrNoBackend = errors.New("llm backend disabled")

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Config selects and configures an LLM backend.
type Config struct {
	// Backend is one of "none", "openai", "ollama". Empty means "none".
	Backend string

	OpenAIAPIKey string
	OpenAIModel  string

	OllamaBaseURL string
	OllamaModel   string
}

// New creates the client for the configured backend.
//
// Returns ErrNoBackend when the backend is "none" or empty; callers treat
// that as "run with the local paths only".
func New(cfg Config) (LLMClient, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, ErrNoBackend
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "ollama":
		return NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}

// Float32 and Int return pointers for GenerationParams literals.
func Float32(v float32) *float32 { return &v }

func Int(v int) *int { return &v }
