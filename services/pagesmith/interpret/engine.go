// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpret

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Defaults for the combined interpreter.
const (
	DefaultThreshold = 0.7
	DefaultTimeout   = 5 * time.Second
)

// EngineConfig tunes the combined interpreter.
type EngineConfig struct {
	// Threshold above which a remote result replaces the local one.
	Threshold float64
	// Timeout bounds one remote call.
	Timeout time.Duration
	// OnResult, if set, is called with the source of every result.
	OnResult func(source string)
	Logger   *slog.Logger
}

// Engine combines the local interpreter with an optional remote one.
//
// # Description
//
// The local result is always computed. When a remote interpreter is set it
// is called under Timeout:
//   - on error or timeout, the local result is returned and a warning logged;
//   - when its confidence exceeds Threshold, its result is returned;
//   - otherwise the union of both transform lists (local first, deduplicated)
//     is returned with the higher of the two confidences.
//
// # Thread Safety
//
// Safe for concurrent use if the remote interpreter is.
type Engine struct {
	local  *Local
	remote Interpreter
	cfg    EngineConfig
}

// NewEngine creates an Engine. remote may be nil.
func NewEngine(remote Interpreter, cfg EngineConfig) *Engine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{local: NewLocal(), remote: remote, cfg: cfg}
}

// Interpret never fails; collaborator errors downgrade to the local result.
func (e *Engine) Interpret(ctx context.Context, command string, seq []section.Node) (Result, error) {
	res := e.resolve(ctx, command, seq)
	if e.cfg.OnResult != nil {
		e.cfg.OnResult(res.Source)
	}
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, command string, seq []section.Node) Result {
	local := e.local.Match(command)
	if e.remote == nil {
		return local
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	remote, err := e.remote.Interpret(rctx, command, seq)
	if err != nil {
		if errors.Is(err, ErrInterpreterTimeout) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			e.cfg.Logger.Warn("Remote interpreter timed out, using local result",
				"timeout", e.cfg.Timeout, "error", err)
		} else {
			e.cfg.Logger.Warn("Remote interpreter failed, using local result", "error", err)
		}
		return local
	}
	if remote.Confidence > e.cfg.Threshold {
		remote.Source = SourceLLM
		return remote
	}
	return merge(local, remote)
}

func merge(local, remote Result) Result {
	out := Result{
		Transforms: make([]string, 0, len(local.Transforms)+len(remote.Transforms)),
		Confidence: local.Confidence,
		Reasoning:  local.Reasoning,
		Source:     SourceMerged,
	}
	if remote.Confidence > out.Confidence {
		out.Confidence = remote.Confidence
	}
	if remote.Reasoning != "" {
		out.Reasoning = remote.Reasoning
	}
	seen := make(map[string]bool)
	for _, list := range [][]string{local.Transforms, remote.Transforms} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out.Transforms = append(out.Transforms, name)
			}
		}
	}
	return out
}
