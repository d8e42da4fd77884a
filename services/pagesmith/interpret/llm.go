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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// LLM asks a language model to choose transforms.
//
// # Description
//
// The prompt lists the allowed transform names and summarizes the current
// sequence. The model must answer with a JSON object; names outside the
// allowed set are dropped. Deadline errors map to ErrInterpreterTimeout,
// everything else to ErrInterpreterUnavailable.
type LLM struct {
	client  llm.LLMClient
	allowed []string
}

// NewLLM creates a remote interpreter restricted to the allowed names.
func NewLLM(client llm.LLMClient, allowed []string) *LLM {
	return &LLM{client: client, allowed: append([]string(nil), allowed...)}
}

type llmAnswer struct {
	Transforms []string `json:"transforms"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Interpret implements Interpreter.
func (l *LLM) Interpret(ctx context.Context, command string, seq []section.Node) (Result, error) {
	raw, err := l.client.Generate(ctx, l.prompt(command, seq), llm.GenerationParams{
		Temperature: llm.Float32(0),
		MaxTokens:   llm.Int(256),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %v", ErrInterpreterTimeout, err)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrInterpreterUnavailable, err)
	}
	return l.parse(raw)
}

func (l *LLM) prompt(command string, seq []section.Node) string {
	var b strings.Builder
	b.WriteString("A web page is built from these sections:\n")
	b.WriteString(section.Summary(seq))
	b.WriteString("\nAvailable edit operations: ")
	b.WriteString(strings.Join(l.allowed, ", "))
	b.WriteString("\n\nUser request: ")
	b.WriteString(strings.TrimSpace(command))
	b.WriteString("\n\nChoose the operations, in the order they should run, that best fulfil the request. ")
	b.WriteString(`Reply with JSON only: {"transforms": [...], "confidence": <0..1>, "reasoning": "<one sentence>"}`)
	return b.String()
}

func (l *LLM) parse(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("%w: no JSON object in answer", ErrInterpreterUnavailable)
	}
	var ans llmAnswer
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ans); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInterpreterUnavailable, err)
	}

	allowed := make(map[string]bool, len(l.allowed))
	for _, name := range l.allowed {
		allowed[name] = true
	}
	res := Result{Transforms: []string{}, Reasoning: ans.Reasoning, Source: SourceLLM}
	seen := make(map[string]bool)
	for _, name := range ans.Transforms {
		if allowed[name] && !seen[name] {
			seen[name] = true
			res.Transforms = append(res.Transforms, name)
		}
	}
	res.Confidence = clamp01(ans.Confidence)
	if len(res.Transforms) == 0 {
		res.Confidence = 0
	}
	return res, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
