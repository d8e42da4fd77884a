// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package interpret turns a short natural-language edit command into an
// ordered list of transform names.
//
// The local keyword interpreter is deterministic, total and always
// available. An optional remote interpreter backed by a language model can
// refine it; its failures are logged and never reach the caller.
package interpret

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

// Result sources.
const (
	SourceLocal  = "local"
	SourceLLM    = "llm"
	SourceMerged = "merged"
)

// LocalConfidence is reported when at least one keyword matched.
const LocalConfidence = 0.8

var (
	// ErrInterpreterTimeout means the remote interpreter did not answer in time.
	ErrInterpreterTimeout = errors.New("interpreter timed out")
	// ErrInterpreterUnavailable means the remote interpreter failed or answered garbage.
	ErrInterpreterUnavailable = errors.New("interpreter unavailable")
)

// Result is an interpretation of one command.
type Result struct {
	Transforms []string `json:"transforms"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Source     string   `json:"source"`
}

// Interpreter maps a command against the current sequence to transforms.
type Interpreter interface {
	Interpret(ctx context.Context, command string, seq []section.Node) (Result, error)
}

// keywordRule maps whole-word phrases to one transform. Phrases match whole
// words only, so plural forms are listed alongside the singular.
type keywordRule struct {
	transform string
	phrases   []string
}

// keywordTable is matched in order; result order follows the table.
var keywordTable = []keywordRule{
	{transform.MakeHeroDramatic, []string{"dramatic", "more dramatic", "bolder hero", "hero pop", "punchy", "more impact", "eye catching"}},
	{transform.AddSocialProof, []string{"testimonial", "testimonials", "social proof", "reviews", "review", "quotes", "customer quotes"}},
	{transform.IncreaseContrast, []string{"contrast", "more contrast", "readable", "readability", "stand out"}},
	{transform.MakeFriendly, []string{"friendly", "friendlier", "warm", "warmer", "playful", "approachable", "fun"}},
	{transform.AddCTA, []string{"cta", "ctas", "call to action", "calls to action", "sign up", "signup", "signups", "button", "buttons", "conversion", "conversions"}},
	{transform.EmphasizeFeatures, []string{"feature", "features", "emphasize", "emphasise", "highlight", "highlights"}},
	{transform.SimplifyLayout, []string{"simplify", "simpler", "cleaner", "declutter", "lighter", "less busy"}},
	{transform.AddFooter, []string{"footer", "footers"}},
}

// Local is the keyword interpreter.
//
// # Thread Safety
//
// Stateless; safe for concurrent use.
type Local struct{}

// NewLocal creates the keyword interpreter.
func NewLocal() *Local {
	return &Local{}
}

// Interpret matches the lowercased command against the keyword table. The
// confidence is LocalConfidence when anything matched and 0 otherwise. It
// never fails.
func (l *Local) Interpret(_ context.Context, command string, _ []section.Node) (Result, error) {
	return l.Match(command), nil
}

// Match is the context-free form of Interpret.
func (l *Local) Match(command string) Result {
	text := " " + normalize(command) + " "
	res := Result{Transforms: []string{}, Source: SourceLocal}
	var hits []string
	for _, rule := range keywordTable {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, " "+phrase+" ") {
				res.Transforms = append(res.Transforms, rule.transform)
				hits = append(hits, phrase)
				break
			}
		}
	}
	if len(res.Transforms) > 0 {
		res.Confidence = LocalConfidence
		res.Reasoning = "matched keywords: " + strings.Join(hits, ", ")
	}
	return res
}

// normalize lowercases s and collapses every run of non-alphanumerics to a
// single space.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
