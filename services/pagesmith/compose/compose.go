// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compose implements the deterministic page composer: a beam search
// over (kind, variant) choices that keeps every hard rule satisfied and
// maximizes the tone, soft-rule and continuity score.
package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// ErrInvalidRequest marks a malformed composition request.
var ErrInvalidRequest = errors.New("invalid composition request")

// MaxDepthConstraint is reported by Infeasible when a critical section does
// not fit within Config.MaxDepth.
const MaxDepthConstraint = "max-depth"

// Priority says how strongly a requested section must appear.
type Priority string

const (
	PriorityCritical   Priority = "critical"
	PriorityImportant  Priority = "important"
	PriorityNiceToHave Priority = "nice-to-have"
)

// ParsePriority converts a string into a known Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityCritical, PriorityImportant, PriorityNiceToHave:
		return Priority(s), nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, s)
}

// SectionRequest asks for one section of a kind.
type SectionRequest struct {
	Kind        catalog.Kind `json:"kind" yaml:"kind"`
	Priority    Priority     `json:"priority" yaml:"priority"`
	VariantHint string       `json:"variantHint,omitempty" yaml:"variantHint,omitempty"`
}

// Request is the input of Compose.
type Request struct {
	Tone     catalog.Tone     `json:"tone" yaml:"tone"`
	Content  content.Graph    `json:"content" yaml:"content"`
	Sections []SectionRequest `json:"sections" yaml:"sections"`
}

// Config bounds the search.
type Config struct {
	BeamWidth int `json:"beamWidth" yaml:"beamWidth"`
	MaxDepth  int `json:"maxDepth" yaml:"maxDepth"`
}

// DefaultConfig is used when the caller supplies none.
var DefaultConfig = Config{BeamWidth: 4, MaxDepth: 8}

// Infeasible reports that a critical section cannot be placed.
type Infeasible struct {
	Kind        catalog.Kind `json:"kind"`
	Constraints []string     `json:"constraints"`
	Reason      string       `json:"reason"`
}

// Result is the outcome of Compose. Exactly one of Sequence (possibly
// empty) or Infeasible is meaningful; Infeasible is nil on success.
type Result struct {
	Sequence   []section.Node `json:"sequence"`
	Score      float64        `json:"score"`
	Breakdown  []SectionScore `json:"breakdown"`
	Warnings   []string       `json:"warnings"`
	Infeasible *Infeasible    `json:"infeasible,omitempty"`
}

// Composer runs the beam search.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type Composer struct {
	catalog *catalog.Catalog
	binder  *content.Binder
	rules   *rules.Registry
	scorer  *Scorer
}

// NewComposer creates a Composer over a catalog and rule registry.
func NewComposer(cat *catalog.Catalog, reg *rules.Registry) *Composer {
	return &Composer{
		catalog: cat,
		binder:  content.NewBinder(),
		rules:   reg,
		scorer:  NewScorer(reg, DefaultWeights),
	}
}

// Scorer returns the scorer used by the composer.
func (c *Composer) Scorer() *Scorer {
	return c.scorer
}

// Catalog returns the catalog the composer searches.
func (c *Composer) Catalog() *catalog.Catalog {
	return c.catalog
}

// Rules returns the rule registry the composer enforces.
func (c *Composer) Rules() *rules.Registry {
	return c.rules
}

// Binder returns the content binder used for new sections.
func (c *Composer) Binder() *content.Binder {
	return c.binder
}

// state is one partial sequence on the beam.
type state struct {
	seq      []section.Node
	score    float64
	terms    []SectionScore
	path     []int
	warnings []string
}

// extend returns a new state with node appended. The receiver is not modified.
func (s *state) extend(node section.Node, choice int, sc SectionScore, seq []section.Node) *state {
	return &state{
		seq:      seq,
		score:    s.score + sc.Total,
		terms:    append(append(make([]SectionScore, 0, len(s.terms)+1), s.terms...), sc),
		path:     append(append(make([]int, 0, len(s.path)+1), s.path...), choice),
		warnings: s.warnings,
	}
}

func (s *state) skip(warning string) *state {
	out := &state{
		seq:   s.seq,
		score: s.score,
		terms: s.terms,
		path:  append(append(make([]int, 0, len(s.path)+1), s.path...), -1),
	}
	out.warnings = s.warnings
	if warning != "" {
		out.warnings = append(append(make([]string, 0, len(s.warnings)+1), s.warnings...), warning)
	}
	return out
}

// better orders states by score descending, then by choice path. A skip
// (-1) sorts before any variant, and lower declaration indexes sort first.
func better(a, b *state) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	for i := 0; i < len(a.path) && i < len(b.path); i++ {
		if a.path[i] != b.path[i] {
			return a.path[i] < b.path[i]
		}
	}
	return len(a.path) < len(b.path)
}

// Compose searches for the highest-scoring valid sequence.
//
// # Description
//
// Requested kinds are anchored first: every hero moves to the front and
// every footer to the back, all other kinds keep the caller's order. Then
// each position is expanded over every candidate variant of its kind (or
// only the hinted variant). A candidate whose append violates any hard rule
// in force for the resulting sequence is pruned. The BeamWidth best partial
// sequences survive each position.
//
// Priorities:
//   - critical: a state with no valid candidate dies; if every state dies
//     the search is repeated without the nice-to-have sections, and only
//     when that also fails is the result Infeasible, naming the kind and
//     the violated rules of the first search.
//   - important: a state with no valid candidate skips the section and
//     records a warning.
//   - nice-to-have: every state also branches into "skip"; the section is
//     kept only when the including branch scores strictly higher.
//
// # Outputs
//
//   - *Result: The sequence and score, or Infeasible.
//   - error: ErrInvalidRequest or catalog.ErrNotFound for malformed input.
//
// # Thread Safety
//
// Pure; identical inputs always produce identical outputs.
func (c *Composer) Compose(req Request, cfg Config) (*Result, error) {
	if err := c.validate(&req, &cfg); err != nil {
		return nil, err
	}
	requests := anchor(req.Sections)

	candidates := make([][]*catalog.SectionMeta, len(requests))
	for i, r := range requests {
		metas, err := c.candidates(r)
		if err != nil {
			return nil, err
		}
		candidates[i] = metas
	}

	best, inf := c.search(requests, candidates, req, cfg)
	var warnings []string
	if inf != nil {
		// The beam may have pruned every lineage that skipped an optional
		// section. Retry with the optional sections omitted before
		// reporting Infeasible.
		kept, keptCandidates, dropped := withoutOptional(requests, candidates)
		if len(dropped) == 0 {
			return &Result{Infeasible: inf}, nil
		}
		retry, retryInf := c.search(kept, keptCandidates, req, cfg)
		if retryInf != nil {
			return &Result{Infeasible: inf}, nil
		}
		best, requests = retry, kept
		for _, k := range dropped {
			warnings = append(warnings, fmt.Sprintf(
				"nice-to-have section %s omitted: no valid sequence within the beam includes it", k))
		}
	}

	warnings = append(warnings, best.warnings...)
	for pos, r := range requests {
		if r.Priority == PriorityNiceToHave && best.path[pos] < 0 {
			warnings = append(warnings, fmt.Sprintf("nice-to-have section %s omitted: it does not improve the score", r.Kind))
		}
	}
	if warnings == nil {
		warnings = []string{}
	}
	seq := best.seq
	if seq == nil {
		seq = []section.Node{}
	}
	terms := best.terms
	if terms == nil {
		terms = []SectionScore{}
	}
	return &Result{Sequence: seq, Score: best.score, Breakdown: terms, Warnings: warnings}, nil
}

// search runs the beam over requests and returns the best final state, or
// the Infeasible report of the first position where every state died.
func (c *Composer) search(requests []SectionRequest, candidates [][]*catalog.SectionMeta,
	req Request, cfg Config) (*state, *Infeasible) {

	beam := []*state{{}}
	for pos, r := range requests {
		var next []*state
		violated := make(map[string]bool)
		for _, st := range beam {
			expanded := c.expand(st, r, candidates[pos], req, cfg, violated)
			switch {
			case len(expanded) > 0:
				next = append(next, expanded...)
			case r.Priority == PriorityImportant:
				next = append(next, st.skip(fmt.Sprintf(
					"important section %s skipped: no variant satisfies %s",
					r.Kind, strings.Join(sortedKeys(violated), ", "))))
			}
			if r.Priority == PriorityNiceToHave {
				next = append(next, st.skip(""))
			}
		}
		if len(next) == 0 {
			constraints := sortedKeys(violated)
			return nil, &Infeasible{
				Kind:        r.Kind,
				Constraints: constraints,
				Reason: fmt.Sprintf("no %s variant satisfies %s given the sections already chosen",
					r.Kind, strings.Join(constraints, ", ")),
			}
		}
		sort.SliceStable(next, func(i, j int) bool { return better(next[i], next[j]) })
		if len(next) > cfg.BeamWidth {
			next = next[:cfg.BeamWidth]
		}
		beam = next
	}
	return beam[0], nil
}

// withoutOptional drops the nice-to-have requests and their candidate
// lists, returning the dropped kinds in request order.
func withoutOptional(requests []SectionRequest, candidates [][]*catalog.SectionMeta) (
	[]SectionRequest, [][]*catalog.SectionMeta, []catalog.Kind) {

	var (
		kept    []SectionRequest
		keptC   [][]*catalog.SectionMeta
		dropped []catalog.Kind
	)
	for i, r := range requests {
		if r.Priority == PriorityNiceToHave {
			dropped = append(dropped, r.Kind)
			continue
		}
		kept = append(kept, r)
		keptC = append(keptC, candidates[i])
	}
	return kept, keptC, dropped
}

// expand returns every valid child of st for request r. Violated rule ids
// of pruned candidates are added to violated.
func (c *Composer) expand(st *state, r SectionRequest, metas []*catalog.SectionMeta,
	req Request, cfg Config, violated map[string]bool) []*state {

	if len(st.seq) >= cfg.MaxDepth {
		violated[MaxDepthConstraint] = true
		return nil
	}
	var out []*state
	id := section.NextID(st.seq, r.Kind)
	for i, meta := range metas {
		node := section.New(id, meta, c.binder.Bind(meta, req.Content, req.Tone))
		node.Position = len(st.seq)

		seq := make([]section.Node, len(st.seq)+1)
		copy(seq, st.seq)
		seq[len(st.seq)] = node

		if vs := c.rules.CheckHard(seq); len(vs) > 0 {
			for _, rule := range rules.ViolatedIDs(vs) {
				violated[rule] = true
			}
			continue
		}
		out = append(out, st.extend(node, i, c.scorer.Score(seq), seq))
	}
	return out
}

func (c *Composer) candidates(r SectionRequest) ([]*catalog.SectionMeta, error) {
	if r.VariantHint != "" {
		meta, err := c.catalog.Get(r.Kind, r.VariantHint)
		if err != nil {
			return nil, err
		}
		return []*catalog.SectionMeta{meta}, nil
	}
	return c.catalog.Lookup(r.Kind)
}

func (c *Composer) validate(req *Request, cfg *Config) error {
	if cfg.BeamWidth == 0 && cfg.MaxDepth == 0 {
		*cfg = DefaultConfig
	}
	if cfg.BeamWidth < 1 {
		return fmt.Errorf("%w: beamWidth must be at least 1", ErrInvalidRequest)
	}
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("%w: maxDepth must be at least 1", ErrInvalidRequest)
	}
	if len(req.Sections) == 0 {
		return fmt.Errorf("%w: at least one section is required", ErrInvalidRequest)
	}
	req.Sections = append([]SectionRequest(nil), req.Sections...)
	if req.Tone == "" {
		req.Tone = catalog.DefaultTone
	}
	if _, err := catalog.ParseTone(string(req.Tone)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for i := range req.Sections {
		s := &req.Sections[i]
		if _, err := catalog.ParseKind(string(s.Kind)); err != nil {
			return err
		}
		if s.Priority == "" {
			s.Priority = PriorityImportant
		}
		if _, err := ParsePriority(string(s.Priority)); err != nil {
			return err
		}
	}
	return nil
}

// anchor stably moves heroes to the front and footers to the back.
func anchor(in []SectionRequest) []SectionRequest {
	out := make([]SectionRequest, 0, len(in))
	for _, r := range in {
		if r.Kind == catalog.KindHero {
			out = append(out, r)
		}
	}
	for _, r := range in {
		if r.Kind != catalog.KindHero && r.Kind != catalog.KindFooter {
			out = append(out, r)
		}
	}
	for _, r := range in {
		if r.Kind == catalog.KindFooter {
			out = append(out, r)
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
