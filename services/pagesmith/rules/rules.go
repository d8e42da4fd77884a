// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules holds the registry of hard and soft page constraints.
//
// Hard rules inspect the whole sequence (a global view), so "at most one
// h1" sees every section already placed. Every hard rule is monotone: once a
// prefix violates it, no extension can repair it. The composer relies on
// that to prune at append time.
//
// Soft rules score the last node of a prefix in [0, 1].
package rules

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Hard rule ids.
const (
	SingleH1           = "single-h1"
	HeroFirst          = "hero-first"
	FooterLast         = "footer-last"
	NoHorizontalScroll = "no-horizontal-scroll"
	ImageAlt           = "image-alt"
	FormLabels         = "form-labels"
)

// Soft rule ids.
const (
	HeadlineLength       = "headline-length"
	ItemCount            = "item-count"
	SocialProofPlacement = "social-proof-placement"
	CTAPlacement         = "cta-placement"
	LightweightMedia     = "lightweight-media"
	MotionBudget         = "motion-budget"
	JSBudget             = "js-budget"
)

// Violation is one failed hard rule.
type Violation struct {
	Rule      string `json:"rule"`
	SectionID string `json:"sectionId,omitempty"`
	Message   string `json:"message"`
}

// HardRule is a mandatory constraint over a whole sequence.
type HardRule struct {
	ID          string
	Description string
	Check       func(seq []section.Node) []Violation
}

// SoftRule scores the last node of a prefix in [0, 1].
type SoftRule struct {
	ID          string
	Description string
	Weight      float64
	Score       func(prefix []section.Node) float64
}

// Registry resolves rule ids declared by catalog variants.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type Registry struct {
	hard      map[string]HardRule
	hardOrder []string
	soft      map[string]SoftRule
	softOrder []string
}

// NewRegistry builds a registry from rule definitions. Registration order
// is the reporting order.
func NewRegistry(hard []HardRule, soft []SoftRule) (*Registry, error) {
	r := &Registry{
		hard: make(map[string]HardRule, len(hard)),
		soft: make(map[string]SoftRule, len(soft)),
	}
	for _, h := range hard {
		if h.ID == "" || h.Check == nil {
			return nil, fmt.Errorf("hard rule %q is incomplete", h.ID)
		}
		if _, dup := r.hard[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hard rule %q", h.ID)
		}
		r.hard[h.ID] = h
		r.hardOrder = append(r.hardOrder, h.ID)
	}
	for _, s := range soft {
		if s.ID == "" || s.Score == nil || s.Weight <= 0 {
			return nil, fmt.Errorf("soft rule %q is incomplete", s.ID)
		}
		if _, dup := r.soft[s.ID]; dup {
			return nil, fmt.Errorf("duplicate soft rule %q", s.ID)
		}
		if _, clash := r.hard[s.ID]; clash {
			return nil, fmt.Errorf("rule %q registered as both hard and soft", s.ID)
		}
		r.soft[s.ID] = s
		r.softOrder = append(r.softOrder, s.ID)
	}
	return r, nil
}

// Default returns the registry with every built-in rule.
func Default() *Registry {
	r, err := NewRegistry(builtinHard(), builtinSoft())
	if err != nil {
		panic(err)
	}
	return r
}

// Hard returns the hard rule with id.
func (r *Registry) Hard(id string) (HardRule, bool) {
	h, ok := r.hard[id]
	return h, ok
}

// Soft returns the soft rule with id.
func (r *Registry) Soft(id string) (SoftRule, bool) {
	s, ok := r.soft[id]
	return s, ok
}

// HardIDs returns every hard rule id in registration order.
func (r *Registry) HardIDs() []string {
	return append([]string(nil), r.hardOrder...)
}

// SoftIDs returns every soft rule id in registration order.
func (r *Registry) SoftIDs() []string {
	return append([]string(nil), r.softOrder...)
}

// Active returns the hard rule ids in force for seq: the union of the
// hardConstraints declared by its sections, in registration order. A rule
// declared by any section applies to the whole page.
func (r *Registry) Active(seq []section.Node) []string {
	declared := make(map[string]bool)
	for _, n := range seq {
		if n.Meta == nil {
			continue
		}
		for _, id := range n.Meta.HardConstraints {
			declared[id] = true
		}
	}
	out := make([]string, 0, len(declared))
	for _, id := range r.hardOrder {
		if declared[id] {
			out = append(out, id)
		}
	}
	return out
}

// CheckHard evaluates every active hard rule against seq.
func (r *Registry) CheckHard(seq []section.Node) []Violation {
	var out []Violation
	for _, id := range r.Active(seq) {
		out = append(out, r.hard[id].Check(seq)...)
	}
	return out
}

// SoftScore returns the weighted mean of the last node's declared soft rules
// over prefix, in [0, 1]. A node declaring no known soft rule scores 0.5.
func (r *Registry) SoftScore(prefix []section.Node) float64 {
	if len(prefix) == 0 {
		return 0
	}
	last := prefix[len(prefix)-1]
	if last.Meta == nil {
		return 0.5
	}
	var sum, weights float64
	for _, id := range last.Meta.SoftConstraints {
		s, ok := r.soft[id]
		if !ok {
			continue
		}
		sum += s.Weight * clamp01(s.Score(prefix))
		weights += s.Weight
	}
	if weights == 0 {
		return 0.5
	}
	return sum / weights
}

// ValidateCatalog checks that every rule id the catalog declares is known
// and classified consistently.
func (r *Registry) ValidateCatalog(cat *catalog.Catalog) error {
	for _, meta := range cat.All() {
		for _, id := range meta.HardConstraints {
			if _, ok := r.hard[id]; !ok {
				return fmt.Errorf("%s: unknown hard constraint %q", meta.Ref(), id)
			}
		}
		for _, id := range meta.SoftConstraints {
			if _, ok := r.soft[id]; !ok {
				return fmt.Errorf("%s: unknown soft constraint %q", meta.Ref(), id)
			}
		}
	}
	return nil
}

// ViolatedIDs returns the distinct rule ids of vs, sorted.
func ViolatedIDs(vs []Violation) []string {
	seen := make(map[string]bool, len(vs))
	var out []string
	for _, v := range vs {
		if !seen[v.Rule] {
			seen[v.Rule] = true
			out = append(out, v.Rule)
		}
	}
	sort.Strings(out)
	return out
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
