// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compose

import (
	"math"

	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Weights scale the three scoring terms.
type Weights struct {
	Tone       float64 `json:"tone"`
	Soft       float64 `json:"soft"`
	Continuity float64 `json:"continuity"`
}

// DefaultWeights are the production scoring weights.
var DefaultWeights = Weights{Tone: 1.0, Soft: 1.0, Continuity: 0.5}

// maxDensityStep is the largest possible density change between sections.
const maxDensityStep = 4.0

// SectionScore is the score breakdown of one placed section.
type SectionScore struct {
	SectionID  string  `json:"sectionId"`
	Ref        string  `json:"ref"`
	Tone       float64 `json:"tone"`
	Soft       float64 `json:"soft"`
	Continuity float64 `json:"continuity"`
	Total      float64 `json:"total"`
}

// Scorer computes the score of a section given everything placed before it.
//
// The score of a sequence is the sum of its per-section scores, each
// evaluated on the prefix ending at that section. Beam search accumulates
// exactly these terms, so ScoreSequence reproduces a composed score.
type Scorer struct {
	rules   *rules.Registry
	weights Weights
}

// NewScorer creates a Scorer.
func NewScorer(reg *rules.Registry, w Weights) *Scorer {
	return &Scorer{rules: reg, weights: w}
}

// Score returns the breakdown for the last node of prefix.
//
//   - tone: the variant's authored bias for the node's resolved tone
//   - soft: the weighted mean of the variant's declared soft rules
//   - continuity: a penalty proportional to the density change from the
//     previous section
func (s *Scorer) Score(prefix []section.Node) SectionScore {
	n := prefix[len(prefix)-1]
	out := SectionScore{SectionID: n.ID, Ref: n.Ref()}
	if n.Meta == nil {
		return out
	}
	out.Tone = s.weights.Tone * n.Meta.Bias(n.Props.Tone)
	out.Soft = s.weights.Soft * s.rules.SoftScore(prefix)
	if len(prefix) > 1 {
		if prev := prefix[len(prefix)-2].Meta; prev != nil {
			step := math.Abs(float64(n.Meta.Density - prev.Density))
			out.Continuity = -s.weights.Continuity * step / maxDensityStep
		}
	}
	out.Total = out.Tone + out.Soft + out.Continuity
	return out
}

// ScoreSequence scores every section of seq and returns the total.
func (s *Scorer) ScoreSequence(seq []section.Node) (float64, []SectionScore) {
	total := 0.0
	breakdown := make([]SectionScore, 0, len(seq))
	for i := range seq {
		sc := s.Score(seq[:i+1])
		breakdown = append(breakdown, sc)
		total += sc.Total
	}
	return total, breakdown
}
