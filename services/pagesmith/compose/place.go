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
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Place inserts a new section of kind at index at and returns the resulting
// sequence, renumbered. Every variant of kind is tried; the one giving the
// highest sequence score without violating a hard rule wins, ties going to
// declaration order. ok is false when no variant fits.
//
// Place is the single-position form of Compose used by edit transforms.
func (c *Composer) Place(seq []section.Node, at int, kind catalog.Kind, tone catalog.Tone, graph content.Graph) (out []section.Node, ok bool) {
	metas, err := c.catalog.Lookup(kind)
	if err != nil {
		return seq, false
	}
	if at < 0 || at > len(seq) {
		at = len(seq)
	}
	id := section.NextID(seq, kind)

	bestScore := 0.0
	for _, meta := range metas {
		node := section.New(id, meta, c.binder.Bind(meta, graph, tone))
		candidate := make([]section.Node, 0, len(seq)+1)
		candidate = append(candidate, seq[:at]...)
		candidate = append(candidate, node)
		candidate = append(candidate, seq[at:]...)
		candidate = section.Renumber(candidate)

		if len(c.rules.CheckHard(candidate)) > 0 {
			continue
		}
		score, _ := c.scorer.ScoreSequence(candidate)
		if !ok || score > bestScore {
			out, bestScore, ok = candidate, score, true
		}
	}
	if !ok {
		return seq, false
	}
	return out, true
}

// BestVariant returns the variant of node's kind, other than the current
// one, that maximizes rank while keeping seq valid when swapped in at index
// i. Candidates for which accept returns false are ignored. Ties go to
// declaration order.
func (c *Composer) BestVariant(seq []section.Node, i int, accept func(*catalog.SectionMeta) bool,
	rank func(*catalog.SectionMeta) float64) (*catalog.SectionMeta, bool) {

	metas, err := c.catalog.Lookup(seq[i].Kind)
	if err != nil {
		return nil, false
	}
	var best *catalog.SectionMeta
	bestRank := 0.0
	for _, meta := range metas {
		if meta.Variant == seq[i].Variant || (accept != nil && !accept(meta)) {
			continue
		}
		trial := section.Clone(seq)
		trial[i] = section.New(trial[i].ID, meta, c.binder.Rebind(meta, trial[i].Props))
		trial[i].Position = seq[i].Position
		if len(c.rules.CheckHard(trial)) > 0 {
			continue
		}
		r := rank(meta)
		if best == nil || r > bestRank {
			best, bestRank = meta, r
		}
	}
	return best, best != nil
}
