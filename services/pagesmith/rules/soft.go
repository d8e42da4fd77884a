// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"unicode/utf8"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Headline and item-count comfort ranges.
const (
	headlineMin = 20
	headlineMax = 70
	itemsMin    = 3
	itemsMax    = 6
)

func builtinSoft() []SoftRule {
	return []SoftRule{
		{ID: HeadlineLength, Description: "Headlines between 20 and 70 characters", Weight: 1.0, Score: scoreHeadlineLength},
		{ID: ItemCount, Description: "Between 3 and 6 repeated items", Weight: 0.8, Score: scoreItemCount},
		{ID: SocialProofPlacement, Description: "Testimonials follow the features they back up", Weight: 1.0, Score: scoreSocialProof},
		{ID: CTAPlacement, Description: "Calls to action come after the pitch", Weight: 1.0, Score: scoreCTAPlacement},
		{ID: LightweightMedia, Description: "Prefer lighter sections", Weight: 0.5, Score: scoreLightweight},
		{ID: MotionBudget, Description: "At most two animated sections", Weight: 0.8, Score: scoreMotionBudget},
		{ID: JSBudget, Description: "At most one section requiring JavaScript", Weight: 0.6, Score: scoreJSBudget},
	}
}

func last(prefix []section.Node) section.Node {
	return prefix[len(prefix)-1]
}

func scoreHeadlineLength(prefix []section.Node) float64 {
	n := utf8.RuneCountInString(content.Headline(last(prefix).Props.Content))
	switch {
	case n == 0:
		return 0
	case n < headlineMin:
		return float64(n) / headlineMin
	case n > headlineMax:
		return 1 - float64(n-headlineMax)/headlineMax
	}
	return 1
}

func scoreItemCount(prefix []section.Node) float64 {
	n := content.ItemCount(last(prefix).Props.Content)
	switch {
	case n < itemsMin:
		return float64(n) / itemsMin
	case n > itemsMax:
		v := float64(itemsMax) / float64(n)
		if v < 0.3 {
			return 0.3
		}
		return v
	}
	return 1
}

func scoreSocialProof(prefix []section.Node) float64 {
	if section.Has(prefix[:len(prefix)-1], catalog.KindFeatures) {
		return 1
	}
	return 0.4
}

func scoreCTAPlacement(prefix []section.Node) float64 {
	before := prefix[:len(prefix)-1]
	switch {
	case len(before) == 0:
		return 0.2
	case len(before) >= 2 && section.Has(before, catalog.KindHero):
		return 1
	}
	return 0.5
}

func scoreLightweight(prefix []section.Node) float64 {
	m := last(prefix).Meta
	switch m.EstimatedSize.Rank() {
	case 0:
		return 1
	case 1:
		return 0.7
	}
	return 0.3
}

func countWhere(prefix []section.Node, pred func(*catalog.SectionMeta) bool) int {
	n := 0
	for _, node := range prefix {
		if node.Meta != nil && pred(node.Meta) {
			n++
		}
	}
	return n
}

func scoreMotionBudget(prefix []section.Node) float64 {
	if countWhere(prefix, func(m *catalog.SectionMeta) bool { return m.HasAnimation }) <= 2 {
		return 1
	}
	return 0.3
}

func scoreJSBudget(prefix []section.Node) float64 {
	if countWhere(prefix, func(m *catalog.SectionMeta) bool { return m.RequiresJS }) <= 1 {
		return 1
	}
	return 0.3
}
