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
	"fmt"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

func builtinHard() []HardRule {
	return []HardRule{
		{ID: SingleH1, Description: "At most one level-1 heading per page", Check: checkSingleH1},
		{ID: HeroFirst, Description: "A hero, when present, is the first section", Check: checkHeroFirst},
		{ID: FooterLast, Description: "At most one footer, and nothing after it", Check: checkFooterLast},
		{ID: NoHorizontalScroll, Description: "No two horizontally scrolling sections side by side", Check: checkNoHorizontalScroll},
		{ID: ImageAlt, Description: "Every image has alt text", Check: checkImageAlt},
		{ID: FormLabels, Description: "Every form control has a label", Check: checkFormLabels},
	}
}

func headingLevel(n section.Node) int {
	if n.Meta == nil {
		return 0
	}
	return n.Meta.HeadingLevel
}

func checkSingleH1(seq []section.Node) []Violation {
	var out []Violation
	seen := false
	for _, n := range seq {
		if headingLevel(n) != 1 {
			continue
		}
		if seen {
			out = append(out, Violation{Rule: SingleH1, SectionID: n.ID,
				Message: fmt.Sprintf("%s adds a second level-1 heading", n.Ref())})
		}
		seen = true
	}
	return out
}

func checkHeroFirst(seq []section.Node) []Violation {
	var out []Violation
	for i, n := range seq {
		if n.Kind == catalog.KindHero && i > 0 {
			out = append(out, Violation{Rule: HeroFirst, SectionID: n.ID,
				Message: fmt.Sprintf("hero %s is at position %d, not first", n.ID, i)})
		}
	}
	return out
}

func checkFooterLast(seq []section.Node) []Violation {
	var out []Violation
	footer := -1
	for i, n := range seq {
		if footer >= 0 {
			out = append(out, Violation{Rule: FooterLast, SectionID: n.ID,
				Message: fmt.Sprintf("%s is placed after the footer", n.Ref())})
			continue
		}
		if n.Kind == catalog.KindFooter {
			footer = i
		}
	}
	return out
}

func checkNoHorizontalScroll(seq []section.Node) []Violation {
	var out []Violation
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1], seq[i]
		if prev.Meta != nil && cur.Meta != nil && prev.Meta.OverflowX && cur.Meta.OverflowX {
			out = append(out, Violation{Rule: NoHorizontalScroll, SectionID: cur.ID,
				Message: fmt.Sprintf("%s and %s both scroll horizontally", prev.Ref(), cur.Ref())})
		}
	}
	return out
}

func checkImageAlt(seq []section.Node) []Violation {
	var out []Violation
	for _, n := range seq {
		for _, img := range content.Images(n.Props.Content) {
			if img.Alt == "" {
				out = append(out, Violation{Rule: ImageAlt, SectionID: n.ID,
					Message: fmt.Sprintf("%s: %s has no alt text", n.ID, img.Field)})
			}
		}
	}
	return out
}

func checkFormLabels(seq []section.Node) []Violation {
	var out []Violation
	for _, n := range seq {
		for _, f := range content.FormFields(n.Props.Content) {
			if f.Label == "" {
				out = append(out, Violation{Rule: FormLabels, SectionID: n.ID,
					Message: fmt.Sprintf("%s: form field %q has no label", n.ID, f.Name)})
			}
		}
	}
	return out
}
