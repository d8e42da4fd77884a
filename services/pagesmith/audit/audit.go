// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit evaluates a finished section sequence and explains what is
// wrong with it.
//
// The audit is advisory. It never blocks composition; the composer enforces
// hard rules itself. Findings are grouped into accessibility, SEO and
// performance categories, and a report passes iff it holds no error.
package audit

import (
	"fmt"
	"unicode/utf8"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Audit-only rule ids.
const (
	RuleOneH1         = "one-h1"
	RuleCTAPresent    = "cta-present"
	RuleFooterPresent = "footer-present"
	RuleHeroHeadline  = "hero-headline-length"
	RuleReducedMotion = "reduced-motion"
	RulePageWeight    = "page-weight"
	RuleScriptBudget  = "script-budget"
)

// Thresholds for advisory findings.
const (
	maxAnimated     = 2
	maxLarge        = 2
	maxScripted     = 1
	heroHeadlineMin = 20
	heroHeadlineMax = 70
)

// Finding is one diagnostic.
type Finding struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	SectionID  string   `json:"sectionId,omitempty"`
}

// Report groups findings by category.
type Report struct {
	A11y        []Finding `json:"a11y"`
	SEO         []Finding `json:"seo"`
	Performance []Finding `json:"performance"`
	Passed      bool      `json:"passed"`
}

// Errors returns every error-severity finding across categories.
func (r Report) Errors() []Finding {
	var out []Finding
	for _, group := range [][]Finding{r.A11y, r.SEO, r.Performance} {
		for _, f := range group {
			if f.Severity == SeverityError {
				out = append(out, f)
			}
		}
	}
	return out
}

// Auditor runs the audit rules.
//
// # Thread Safety
//
// Stateless apart from the immutable registry; safe for concurrent use.
type Auditor struct {
	rules *rules.Registry
}

// NewAuditor creates an Auditor over a rule registry.
func NewAuditor(reg *rules.Registry) *Auditor {
	return &Auditor{rules: reg}
}

// suggestions for hard rules, keyed by rule id.
var hardSuggestions = map[string]string{
	rules.SingleH1:           "Use a variant without a level-1 heading for every section but the hero.",
	rules.HeroFirst:          "Move the hero to the top of the page.",
	rules.FooterLast:         "Keep a single footer at the end of the page.",
	rules.NoHorizontalScroll: "Separate the scrolling sections or swap one for a static variant.",
	rules.ImageAlt:           "Describe every image in its alt text.",
	rules.FormLabels:         "Give every form control a visible label.",
}

// categoryOf places a hard rule in a report category.
func categoryOf(id string) string {
	switch id {
	case rules.HeroFirst, rules.FooterLast:
		return "seo"
	}
	return "a11y"
}

// HardSubset reports the hard rules in force for seq as error findings.
// A sequence returned by the composer always yields none.
func (a *Auditor) HardSubset(seq []section.Node) []Finding {
	var out []Finding
	for _, v := range a.rules.CheckHard(seq) {
		out = append(out, Finding{
			Rule:       v.Rule,
			Severity:   SeverityError,
			Message:    v.Message,
			Suggestion: hardSuggestions[v.Rule],
			SectionID:  v.SectionID,
		})
	}
	return out
}

// Audit evaluates seq.
func (a *Auditor) Audit(seq []section.Node) Report {
	r := Report{A11y: []Finding{}, SEO: []Finding{}, Performance: []Finding{}}

	multipleH1Reported := false
	for _, f := range a.HardSubset(seq) {
		multipleH1Reported = multipleH1Reported || f.Rule == rules.SingleH1
		if categoryOf(f.Rule) == "seo" {
			r.SEO = append(r.SEO, f)
		} else {
			r.A11y = append(r.A11y, f)
		}
	}

	r.A11y = append(r.A11y, checkHeadings(seq, multipleH1Reported)...)
	r.A11y = append(r.A11y, checkMotion(seq)...)
	r.SEO = append(r.SEO, checkCTA(seq)...)
	r.SEO = append(r.SEO, checkHeroHeadline(seq)...)
	r.SEO = append(r.SEO, checkFooter(seq)...)
	r.Performance = append(r.Performance, checkWeight(seq)...)
	r.Performance = append(r.Performance, checkScripts(seq)...)

	r.Passed = len(r.Errors()) == 0
	return r
}

func count(seq []section.Node, pred func(*catalog.SectionMeta) bool) int {
	n := 0
	for _, node := range seq {
		if node.Meta != nil && pred(node.Meta) {
			n++
		}
	}
	return n
}

func checkHeadings(seq []section.Node, multipleReported bool) []Finding {
	h1 := count(seq, func(m *catalog.SectionMeta) bool { return m.HeadingLevel == 1 })
	switch {
	case h1 == 0:
		return []Finding{{
			Rule:       RuleOneH1,
			Severity:   SeverityError,
			Message:    "The page has no level-1 heading.",
			Suggestion: "Add a hero section.",
		}}
	case h1 > 1 && !multipleReported:
		return []Finding{{
			Rule:       RuleOneH1,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("The page has %d level-1 headings.", h1),
			Suggestion: hardSuggestions[rules.SingleH1],
		}}
	}
	return nil
}

func checkMotion(seq []section.Node) []Finding {
	n := count(seq, func(m *catalog.SectionMeta) bool { return m.HasAnimation })
	if n <= maxAnimated {
		return nil
	}
	return []Finding{{
		Rule:       RuleReducedMotion,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("%d sections animate.", n),
		Suggestion: "Honour prefers-reduced-motion or use static variants.",
	}}
}

func checkCTA(seq []section.Node) []Finding {
	if count(seq, func(m *catalog.SectionMeta) bool { return m.HasCTA }) > 0 {
		return nil
	}
	return []Finding{{
		Rule:       RuleCTAPresent,
		Severity:   SeverityError,
		Message:    "No section carries a call to action.",
		Suggestion: "Add a CTA section.",
	}}
}

func checkHeroHeadline(seq []section.Node) []Finding {
	i := section.FirstOf(seq, catalog.KindHero)
	if i < 0 {
		return nil
	}
	n := utf8.RuneCountInString(content.Headline(seq[i].Props.Content))
	if n >= heroHeadlineMin && n <= heroHeadlineMax {
		return nil
	}
	return []Finding{{
		Rule:       RuleHeroHeadline,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("The hero headline is %d characters long.", n),
		Suggestion: fmt.Sprintf("Aim for %d to %d characters.", heroHeadlineMin, heroHeadlineMax),
		SectionID:  seq[i].ID,
	}}
}

func checkFooter(seq []section.Node) []Finding {
	if section.Has(seq, catalog.KindFooter) {
		return nil
	}
	return []Finding{{
		Rule:       RuleFooterPresent,
		Severity:   SeverityInfo,
		Message:    "The page has no footer.",
		Suggestion: "Add a footer with contact and legal links.",
	}}
}

func checkWeight(seq []section.Node) []Finding {
	n := count(seq, func(m *catalog.SectionMeta) bool { return m.EstimatedSize == catalog.SizeLarge })
	if n <= maxLarge {
		return nil
	}
	return []Finding{{
		Rule:       RulePageWeight,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("%d sections are large.", n),
		Suggestion: "Simplify the layout to lighter variants.",
	}}
}

func checkScripts(seq []section.Node) []Finding {
	n := count(seq, func(m *catalog.SectionMeta) bool { return m.RequiresJS })
	switch {
	case n > maxScripted:
		return []Finding{{
			Rule:       RuleScriptBudget,
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("%d sections require JavaScript.", n),
			Suggestion: "Keep at most one scripted section.",
		}}
	case n == 1:
		return []Finding{{
			Rule:     RuleScriptBudget,
			Severity: SeverityInfo,
			Message:  "One section requires JavaScript; make sure it degrades gracefully.",
		}}
	}
	return nil
}
