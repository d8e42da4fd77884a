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
	"encoding/json"
	"fmt"
	"testing"

	"github.com/AleutianAI/pagesmith/services/pagesmith/audit"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComposer() *Composer {
	return NewComposer(catalog.Default(), rules.Default())
}

func kindsOf(seq []section.Node) []catalog.Kind {
	return section.Kinds(seq)
}

func countKind(seq []section.Node, k catalog.Kind) int {
	n := 0
	for _, node := range seq {
		if node.Kind == k {
			n++
		}
	}
	return n
}

// =============================================================================
// Determinism and soundness
// =============================================================================

func TestCompose_ExampleScenario(t *testing.T) {
	c := newComposer()
	req := Request{
		Tone: catalog.ToneBold,
		Sections: []SectionRequest{
			{Kind: catalog.KindHero, Priority: PriorityCritical},
			{Kind: catalog.KindCTA, Priority: PriorityCritical},
			{Kind: catalog.KindFeatures, Priority: PriorityNiceToHave},
		},
	}

	first, err := c.Compose(req, DefaultConfig)
	require.NoError(t, err)
	require.Nil(t, first.Infeasible)
	assert.Equal(t, 1, countKind(first.Sequence, catalog.KindHero))
	assert.Equal(t, 1, countKind(first.Sequence, catalog.KindCTA))
	assert.LessOrEqual(t, countKind(first.Sequence, catalog.KindFeatures), 1)

	firstJSON, err := json.Marshal(first.Sequence)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := c.Compose(req, DefaultConfig)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again.Sequence)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
		assert.Equal(t, first.Score, again.Score)
	}
}

func TestCompose_DeterministicAcrossTonesAndWidths(t *testing.T) {
	c := newComposer()
	sections := []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindFeatures, Priority: PriorityImportant},
		{Kind: catalog.KindAbout, Priority: PriorityNiceToHave},
		{Kind: catalog.KindTestimonials, Priority: PriorityImportant},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
		{Kind: catalog.KindFooter, Priority: PriorityImportant},
	}
	graph := content.Graph{
		Hero:     &content.HeroContent{Headline: "Launch pages without waiting on anyone"},
		Features: &content.FeaturesContent{Title: "Why teams switch", Items: []content.FeatureItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}},
	}
	for _, tone := range catalog.Tones {
		for _, width := range []int{1, 2, 4, 8} {
			req := Request{Tone: tone, Content: graph, Sections: sections}
			cfg := Config{BeamWidth: width, MaxDepth: 8}

			a, err := c.Compose(req, cfg)
			require.NoError(t, err)
			b, err := c.Compose(req, cfg)
			require.NoError(t, err)
			require.Nil(t, a.Infeasible)
			assert.True(t, section.Equal(a.Sequence, b.Sequence), "tone=%s width=%d", tone, width)
		}
	}
}

func TestCompose_HardRuleSoundness(t *testing.T) {
	c := newComposer()
	auditor := audit.NewAuditor(rules.Default())
	all := []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindFeatures, Priority: PriorityCritical},
		{Kind: catalog.KindAbout, Priority: PriorityImportant},
		{Kind: catalog.KindTestimonials, Priority: PriorityCritical},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
		{Kind: catalog.KindFooter, Priority: PriorityCritical},
	}
	for _, tone := range catalog.Tones {
		res, err := c.Compose(Request{Tone: tone, Sections: all}, DefaultConfig)
		require.NoError(t, err)
		require.Nil(t, res.Infeasible, "tone=%s", tone)
		assert.Empty(t, auditor.HardSubset(res.Sequence), "tone=%s", tone)
		for _, k := range catalog.Kinds {
			assert.Equal(t, 1, countKind(res.Sequence, k), "tone=%s kind=%s", tone, k)
		}
	}
}

func TestCompose_ScoreMatchesScorer(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Tone: catalog.TonePlayful, Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindTestimonials, Priority: PriorityCritical},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
	}}, DefaultConfig)
	require.NoError(t, err)

	total, breakdown := c.Scorer().ScoreSequence(res.Sequence)
	assert.InDelta(t, res.Score, total, 1e-9)
	assert.Equal(t, res.Breakdown, breakdown)
}

func TestCompose_PositionsAndIDs(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
	}}, DefaultConfig)
	require.NoError(t, err)
	require.Len(t, res.Sequence, 3)
	assert.Equal(t, []string{"hero-1", "cta-1", "cta-2"},
		[]string{res.Sequence[0].ID, res.Sequence[1].ID, res.Sequence[2].ID})
	for i, n := range res.Sequence {
		assert.Equal(t, i, n.Position)
		assert.Equal(t, catalog.DefaultTone, n.Props.Tone)
		assert.NotNil(t, n.Meta)
	}
}

// =============================================================================
// Priorities and anchoring
// =============================================================================

func TestCompose_Anchoring(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindFooter, Priority: PriorityCritical},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
		{Kind: catalog.KindFeatures, Priority: PriorityCritical},
		{Kind: catalog.KindHero, Priority: PriorityCritical},
	}}, DefaultConfig)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Kind{catalog.KindHero, catalog.KindCTA, catalog.KindFeatures, catalog.KindFooter},
		kindsOf(res.Sequence))
}

func TestCompose_CriticalInfeasible(t *testing.T) {
	c := newComposer()

	t.Run("second h1", func(t *testing.T) {
		res, err := c.Compose(Request{Sections: []SectionRequest{
			{Kind: catalog.KindHero, Priority: PriorityCritical},
			{Kind: catalog.KindAbout, Priority: PriorityCritical, VariantHint: "manifesto"},
		}}, DefaultConfig)
		require.NoError(t, err)
		require.NotNil(t, res.Infeasible)
		assert.Equal(t, catalog.KindAbout, res.Infeasible.Kind)
		assert.Contains(t, res.Infeasible.Constraints, rules.SingleH1)
		assert.Empty(t, res.Sequence)
	})

	t.Run("two heroes", func(t *testing.T) {
		res, err := c.Compose(Request{Sections: []SectionRequest{
			{Kind: catalog.KindHero, Priority: PriorityCritical},
			{Kind: catalog.KindHero, Priority: PriorityCritical},
		}}, DefaultConfig)
		require.NoError(t, err)
		require.NotNil(t, res.Infeasible)
		assert.Equal(t, catalog.KindHero, res.Infeasible.Kind)
		assert.Equal(t, []string{rules.HeroFirst, rules.SingleH1}, res.Infeasible.Constraints)
		assert.NotEmpty(t, res.Infeasible.Reason)
	})

	t.Run("max depth", func(t *testing.T) {
		res, err := c.Compose(Request{Sections: []SectionRequest{
			{Kind: catalog.KindHero, Priority: PriorityCritical},
			{Kind: catalog.KindFeatures, Priority: PriorityCritical},
			{Kind: catalog.KindCTA, Priority: PriorityCritical},
		}}, Config{BeamWidth: 2, MaxDepth: 2})
		require.NoError(t, err)
		require.NotNil(t, res.Infeasible)
		assert.Equal(t, catalog.KindCTA, res.Infeasible.Kind)
		assert.Equal(t, []string{MaxDepthConstraint}, res.Infeasible.Constraints)
	})
}

func TestCompose_CriticalAlwaysPresent(t *testing.T) {
	c := newComposer()
	for _, k := range catalog.Kinds {
		for _, tone := range catalog.Tones {
			res, err := c.Compose(Request{Tone: tone, Sections: []SectionRequest{
				{Kind: catalog.KindHero, Priority: PriorityNiceToHave},
				{Kind: k, Priority: PriorityCritical},
			}}, DefaultConfig)
			require.NoError(t, err)
			if res.Infeasible == nil {
				assert.True(t, section.Has(res.Sequence, k), "kind=%s tone=%s", k, tone)
			}
		}
	}
}

func TestCompose_ImportantSkippedWithWarning(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindAbout, Priority: PriorityImportant, VariantHint: "manifesto"},
		{Kind: catalog.KindCTA, Priority: PriorityCritical},
	}}, DefaultConfig)
	require.NoError(t, err)
	require.Nil(t, res.Infeasible)
	assert.Equal(t, []catalog.Kind{catalog.KindHero, catalog.KindCTA}, kindsOf(res.Sequence))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "important section about skipped")
	assert.Contains(t, res.Warnings[0], rules.SingleH1)
}

const niceToHaveCatalog = `
sections:
  - { kind: hero, variant: plain, density: 3, intensity: 1, toneBias: { minimal: 0.5 } }
  - { kind: features, variant: %s, density: %d, intensity: 1, toneBias: { minimal: %s } }
  - { kind: about, variant: a, density: 1, intensity: 1 }
  - { kind: testimonials, variant: a, density: 1, intensity: 1 }
  - { kind: cta, variant: a, density: 1, intensity: 1 }
  - { kind: footer, variant: a, density: 1, intensity: 1 }
`

func TestCompose_NiceToHaveIncludedOnlyWhenStrictlyBetter(t *testing.T) {
	tests := []struct {
		name     string
		variant  string
		density  int
		bias     string
		included bool
	}{
		// soft score is the neutral 0.5 for variants without soft rules
		{"improves", "good", 3, "0.2", true},
		{"ties", "neutral", 3, "-0.5", false},
		{"worsens", "bad", 1, "-0.9", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := []byte(fmt.Sprintf(niceToHaveCatalog, tt.variant, tt.density, tt.bias))
			cat, err := catalog.Load(doc)
			require.NoError(t, err)
			c := NewComposer(cat, rules.Default())

			res, err := c.Compose(Request{Sections: []SectionRequest{
				{Kind: catalog.KindHero, Priority: PriorityCritical},
				{Kind: catalog.KindFeatures, Priority: PriorityNiceToHave},
			}}, DefaultConfig)
			require.NoError(t, err)
			assert.Equal(t, tt.included, section.Has(res.Sequence, catalog.KindFeatures))
			if !tt.included {
				require.NotEmpty(t, res.Warnings)
				assert.Contains(t, res.Warnings[len(res.Warnings)-1], "nice-to-have section features omitted")
			}
		})
	}
}

const scrollingCatalog = `
sections:
  - { kind: hero, variant: plain, density: 3, intensity: 1, toneBias: { minimal: 0.5 } }
  - { kind: features, variant: cards-carousel, density: 3, intensity: 1, overflowX: true, toneBias: { minimal: 0.2 } }
  - { kind: about, variant: a, density: 1, intensity: 1 }
  - { kind: testimonials, variant: carousel, density: 1, intensity: 1, overflowX: true }
  - { kind: cta, variant: a, density: 1, intensity: 1 }
  - { kind: footer, variant: a, density: 1, intensity: 1 }
`

func TestCompose_NiceToHaveSkipSurvivesNarrowBeam(t *testing.T) {
	cat, err := catalog.Load([]byte(scrollingCatalog))
	require.NoError(t, err)
	c := NewComposer(cat, rules.Default())
	req := Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindFeatures, Priority: PriorityNiceToHave},
		{Kind: catalog.KindTestimonials, Priority: PriorityCritical},
	}}

	for _, width := range []int{1, 2, DefaultConfig.BeamWidth} {
		t.Run(fmt.Sprintf("width %d", width), func(t *testing.T) {
			res, err := c.Compose(req, Config{BeamWidth: width, MaxDepth: DefaultConfig.MaxDepth})
			require.NoError(t, err)
			require.Nil(t, res.Infeasible)
			assert.Equal(t, []catalog.Kind{catalog.KindHero, catalog.KindTestimonials}, kindsOf(res.Sequence))
			assert.Empty(t, c.Rules().CheckHard(res.Sequence))
			require.NotEmpty(t, res.Warnings)
			assert.Contains(t, res.Warnings[len(res.Warnings)-1], "nice-to-have section features omitted")
		})
	}
}

func TestCompose_InfeasibleWithoutOptionalSections(t *testing.T) {
	cat, err := catalog.Load([]byte(scrollingCatalog))
	require.NoError(t, err)
	c := NewComposer(cat, rules.Default())

	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityNiceToHave},
		{Kind: catalog.KindFeatures, Priority: PriorityCritical},
		{Kind: catalog.KindTestimonials, Priority: PriorityCritical},
	}}, Config{BeamWidth: 1, MaxDepth: 8})
	require.NoError(t, err)
	require.NotNil(t, res.Infeasible)
	assert.Equal(t, catalog.KindTestimonials, res.Infeasible.Kind)
	assert.Equal(t, []string{rules.NoHorizontalScroll}, res.Infeasible.Constraints)
}

func TestCompose_VariantHint(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical, VariantHint: "split-image"},
	}}, DefaultConfig)
	require.NoError(t, err)
	require.Len(t, res.Sequence, 1)
	assert.Equal(t, "split-image", res.Sequence[0].Variant)
}

// =============================================================================
// Validation
// =============================================================================

func TestCompose_InvalidRequests(t *testing.T) {
	c := newComposer()

	_, err := c.Compose(Request{}, DefaultConfig)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Compose(Request{Tone: "grumpy", Sections: []SectionRequest{{Kind: catalog.KindHero}}}, DefaultConfig)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Compose(Request{Sections: []SectionRequest{{Kind: catalog.KindHero, Priority: "urgent"}}}, DefaultConfig)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Compose(Request{Sections: []SectionRequest{{Kind: "pricing"}}}, DefaultConfig)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = c.Compose(Request{Sections: []SectionRequest{{Kind: catalog.KindHero, VariantHint: "nope"}}}, DefaultConfig)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = c.Compose(Request{Sections: []SectionRequest{{Kind: catalog.KindHero}}}, Config{BeamWidth: 0, MaxDepth: 3})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCompose_DoesNotMutateRequest(t *testing.T) {
	c := newComposer()
	sections := []SectionRequest{{Kind: catalog.KindCTA}, {Kind: catalog.KindHero}}
	_, err := c.Compose(Request{Sections: sections}, DefaultConfig)
	require.NoError(t, err)
	assert.Equal(t, catalog.KindCTA, sections[0].Kind)
	assert.Empty(t, sections[0].Priority)
}

// =============================================================================
// Scorer
// =============================================================================

func TestScorer_ToneAffinity(t *testing.T) {
	c := newComposer()
	hero, ok := c.Place(nil, 0, catalog.KindHero, catalog.TonePlayful, content.Graph{})
	require.True(t, ok)

	score := func(variant string) float64 {
		meta, gerr := catalog.Default().Get(catalog.KindTestimonials, variant)
		require.NoError(t, gerr)
		node := section.New("testimonials-1", meta, c.Binder().Bind(meta, content.Graph{}, catalog.TonePlayful))
		seq := section.Renumber(append(section.Clone(hero), node))
		return c.Scorer().Score(seq).Tone
	}
	assert.Greater(t, score("carousel"), score("static-grid"))
}

func TestScorer_ContinuityPenalty(t *testing.T) {
	c := newComposer()
	get := func(kind catalog.Kind, variant string) section.Node {
		meta, err := catalog.Default().Get(kind, variant)
		require.NoError(t, err)
		return section.New(section.NextID(nil, kind), meta, c.Binder().Bind(meta, content.Graph{}, catalog.ToneMinimal))
	}
	smooth := c.Scorer().Score([]section.Node{get(catalog.KindHero, "centered"), get(catalog.KindFeatures, "icon-list")})
	abrupt := c.Scorer().Score([]section.Node{get(catalog.KindHero, "minimal-text"), get(catalog.KindFeatures, "bento")})
	assert.Zero(t, smooth.Continuity)
	assert.InDelta(t, -0.5, abrupt.Continuity, 1e-9)
}

func TestPlace(t *testing.T) {
	c := newComposer()
	res, err := c.Compose(Request{Sections: []SectionRequest{
		{Kind: catalog.KindHero, Priority: PriorityCritical},
		{Kind: catalog.KindFooter, Priority: PriorityCritical},
	}}, DefaultConfig)
	require.NoError(t, err)

	out, ok := c.Place(res.Sequence, 1, catalog.KindTestimonials, catalog.ToneMinimal, content.Graph{})
	require.True(t, ok)
	assert.Equal(t, []catalog.Kind{catalog.KindHero, catalog.KindTestimonials, catalog.KindFooter}, kindsOf(out))
	assert.Equal(t, "testimonials-1", out[1].ID)
	assert.Len(t, res.Sequence, 2, "input untouched")

	_, ok = c.Place(res.Sequence, 2, catalog.KindCTA, catalog.ToneMinimal, content.Graph{})
	assert.False(t, ok, "nothing may follow the footer")
}
