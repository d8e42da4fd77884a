// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMeta(t *testing.T, kind catalog.Kind, variant string) *catalog.SectionMeta {
	t.Helper()
	m, err := catalog.Default().Get(kind, variant)
	require.NoError(t, err)
	return m
}

// =============================================================================
// Binder
// =============================================================================

func TestBind_EmptyGraphUsesPlaceholders(t *testing.T) {
	b := NewBinder()
	props := b.Bind(mustMeta(t, catalog.KindHero, "centered"), Graph{}, catalog.ToneBold)

	hero, ok := props.Content.(*HeroContent)
	require.True(t, ok)
	assert.Equal(t, catalog.ToneBold, props.Tone)
	assert.Equal(t, "Build what others call impossible", hero.Headline)
	assert.Equal(t, "Start now", hero.CTALabel)
	assert.Equal(t, "#get-started", hero.CTAHref)
	assert.Empty(t, hero.Subheadline, "optional slots stay empty")
}

func TestBind_IsDeterministic(t *testing.T) {
	b := NewBinder()
	meta := mustMeta(t, catalog.KindTestimonials, "carousel")
	graph := Graph{Testimonials: &TestimonialsContent{Quotes: []Quote{{Text: "only one"}}}}

	first := b.Bind(meta, graph, catalog.TonePlayful)
	for i := 0; i < 3; i++ {
		again := b.Bind(meta, graph, catalog.TonePlayful)
		assert.True(t, Equal(first.Content, again.Content))
	}
}

func TestBind_KeepsValidContent(t *testing.T) {
	b := NewBinder()
	graph := Graph{Hero: &HeroContent{
		Headline: "Ship pages in minutes",
		CTALabel: "Try it",
		CTAHref:  "https://example.com/signup",
	}}
	props := b.Bind(mustMeta(t, catalog.KindHero, "centered"), graph, catalog.ToneMinimal)
	hero := props.Content.(*HeroContent)
	assert.Equal(t, "Ship pages in minutes", hero.Headline)
	assert.Equal(t, "Try it", hero.CTALabel)
	assert.Equal(t, "https://example.com/signup", hero.CTAHref)
}

func TestBind_ReplacesInvalidValues(t *testing.T) {
	b := NewBinder()
	graph := Graph{Hero: &HeroContent{
		Headline: "Short",
		CTALabel: "Go",
		CTAHref:  "javascript:alert(1)",
	}}
	props := b.Bind(mustMeta(t, catalog.KindHero, "centered"), graph, catalog.ToneMinimal)
	hero := props.Content.(*HeroContent)
	assert.Equal(t, "A simpler way to get work done", hero.Headline, "below minLength")
	assert.Equal(t, "Go", hero.CTALabel)
	assert.Equal(t, "#get-started", hero.CTAHref, "fails the validation pattern")
}

func TestBind_ListSlotsClampToBounds(t *testing.T) {
	b := NewBinder()

	t.Run("too few quotes are replaced", func(t *testing.T) {
		graph := Graph{Testimonials: &TestimonialsContent{Title: "Loved by teams", Quotes: []Quote{{Text: "one"}}}}
		props := b.Bind(mustMeta(t, catalog.KindTestimonials, "carousel"), graph, catalog.TonePlayful)
		tc := props.Content.(*TestimonialsContent)
		assert.Len(t, tc.Quotes, 3)
		assert.Equal(t, "Loved by teams", tc.Title)
	})

	t.Run("single quote variant takes exactly one", func(t *testing.T) {
		props := b.Bind(mustMeta(t, catalog.KindTestimonials, "single-quote"), Graph{}, catalog.ToneMinimal)
		assert.Len(t, props.Content.(*TestimonialsContent).Quotes, 1)
	})

	t.Run("bento needs four features", func(t *testing.T) {
		props := b.Bind(mustMeta(t, catalog.KindFeatures, "bento"), Graph{}, catalog.ToneBold)
		assert.Len(t, props.Content.(*FeaturesContent).Items, 4)
	})
}

func TestBind_DoesNotAliasGraph(t *testing.T) {
	b := NewBinder()
	graph := Graph{Features: &FeaturesContent{Title: "Why us", Items: []FeatureItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}}}
	props := b.Bind(mustMeta(t, catalog.KindFeatures, "grid-3"), graph, catalog.ToneMinimal)

	props.Content.(*FeaturesContent).Items[0].Title = "changed"
	assert.Equal(t, "a", graph.Features.Items[0].Title)
}

func TestBind_NormalizesAccessibility(t *testing.T) {
	b := NewBinder()

	t.Run("image gets alt text", func(t *testing.T) {
		props := b.Bind(mustMeta(t, catalog.KindHero, "split-image"), Graph{}, catalog.ToneMinimal)
		hero := props.Content.(*HeroContent)
		assert.NotEmpty(t, hero.Image)
		assert.NotEmpty(t, hero.ImageAlt)
	})

	t.Run("form fields get labels", func(t *testing.T) {
		graph := Graph{CTA: &CTAContent{Form: []FormField{{Name: "first_name"}}}}
		props := b.Bind(mustMeta(t, catalog.KindCTA, "form-inline"), graph, catalog.ToneMinimal)
		cta := props.Content.(*CTAContent)
		require.Len(t, cta.Form, 1)
		assert.Equal(t, "First name", cta.Form[0].Label)
		assert.Equal(t, "text", cta.Form[0].Type)
	})

	t.Run("avatars get alt text", func(t *testing.T) {
		graph := Graph{Testimonials: &TestimonialsContent{Quotes: []Quote{
			{Text: "a", Avatar: "/a.png"}, {Text: "b", Author: "Bo"},
		}}}
		props := b.Bind(mustMeta(t, catalog.KindTestimonials, "static-grid"), graph, catalog.ToneMinimal)
		quotes := props.Content.(*TestimonialsContent).Quotes
		assert.Equal(t, "Photo of A happy customer", quotes[0].AvatarAlt)
		assert.Equal(t, "Bo", quotes[1].Author)
	})
}

func TestRebind_PreservesToneAndStyle(t *testing.T) {
	b := NewBinder()
	props := b.Bind(mustMeta(t, catalog.KindHero, "centered"), Graph{}, catalog.TonePlayful).WithStyle("contrast", "high")

	rebound := b.Rebind(mustMeta(t, catalog.KindHero, "split-image"), props)
	assert.Equal(t, catalog.TonePlayful, rebound.Tone)
	assert.Equal(t, "high", rebound.Style["contrast"])
	assert.NotEmpty(t, rebound.Content.(*HeroContent).Image)
	assert.Empty(t, props.Content.(*HeroContent).Image, "input props untouched")
}

func TestValidateCatalog_DefaultCatalogMatchesSchemas(t *testing.T) {
	require.NoError(t, ValidateCatalog(catalog.Default()))
}

func TestValidateCatalog_RejectsUnknownSlot(t *testing.T) {
	doc := `
sections:
  - { kind: hero, variant: a, density: 1, intensity: 1, contentSlots: [{ key: tagline, type: text }] }
  - { kind: features, variant: a, density: 1, intensity: 1 }
  - { kind: about, variant: a, density: 1, intensity: 1 }
  - { kind: testimonials, variant: a, density: 1, intensity: 1 }
  - { kind: cta, variant: a, density: 1, intensity: 1 }
  - { kind: footer, variant: a, density: 1, intensity: 1 }
`
	cat, err := catalog.Load([]byte(doc))
	require.NoError(t, err)
	assert.Error(t, ValidateCatalog(cat))
}

// =============================================================================
// Decoding and patching
// =============================================================================

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(catalog.KindHero, []byte(`{"headline":"x","colour":"red"}`))
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestDecode_NullIsEmpty(t *testing.T) {
	c, err := Decode(catalog.KindFooter, []byte("null"))
	require.NoError(t, err)
	assert.Equal(t, &FooterContent{}, c)
}

func TestDecodeProps(t *testing.T) {
	p, err := DecodeProps(catalog.KindCTA, []byte(`{"tone":"bold","content":{"headline":"Join today"},"style":{"contrast":"high"}}`))
	require.NoError(t, err)
	assert.Equal(t, catalog.ToneBold, p.Tone)
	assert.Equal(t, "Join today", p.Content.(*CTAContent).Headline)
	assert.Equal(t, "high", p.Style["contrast"])

	_, err = DecodeProps(catalog.KindCTA, []byte(`{"tone":"grumpy","content":{}}`))
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestPatch(t *testing.T) {
	base := &HeroContent{Headline: "Old headline", Subheadline: "keep me", CTALabel: "Go"}

	out, err := Patch(base, map[string]any{"headline": "New headline", "ctaLabel": nil})
	require.NoError(t, err)
	hero := out.(*HeroContent)
	assert.Equal(t, "New headline", hero.Headline)
	assert.Equal(t, "keep me", hero.Subheadline)
	assert.Empty(t, hero.CTALabel)
	assert.Equal(t, "Old headline", base.Headline, "base not modified")

	_, err = Patch(base, map[string]any{"unknown": "x"})
	assert.ErrorIs(t, err, ErrInvalidContent)
}

// =============================================================================
// Enricher
// =============================================================================

type stubGenerator struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, _ string, _ llm.GenerationParams) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func TestEnricher_FillsMissingHeadlines(t *testing.T) {
	gen := &stubGenerator{reply: "\"Pages that practically build themselves\"\nextra line"}
	e := NewEnricher(gen, time.Second, nil)

	out := e.Enrich(context.Background(), Graph{}, catalog.ToneBold, []catalog.Kind{catalog.KindHero, catalog.KindCTA, catalog.KindFooter})
	require.NotNil(t, out.Hero)
	require.NotNil(t, out.CTA)
	assert.Equal(t, "Pages that practically build themselves", out.Hero.Headline)
	assert.Equal(t, "Pages that practically build themselves", out.CTA.Headline)
	assert.Nil(t, out.Footer)
	assert.Equal(t, 2, gen.calls)
}

func TestEnricher_KeepsAuthoredContent(t *testing.T) {
	gen := &stubGenerator{reply: "generated"}
	e := NewEnricher(gen, time.Second, nil)
	in := Graph{Hero: &HeroContent{Headline: "Authored headline"}}

	out := e.Enrich(context.Background(), in, catalog.ToneMinimal, []catalog.Kind{catalog.KindHero})
	assert.Equal(t, "Authored headline", out.Hero.Headline)
	assert.Zero(t, gen.calls)
}

func TestEnricher_FailuresLeaveFieldsEmpty(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		e := NewEnricher(&stubGenerator{err: errors.New("boom")}, time.Second, nil)
		out := e.Enrich(context.Background(), Graph{}, catalog.ToneMinimal, []catalog.Kind{catalog.KindHero})
		assert.Empty(t, out.Hero.Headline)
	})

	t.Run("timeout", func(t *testing.T) {
		e := NewEnricher(&stubGenerator{reply: "late", delay: time.Second}, 10*time.Millisecond, nil)
		out := e.Enrich(context.Background(), Graph{}, catalog.ToneMinimal, []catalog.Kind{catalog.KindHero})
		assert.Empty(t, out.Hero.Headline)
	})
}

func TestEnricher_NilClientIsNoop(t *testing.T) {
	var e *Enricher
	in := Graph{CTA: &CTAContent{Body: "x"}}
	out := e.Enrich(context.Background(), in, catalog.ToneMinimal, []catalog.Kind{catalog.KindCTA})
	assert.Equal(t, in, out)
	assert.NotSame(t, in.CTA, out.CTA)
}
