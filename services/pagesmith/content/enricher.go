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
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
)

// DefaultEnrichTimeout bounds one content-generation call.
const DefaultEnrichTimeout = 5 * time.Second

// maxGeneratedRunes caps a generated headline; the binder still applies the
// variant's own bounds afterwards.
const maxGeneratedRunes = 80

// Enricher fills missing headlines in a content graph using a
// content-generation collaborator.
//
// # Description
//
// Enrichment is optional and best effort. Every call is bounded by the
// timeout; a failed or empty generation leaves the field empty so the Binder
// substitutes its deterministic placeholder. Enrich never returns an error.
//
// # Thread Safety
//
// Safe for concurrent use if the underlying client is.
type Enricher struct {
	client  llm.LLMClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnricher creates an Enricher. A zero timeout uses DefaultEnrichTimeout.
func NewEnricher(client llm.LLMClient, timeout time.Duration, logger *slog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{client: client, timeout: timeout, logger: logger}
}

// Enrich returns a copy of graph with missing hero and CTA headlines filled
// in for the requested kinds. The input graph is not modified.
func (e *Enricher) Enrich(ctx context.Context, graph Graph, tone catalog.Tone, kinds []catalog.Kind) Graph {
	out := graph.clone()
	if e == nil || e.client == nil {
		return out
	}
	for _, kind := range kinds {
		switch kind {
		case catalog.KindHero:
			if out.Hero == nil {
				out.Hero = &HeroContent{}
			}
			if out.Hero.Headline == "" {
				out.Hero.Headline = e.generate(ctx, headlinePrompt("hero headline", tone, out))
			}
		case catalog.KindCTA:
			if out.CTA == nil {
				out.CTA = &CTAContent{}
			}
			if out.CTA.Headline == "" {
				out.CTA.Headline = e.generate(ctx, headlinePrompt("call-to-action headline", tone, out))
			}
		}
	}
	return out
}

func (e *Enricher) generate(ctx context.Context, prompt string) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: llm.Float32(0.4),
		MaxTokens:   llm.Int(40),
	})
	if err != nil {
		e.logger.Warn("Content generation failed, keeping placeholder", "error", err)
		return ""
	}
	return cleanGenerated(text)
}

func headlinePrompt(what string, tone catalog.Tone, g Graph) string {
	var b strings.Builder
	b.WriteString("Write one ")
	b.WriteString(string(tone))
	b.WriteString(" ")
	b.WriteString(what)
	b.WriteString(" for a marketing web page, between 20 and 70 characters.")
	if g.Features != nil && len(g.Features.Items) > 0 {
		b.WriteString(" The product offers:")
		for _, item := range g.Features.Items {
			b.WriteString(" ")
			b.WriteString(item.Title)
			b.WriteString(";")
		}
	}
	if g.Footer != nil && g.Footer.Company != "" {
		b.WriteString(" The company is ")
		b.WriteString(g.Footer.Company)
		b.WriteString(".")
	}
	b.WriteString(" Reply with the headline only.")
	return b.String()
}

// cleanGenerated keeps the first non-empty line, strips quotes and caps length.
func cleanGenerated(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxGeneratedRunes {
			line = strings.TrimSpace(string([]rune(line)[:maxGeneratedRunes]))
		}
		return line
	}
	return ""
}

// clone returns a deep copy of the graph.
func (g Graph) clone() Graph {
	var out Graph
	if g.Hero != nil {
		out.Hero = g.Hero.Clone().(*HeroContent)
	}
	if g.Features != nil {
		out.Features = g.Features.Clone().(*FeaturesContent)
	}
	if g.About != nil {
		out.About = g.About.Clone().(*AboutContent)
	}
	if g.Testimonials != nil {
		out.Testimonials = g.Testimonials.Clone().(*TestimonialsContent)
	}
	if g.CTA != nil {
		out.CTA = g.CTA.Clone().(*CTAContent)
	}
	if g.Footer != nil {
		out.Footer = g.Footer.Clone().(*FooterContent)
	}
	return out
}
