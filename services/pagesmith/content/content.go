// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package content models page content and binds it onto section variants.
//
// Content is a closed set of per-kind schemas (a tagged union keyed by
// section kind). A Graph carries at most one payload per kind; the Binder
// maps that payload onto the content slots a chosen variant declares,
// substituting deterministic placeholders for anything missing or invalid.
//
// Unknown fields are rejected when content is decoded, so a typo in a
// request surfaces as a validation error instead of silently vanishing.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
)

// ErrInvalidContent indicates a content payload could not be decoded for its kind.
var ErrInvalidContent = errors.New("invalid content")

// Content is the payload of one section. Implementations are the per-kind
// schema types below; the set is closed.
type Content interface {
	// Kind returns the section kind this payload belongs to.
	Kind() catalog.Kind

	// Clone returns a deep copy.
	Clone() Content
}

// =============================================================================
// Per-kind schemas
// =============================================================================

// HeroContent is the payload of a hero section.
type HeroContent struct {
	Headline    string   `json:"headline,omitempty"`
	Subheadline string   `json:"subheadline,omitempty"`
	Bullets     []string `json:"bullets,omitempty"`
	CTALabel    string   `json:"ctaLabel,omitempty"`
	CTAHref     string   `json:"ctaHref,omitempty"`
	Image       string   `json:"image,omitempty"`
	ImageAlt    string   `json:"imageAlt,omitempty"`
}

func (c *HeroContent) Kind() catalog.Kind { return catalog.KindHero }

func (c *HeroContent) Clone() Content {
	out := *c
	out.Bullets = cloneSlice(c.Bullets)
	return &out
}

// FeatureItem is one entry of a features section.
type FeatureItem struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// FeaturesContent is the payload of a features section.
type FeaturesContent struct {
	Title string        `json:"title,omitempty"`
	Items []FeatureItem `json:"items,omitempty"`
}

func (c *FeaturesContent) Kind() catalog.Kind { return catalog.KindFeatures }

func (c *FeaturesContent) Clone() Content {
	out := *c
	out.Items = cloneSlice(c.Items)
	return &out
}

// AboutContent is the payload of an about section.
type AboutContent struct {
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	Image    string `json:"image,omitempty"`
	ImageAlt string `json:"imageAlt,omitempty"`
}

func (c *AboutContent) Kind() catalog.Kind { return catalog.KindAbout }

func (c *AboutContent) Clone() Content {
	out := *c
	return &out
}

// Quote is one customer testimonial.
type Quote struct {
	Text      string `json:"text"`
	Author    string `json:"author,omitempty"`
	Role      string `json:"role,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	AvatarAlt string `json:"avatarAlt,omitempty"`
}

// TestimonialsContent is the payload of a testimonials section.
type TestimonialsContent struct {
	Title  string  `json:"title,omitempty"`
	Quotes []Quote `json:"quotes,omitempty"`
}

func (c *TestimonialsContent) Kind() catalog.Kind { return catalog.KindTestimonials }

func (c *TestimonialsContent) Clone() Content {
	out := *c
	out.Quotes = cloneSlice(c.Quotes)
	return &out
}

// FormField is one input of a form.
type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// CTAContent is the payload of a call-to-action section.
type CTAContent struct {
	Headline    string      `json:"headline,omitempty"`
	Body        string      `json:"body,omitempty"`
	ButtonLabel string      `json:"buttonLabel,omitempty"`
	ButtonHref  string      `json:"buttonHref,omitempty"`
	Image       string      `json:"image,omitempty"`
	ImageAlt    string      `json:"imageAlt,omitempty"`
	Form        []FormField `json:"form,omitempty"`
}

func (c *CTAContent) Kind() catalog.Kind { return catalog.KindCTA }

func (c *CTAContent) Clone() Content {
	out := *c
	out.Form = cloneSlice(c.Form)
	return &out
}

// Link is a labelled hyperlink.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// FooterContent is the payload of a footer section.
type FooterContent struct {
	Company   string      `json:"company,omitempty"`
	Links     []Link      `json:"links,omitempty"`
	Copyright string      `json:"copyright,omitempty"`
	Form      []FormField `json:"form,omitempty"`
}

func (c *FooterContent) Kind() catalog.Kind { return catalog.KindFooter }

func (c *FooterContent) Clone() Content {
	out := *c
	out.Links = cloneSlice(c.Links)
	out.Form = cloneSlice(c.Form)
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Empty returns a zero payload of the given kind.
func Empty(kind catalog.Kind) (Content, error) {
	switch kind {
	case catalog.KindHero:
		return &HeroContent{}, nil
	case catalog.KindFeatures:
		return &FeaturesContent{}, nil
	case catalog.KindAbout:
		return &AboutContent{}, nil
	case catalog.KindTestimonials:
		return &TestimonialsContent{}, nil
	case catalog.KindCTA:
		return &CTAContent{}, nil
	case catalog.KindFooter:
		return &FooterContent{}, nil
	}
	return nil, &catalog.NotFoundError{Kind: kind}
}

// =============================================================================
// Content graph
// =============================================================================

// Graph is the caller-supplied content, at most one payload per section kind.
// Every field is optional.
type Graph struct {
	Hero         *HeroContent         `json:"hero,omitempty" yaml:"hero,omitempty"`
	Features     *FeaturesContent     `json:"features,omitempty" yaml:"features,omitempty"`
	About        *AboutContent        `json:"about,omitempty" yaml:"about,omitempty"`
	Testimonials *TestimonialsContent `json:"testimonials,omitempty" yaml:"testimonials,omitempty"`
	CTA          *CTAContent          `json:"cta,omitempty" yaml:"cta,omitempty"`
	Footer       *FooterContent       `json:"footer,omitempty" yaml:"footer,omitempty"`
}

// For returns a deep copy of the payload for kind, or nil when absent.
func (g Graph) For(kind catalog.Kind) Content {
	switch kind {
	case catalog.KindHero:
		if g.Hero != nil {
			return g.Hero.Clone()
		}
	case catalog.KindFeatures:
		if g.Features != nil {
			return g.Features.Clone()
		}
	case catalog.KindAbout:
		if g.About != nil {
			return g.About.Clone()
		}
	case catalog.KindTestimonials:
		if g.Testimonials != nil {
			return g.Testimonials.Clone()
		}
	case catalog.KindCTA:
		if g.CTA != nil {
			return g.CTA.Clone()
		}
	case catalog.KindFooter:
		if g.Footer != nil {
			return g.Footer.Clone()
		}
	}
	return nil
}

// =============================================================================
// Props
// =============================================================================

// Props is the bound content of one placed section plus its resolved tone
// and optional style overrides.
type Props struct {
	Tone    catalog.Tone      `json:"tone"`
	Content Content           `json:"content"`
	Style   map[string]string `json:"style,omitempty"`
}

// Clone returns a deep copy of the props.
func (p Props) Clone() Props {
	out := Props{Tone: p.Tone}
	if p.Content != nil {
		out.Content = p.Content.Clone()
	}
	if p.Style != nil {
		out.Style = make(map[string]string, len(p.Style))
		for k, v := range p.Style {
			out.Style[k] = v
		}
	}
	return out
}

// WithStyle returns a copy of the props with one style override set.
func (p Props) WithStyle(key, value string) Props {
	out := p.Clone()
	if out.Style == nil {
		out.Style = make(map[string]string, 1)
	}
	out.Style[key] = value
	return out
}

type propsWire struct {
	Tone    catalog.Tone      `json:"tone"`
	Content json.RawMessage   `json:"content"`
	Style   map[string]string `json:"style,omitempty"`
}

// DecodeProps decodes props whose content belongs to the given kind.
func DecodeProps(kind catalog.Kind, data []byte) (Props, error) {
	var wire propsWire
	if err := strictUnmarshal(data, &wire); err != nil {
		return Props{}, fmt.Errorf("%w: props: %v", ErrInvalidContent, err)
	}
	if _, err := catalog.ParseTone(string(wire.Tone)); err != nil {
		return Props{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	c, err := Decode(kind, wire.Content)
	if err != nil {
		return Props{}, err
	}
	return Props{Tone: wire.Tone, Content: c, Style: wire.Style}, nil
}

// Decode decodes a content payload of the given kind, rejecting unknown fields.
// A null or empty payload decodes to the kind's zero payload.
func Decode(kind catalog.Kind, data []byte) (Content, error) {
	c, err := Empty(kind)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return c, nil
	}
	if err := strictUnmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidContent, kind, err)
	}
	return c, nil
}

// Patch overlays the top-level fields of patch onto base and returns the
// result as a new payload. The base is not modified.
func Patch(base Content, patch map[string]any) (Content, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return Decode(base.Kind(), out)
}

// Equal reports whether two payloads are structurally identical.
func Equal(a, b Content) bool {
	return reflect.DeepEqual(a, b)
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
