// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog provides the static registry of section variants.
//
// Every (kind, variant) pair the composer may place on a page is authored
// in catalog.yaml, embedded into the binary and parsed once at process start.
// The registry is read-only after loading and safe for unsynchronized
// concurrent reads.
//
// # Lookup
//
//	cat := catalog.Default()
//	heroes, err := cat.Lookup(catalog.KindHero)
//	meta, err := cat.Get(catalog.KindHero, "centered")
//
// Unknown kinds or variants produce a *NotFoundError, never a silent default.
package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// =============================================================================
// Section kinds and tones
// =============================================================================

// Kind is the structural role of a page block.
type Kind string

const (
	KindHero         Kind = "hero"
	KindFeatures     Kind = "features"
	KindAbout        Kind = "about"
	KindTestimonials Kind = "testimonials"
	KindCTA          Kind = "cta"
	KindFooter       Kind = "footer"
)

// Kinds lists every section kind in canonical page order.
var Kinds = []Kind{KindHero, KindFeatures, KindAbout, KindTestimonials, KindCTA, KindFooter}

// ParseKind converts a string into a known Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &NotFoundError{Kind: Kind(s)}
}

// Tone is a named style axis that biases scoring and default content.
type Tone string

const (
	ToneMinimal   Tone = "minimal"
	ToneBold      Tone = "bold"
	TonePlayful   Tone = "playful"
	ToneCorporate Tone = "corporate"
)

// Tones lists every supported tone.
var Tones = []Tone{ToneMinimal, ToneBold, TonePlayful, ToneCorporate}

// DefaultTone is used when a caller does not request one.
const DefaultTone = ToneMinimal

// ParseTone converts a string into a known Tone.
func ParseTone(s string) (Tone, error) {
	for _, t := range Tones {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

// Size is the estimated payload weight of a variant.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Rank orders sizes from lightest (0) to heaviest (2). Unknown sizes rank as medium.
func (s Size) Rank() int {
	switch s {
	case SizeSmall:
		return 0
	case SizeLarge:
		return 2
	default:
		return 1
	}
}

// =============================================================================
// Section metadata
// =============================================================================

// SlotType classifies a content slot.
type SlotType string

const (
	SlotText  SlotType = "text"
	SlotURL   SlotType = "url"
	SlotImage SlotType = "image"
	SlotList  SlotType = "list"
	SlotForm  SlotType = "form"
)

// ContentSlot declares one piece of content a variant renders.
//
// For text, url and image slots MinLength/MaxLength bound the string length
// in runes. For list and form slots they bound the number of items. A zero
// MaxLength means unbounded.
type ContentSlot struct {
	Key       string   `yaml:"key" json:"key"`
	Type      SlotType `yaml:"type" json:"type"`
	Required  bool     `yaml:"required" json:"required"`
	MinLength int      `yaml:"minLength" json:"minLength,omitempty"`
	MaxLength int      `yaml:"maxLength" json:"maxLength,omitempty"`
	Pattern   string   `yaml:"pattern" json:"pattern,omitempty"`

	pattern *regexp.Regexp
}

// Within reports whether n lies inside the slot's length bounds.
func (s ContentSlot) Within(n int) bool {
	if n < s.MinLength {
		return false
	}
	return s.MaxLength == 0 || n <= s.MaxLength
}

// MatchesPattern reports whether v satisfies the slot's validation pattern.
// Slots without a pattern accept every value.
func (s ContentSlot) MatchesPattern(v string) bool {
	if s.pattern == nil {
		return true
	}
	return s.pattern.MatchString(v)
}

// SectionMeta is the immutable descriptor of one (kind, variant) pair.
//
// The layout signals (density, intensity, size, animation, JS, overflow)
// feed the scoring function and the rule registry; they carry no rendering
// semantics of their own.
type SectionMeta struct {
	Kind            Kind          `yaml:"kind" json:"kind"`
	Variant         string        `yaml:"variant" json:"variant"`
	Name            string        `yaml:"name" json:"name"`
	Description     string        `yaml:"description" json:"description"`
	ContentSlots    []ContentSlot `yaml:"contentSlots" json:"contentSlots"`
	HardConstraints []string      `yaml:"hardConstraints" json:"hardConstraints"`
	SoftConstraints []string      `yaml:"softConstraints" json:"softConstraints"`
	A11yChecklist   []string      `yaml:"a11yChecklist" json:"a11yChecklist"`
	BestFor         []string      `yaml:"bestFor" json:"bestFor,omitempty"`
	AvoidFor        []string      `yaml:"avoidFor" json:"avoidFor,omitempty"`

	EstimatedSize Size             `yaml:"estimatedSize" json:"estimatedSize"`
	HasAnimation  bool             `yaml:"hasAnimation" json:"hasAnimation"`
	RequiresJS    bool             `yaml:"requiresJS" json:"requiresJS"`
	OverflowX     bool             `yaml:"overflowX" json:"overflowX"`
	HeadingLevel  int              `yaml:"headingLevel" json:"headingLevel"`
	HasCTA        bool             `yaml:"hasCTA" json:"hasCTA"`
	Density       int              `yaml:"density" json:"density"`
	Intensity     int              `yaml:"intensity" json:"intensity"`
	ToneBias      map[Tone]float64 `yaml:"toneBias" json:"toneBias"`

	order int
}

// Order is the declaration index of the variant within the whole catalog.
// It is the final tie-breaker everywhere a deterministic choice is needed.
func (m *SectionMeta) Order() int {
	return m.order
}

// Slot returns the declared slot with the given key.
func (m *SectionMeta) Slot(key string) (ContentSlot, bool) {
	for _, s := range m.ContentSlots {
		if s.Key == key {
			return s, true
		}
	}
	return ContentSlot{}, false
}

// Bias returns the authored affinity of the variant for a tone, in [-1, 1].
func (m *SectionMeta) Bias(t Tone) float64 {
	return m.ToneBias[t]
}

// Ref returns the "kind/variant" reference string of the variant.
func (m *SectionMeta) Ref() string {
	return string(m.Kind) + "/" + m.Variant
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog is the read-only registry of section variants.
//
// # Thread Safety
//
// Immutable after Load returns; safe for concurrent reads.
type Catalog struct {
	all    []*SectionMeta
	byKind map[Kind][]*SectionMeta
}

type catalogFile struct {
	Sections []*SectionMeta `yaml:"sections"`
}

// Load parses a YAML catalog document.
//
// # Description
//
// Decodes the document, assigns declaration order, compiles validation
// patterns and checks structural invariants: known kinds, unique variants
// per kind, density and intensity in 1..5, at least one variant per kind.
//
// # Outputs
//
//   - *Catalog: The loaded registry.
//   - error: Non-nil if the document is malformed or violates an invariant.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{byKind: make(map[Kind][]*SectionMeta, len(Kinds))}
	seen := make(map[string]bool)
	for i, meta := range file.Sections {
		if meta == nil {
			return nil, fmt.Errorf("catalog entry %d is empty", i)
		}
		if _, err := ParseKind(string(meta.Kind)); err != nil {
			return nil, fmt.Errorf("catalog entry %d: unknown kind %q", i, meta.Kind)
		}
		if meta.Variant == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): variant is required", i, meta.Kind)
		}
		if seen[meta.Ref()] {
			return nil, fmt.Errorf("catalog entry %d: duplicate variant %s", i, meta.Ref())
		}
		seen[meta.Ref()] = true
		if meta.Density < 1 || meta.Density > 5 {
			return nil, fmt.Errorf("%s: density %d outside 1..5", meta.Ref(), meta.Density)
		}
		if meta.Intensity < 1 || meta.Intensity > 5 {
			return nil, fmt.Errorf("%s: intensity %d outside 1..5", meta.Ref(), meta.Intensity)
		}
		for t, bias := range meta.ToneBias {
			if _, err := ParseTone(string(t)); err != nil {
				return nil, fmt.Errorf("%s: %w", meta.Ref(), err)
			}
			if bias < -1 || bias > 1 {
				return nil, fmt.Errorf("%s: tone bias %v for %s outside [-1, 1]", meta.Ref(), bias, t)
			}
		}
		for j := range meta.ContentSlots {
			slot := &meta.ContentSlots[j]
			if slot.Pattern == "" {
				continue
			}
			re, err := regexp.Compile(slot.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%s: slot %s pattern: %w", meta.Ref(), slot.Key, err)
			}
			slot.pattern = re
		}
		meta.order = i
		c.all = append(c.all, meta)
		c.byKind[meta.Kind] = append(c.byKind[meta.Kind], meta)
	}

	for _, k := range Kinds {
		if len(c.byKind[k]) == 0 {
			return nil, fmt.Errorf("catalog declares no variants for kind %q", k)
		}
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog parsed from the embedded document.
//
// Panics if the embedded document is invalid; that is a build defect, not a
// runtime condition.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup returns every known variant of a kind in declaration order.
func (c *Catalog) Lookup(kind Kind) ([]*SectionMeta, error) {
	metas, ok := c.byKind[kind]
	if !ok {
		return nil, &NotFoundError{Kind: kind}
	}
	out := make([]*SectionMeta, len(metas))
	copy(out, metas)
	return out, nil
}

// Get returns the descriptor of one variant.
func (c *Catalog) Get(kind Kind, variant string) (*SectionMeta, error) {
	metas, ok := c.byKind[kind]
	if !ok {
		return nil, &NotFoundError{Kind: kind, Variant: variant}
	}
	for _, m := range metas {
		if m.Variant == variant {
			return m, nil
		}
	}
	return nil, &NotFoundError{Kind: kind, Variant: variant}
}

// All returns every variant in declaration order.
func (c *Catalog) All() []*SectionMeta {
	out := make([]*SectionMeta, len(c.all))
	copy(out, c.all)
	return out
}
