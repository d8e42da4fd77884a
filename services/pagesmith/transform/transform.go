// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform provides the named, pure edit operations applied to a
// page's section sequence.
//
// Every Transform is total over well-formed input and deterministic. When a
// transform has nothing to do it returns its input slice unchanged, so a
// no-op is detectable with section.Equal. Otherwise it returns a new,
// renumbered slice and never mutates the nodes it was given.
package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
)

// ErrUnknownTransform is returned for names the library does not define.
var ErrUnknownTransform = errors.New("unknown transform")

// Transform maps one section sequence to another.
type Transform func(seq []section.Node) []section.Node

// Named transforms.
const (
	MakeHeroDramatic  = "makeHeroDramatic"
	AddSocialProof    = "addSocialProof"
	AddTestimonials   = "addTestimonials"
	IncreaseContrast  = "increaseContrast"
	MakeFriendly      = "makeFriendly"
	AddCTA            = "addCTA"
	EmphasizeFeatures = "emphasizeFeatures"
	SimplifyLayout    = "simplifyLayout"
	AddFooter         = "addFooter"
)

// Parametric transforms, available through FromSpec.
const (
	SwapVariantName     = "swapVariant"
	ReorderSectionsName = "reorderSections"
	UpdateContentName   = "updateContent"
)

// Style keys set by transforms.
const (
	StyleContrast = "contrast"
	StyleCorners  = "corners"
)

// Library resolves transform names and builds parametric transforms.
//
// # Thread Safety
//
// Immutable; safe for concurrent use. The transforms it returns are pure.
type Library struct {
	composer *compose.Composer
	named    map[string]Transform
}

// NewLibrary creates a Library that places and swaps sections with c.
func NewLibrary(c *compose.Composer) *Library {
	l := &Library{composer: c}
	l.named = map[string]Transform{
		MakeHeroDramatic:  l.makeHeroDramatic,
		AddSocialProof:    l.addTestimonials,
		AddTestimonials:   l.addTestimonials,
		IncreaseContrast:  l.increaseContrast,
		MakeFriendly:      l.makeFriendly,
		AddCTA:            l.addCTA,
		EmphasizeFeatures: l.emphasizeFeatures,
		SimplifyLayout:    l.simplifyLayout,
		AddFooter:         l.addFooter,
	}
	return l
}

// Named returns the transform registered under name.
func (l *Library) Named(name string) (Transform, bool) {
	t, ok := l.named[name]
	return t, ok
}

// Names returns every named transform, sorted.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.named))
	for name := range l.named {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve looks up every name and fails on the first unknown one.
func (l *Library) Resolve(names []string) ([]Transform, error) {
	out := make([]Transform, 0, len(names))
	for _, name := range names {
		t, ok := l.named[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Chain folds ts left to right into one transform.
func Chain(ts ...Transform) Transform {
	return func(seq []section.Node) []section.Node {
		for _, t := range ts {
			seq = t(seq)
		}
		return seq
	}
}

// PageTone is the tone of the hero, else of the first section, else the
// default tone.
func PageTone(seq []section.Node) catalog.Tone {
	if i := section.FirstOf(seq, catalog.KindHero); i >= 0 && seq[i].Props.Tone != "" {
		return seq[i].Props.Tone
	}
	if len(seq) > 0 && seq[0].Props.Tone != "" {
		return seq[0].Props.Tone
	}
	return catalog.DefaultTone
}

// =============================================================================
// Named transforms
// =============================================================================

// makeHeroDramatic swaps the hero toward the most intense variant and sets
// its tone to bold.
func (l *Library) makeHeroDramatic(seq []section.Node) []section.Node {
	i := section.FirstOf(seq, catalog.KindHero)
	if i < 0 {
		return seq
	}
	cur := seq[i].Meta
	meta, swap := l.composer.BestVariant(seq, i,
		func(m *catalog.SectionMeta) bool { return cur == nil || m.Intensity > cur.Intensity },
		func(m *catalog.SectionMeta) float64 { return float64(m.Intensity) + m.Bias(catalog.ToneBold) })
	if !swap && seq[i].Props.Tone == catalog.ToneBold {
		return seq
	}
	out := section.Clone(seq)
	if swap {
		out[i] = l.rebind(out[i], meta)
	}
	out[i].Props.Tone = catalog.ToneBold
	return section.Renumber(out)
}

// addTestimonials inserts testimonials after the features, else before the
// CTA, else before the footer, else at the end.
func (l *Library) addTestimonials(seq []section.Node) []section.Node {
	if section.Has(seq, catalog.KindTestimonials) {
		return seq
	}
	at := len(seq)
	if i := lastOf(seq, catalog.KindFeatures); i >= 0 {
		at = i + 1
	} else if i := section.FirstOf(seq, catalog.KindCTA); i >= 0 {
		at = i
	} else if i := section.FirstOf(seq, catalog.KindFooter); i >= 0 {
		at = i
	}
	return l.place(seq, at, catalog.KindTestimonials)
}

// addCTA inserts a call to action before the footer, else at the end.
func (l *Library) addCTA(seq []section.Node) []section.Node {
	if section.Has(seq, catalog.KindCTA) {
		return seq
	}
	at := len(seq)
	if i := section.FirstOf(seq, catalog.KindFooter); i >= 0 {
		at = i
	}
	return l.place(seq, at, catalog.KindCTA)
}

// addFooter appends a footer.
func (l *Library) addFooter(seq []section.Node) []section.Node {
	if section.Has(seq, catalog.KindFooter) {
		return seq
	}
	return l.place(seq, len(seq), catalog.KindFooter)
}

// increaseContrast overrides every section to the bold tone with high contrast.
func (l *Library) increaseContrast(seq []section.Node) []section.Node {
	return restyle(seq, catalog.ToneBold, StyleContrast, "high")
}

// makeFriendly softens every section to the playful tone with rounded corners.
func (l *Library) makeFriendly(seq []section.Node) []section.Node {
	return restyle(seq, catalog.TonePlayful, StyleCorners, "rounded")
}

// emphasizeFeatures moves the features right after the hero and swaps them
// to a larger variant, or adds a features section when there is none.
func (l *Library) emphasizeFeatures(seq []section.Node) []section.Node {
	target := 0
	if h := section.FirstOf(seq, catalog.KindHero); h >= 0 {
		target = h + 1
	}
	i := section.FirstOf(seq, catalog.KindFeatures)
	if i < 0 {
		return l.place(seq, target, catalog.KindFeatures)
	}

	out := seq
	if i != target && target < len(seq) {
		out = move(seq, i, target)
		i = target
	}
	cur := out[i].Meta
	meta, swap := l.composer.BestVariant(out, i,
		func(m *catalog.SectionMeta) bool {
			return cur == nil || m.EstimatedSize.Rank() > cur.EstimatedSize.Rank()
		},
		func(m *catalog.SectionMeta) float64 { return float64(m.EstimatedSize.Rank()) })
	if !swap {
		return out
	}
	cp := section.Clone(out)
	cp[i] = l.rebind(cp[i], meta)
	return section.Renumber(cp)
}

// simplifyLayout swaps every section to its lightest valid variant.
func (l *Library) simplifyLayout(seq []section.Node) []section.Node {
	out := seq
	changed := false
	for i := range seq {
		cur := out[i].Meta
		if cur == nil {
			continue
		}
		meta, swap := l.composer.BestVariant(out, i,
			func(m *catalog.SectionMeta) bool {
				return m.EstimatedSize.Rank() < cur.EstimatedSize.Rank() ||
					(m.EstimatedSize.Rank() == cur.EstimatedSize.Rank() && m.Density < cur.Density)
			},
			func(m *catalog.SectionMeta) float64 { return -float64(m.EstimatedSize.Rank()*10 + m.Density) })
		if !swap {
			continue
		}
		if !changed {
			out = section.Clone(out)
			changed = true
		}
		out[i] = l.rebind(out[i], meta)
	}
	if !changed {
		return seq
	}
	return section.Renumber(out)
}

// =============================================================================
// Parametric transforms
// =============================================================================

// SwapVariant replaces the variant of the section with id. Unknown ids,
// unknown variants and the current variant are no-ops. The result is not
// checked against hard rules; callers validate it.
func (l *Library) SwapVariant(id, variant string) Transform {
	return func(seq []section.Node) []section.Node {
		i := section.IndexOf(seq, id)
		if i < 0 || seq[i].Variant == variant {
			return seq
		}
		meta, err := l.composer.Catalog().Get(seq[i].Kind, variant)
		if err != nil {
			return seq
		}
		out := section.Clone(seq)
		out[i] = l.rebind(out[i], meta)
		return section.Renumber(out)
	}
}

// ReorderSections moves the section at index from to index to. Out of range
// indexes are no-ops. The result is not checked against hard rules; callers
// validate it.
func ReorderSections(from, to int) Transform {
	return func(seq []section.Node) []section.Node {
		if from == to || from < 0 || to < 0 || from >= len(seq) || to >= len(seq) {
			return seq
		}
		return move(seq, from, to)
	}
}

// UpdateContent overlays patch onto the content of the section with id.
// Values that fail the variant's slot rules are replaced by placeholders.
// Unknown ids and patches that do not fit the schema are no-ops.
func (l *Library) UpdateContent(id string, patch map[string]any) Transform {
	return func(seq []section.Node) []section.Node {
		i := section.IndexOf(seq, id)
		if i < 0 || len(patch) == 0 {
			return seq
		}
		patched, err := content.Patch(seq[i].Props.Content, patch)
		if err != nil {
			return seq
		}
		props := seq[i].Props.Clone()
		props.Content = patched
		if seq[i].Meta != nil {
			props = l.composer.Binder().Rebind(seq[i].Meta, props)
		}
		if content.Equal(props.Content, seq[i].Props.Content) {
			return seq
		}
		out := section.Clone(seq)
		out[i].Props = props
		return section.Renumber(out)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (l *Library) place(seq []section.Node, at int, kind catalog.Kind) []section.Node {
	out, ok := l.composer.Place(seq, at, kind, PageTone(seq), content.Graph{})
	if !ok {
		return seq
	}
	return out
}

func (l *Library) rebind(n section.Node, meta *catalog.SectionMeta) section.Node {
	out := section.New(n.ID, meta, l.composer.Binder().Rebind(meta, n.Props))
	out.Position = n.Position
	return out
}

func restyle(seq []section.Node, tone catalog.Tone, key, value string) []section.Node {
	done := true
	for _, n := range seq {
		if n.Props.Tone != tone || n.Props.Style[key] != value {
			done = false
			break
		}
	}
	if done {
		return seq
	}
	out := section.Clone(seq)
	for i := range out {
		out[i].Props = out[i].Props.WithStyle(key, value)
		out[i].Props.Tone = tone
	}
	return section.Renumber(out)
}

func move(seq []section.Node, from, to int) []section.Node {
	out := make([]section.Node, 0, len(seq))
	moved := seq[from]
	for i, n := range seq {
		if i != from {
			out = append(out, n)
		}
	}
	out = append(out[:to], append([]section.Node{moved}, out[to:]...)...)
	return section.Renumber(out)
}

func lastOf(seq []section.Node, kind catalog.Kind) int {
	for i := len(seq) - 1; i >= 0; i-- {
		if seq[i].Kind == kind {
			return i
		}
	}
	return -1
}
