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
	"fmt"
	"unicode/utf8"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
)

// Binder maps content onto the slots a section variant declares.
//
// # Description
//
// For every required slot with no data, and for every supplied value that
// fails the slot's length bounds or validation pattern, the Binder writes a
// fixed placeholder. Content correctness belongs to the content author; it is
// never a reason to fail composition.
//
// After slot binding the Binder normalizes accessibility-relevant fields:
// every image present gets alt text and every form field gets a label.
//
// # Thread Safety
//
// Binder is stateless and safe for concurrent use.
type Binder struct{}

// NewBinder creates a Binder.
func NewBinder() *Binder {
	return &Binder{}
}

// Bind produces the props of a section built from meta and graph.
//
// Bind is a pure function: identical inputs produce identical props.
func (b *Binder) Bind(meta *catalog.SectionMeta, graph Graph, tone catalog.Tone) Props {
	c := graph.For(meta.Kind)
	if c == nil {
		c, _ = Empty(meta.Kind)
	}
	return Props{Tone: tone, Content: b.fill(meta, c, tone)}
}

// Rebind re-validates existing props against another variant of the same kind.
// Tone and style overrides are preserved; the content is copied, never shared.
func (b *Binder) Rebind(meta *catalog.SectionMeta, props Props) Props {
	out := props.Clone()
	c := out.Content
	if c == nil || c.Kind() != meta.Kind {
		c, _ = Empty(meta.Kind)
	}
	out.Content = b.fill(meta, c, out.Tone)
	return out
}

// slotField is a view of one schema field addressed by slot key.
type slotField struct {
	text  *string
	count func() int
	reset func(slot catalog.ContentSlot)
}

func (b *Binder) fill(meta *catalog.SectionMeta, c Content, tone catalog.Tone) Content {
	fields := fieldsOf(c)
	for _, slot := range meta.ContentSlots {
		f, ok := fields[slot.Key]
		if !ok {
			continue
		}
		if f.text != nil {
			v := *f.text
			if v == "" && !slot.Required {
				continue
			}
			if v != "" && slot.Within(utf8.RuneCountInString(v)) && slot.MatchesPattern(v) {
				continue
			}
			*f.text = placeholderText(meta.Kind, slot.Key, tone)
			continue
		}
		n := f.count()
		if n == 0 && !slot.Required {
			continue
		}
		if n > 0 && slot.Within(n) {
			continue
		}
		f.reset(slot)
	}
	normalize(c)
	return c
}

// fieldsOf exposes the slot-addressable fields of a payload.
func fieldsOf(c Content) map[string]slotField {
	switch v := c.(type) {
	case *HeroContent:
		return map[string]slotField{
			"headline":    {text: &v.Headline},
			"subheadline": {text: &v.Subheadline},
			"ctaLabel":    {text: &v.CTALabel},
			"ctaHref":     {text: &v.CTAHref},
			"image":       {text: &v.Image},
			"bullets": {
				count: func() int { return len(v.Bullets) },
				reset: func(s catalog.ContentSlot) {
					v.Bullets = cloneSlice(placeholderBullets[:placeholderCount(s, 2, len(placeholderBullets))])
				},
			},
		}
	case *FeaturesContent:
		return map[string]slotField{
			"title": {text: &v.Title},
			"items": {
				count: func() int { return len(v.Items) },
				reset: func(s catalog.ContentSlot) {
					v.Items = cloneSlice(placeholderFeatures[:placeholderCount(s, 4, len(placeholderFeatures))])
				},
			},
		}
	case *AboutContent:
		return map[string]slotField{
			"title": {text: &v.Title},
			"body":  {text: &v.Body},
			"image": {text: &v.Image},
		}
	case *TestimonialsContent:
		return map[string]slotField{
			"title": {text: &v.Title},
			"quotes": {
				count: func() int { return len(v.Quotes) },
				reset: func(s catalog.ContentSlot) {
					v.Quotes = cloneSlice(placeholderQuotes[:placeholderCount(s, 3, len(placeholderQuotes))])
				},
			},
		}
	case *CTAContent:
		return map[string]slotField{
			"headline":    {text: &v.Headline},
			"body":        {text: &v.Body},
			"buttonLabel": {text: &v.ButtonLabel},
			"buttonHref":  {text: &v.ButtonHref},
			"image":       {text: &v.Image},
			"form": {
				count: func() int { return len(v.Form) },
				reset: func(s catalog.ContentSlot) {
					v.Form = cloneSlice(placeholderForm[:placeholderCount(s, 1, len(placeholderForm))])
				},
			},
		}
	case *FooterContent:
		return map[string]slotField{
			"company":   {text: &v.Company},
			"copyright": {text: &v.Copyright},
			"links": {
				count: func() int { return len(v.Links) },
				reset: func(s catalog.ContentSlot) {
					v.Links = cloneSlice(placeholderLinks[:placeholderCount(s, 3, len(placeholderLinks))])
				},
			},
			"form": {
				count: func() int { return len(v.Form) },
				reset: func(s catalog.ContentSlot) {
					v.Form = cloneSlice(placeholderForm[:placeholderCount(s, 1, len(placeholderForm))])
				},
			},
		}
	}
	return nil
}

// normalize fills alt text for present images and labels for form fields.
func normalize(c Content) {
	switch v := c.(type) {
	case *HeroContent:
		if v.Image != "" && v.ImageAlt == "" {
			v.ImageAlt = placeholderAlt(catalog.KindHero, v.Headline)
		}
	case *AboutContent:
		if v.Image != "" && v.ImageAlt == "" {
			v.ImageAlt = placeholderAlt(catalog.KindAbout, v.Title)
		}
	case *TestimonialsContent:
		for i := range v.Quotes {
			q := &v.Quotes[i]
			if q.Author == "" {
				q.Author = "A happy customer"
			}
			if q.Avatar != "" && q.AvatarAlt == "" {
				q.AvatarAlt = "Photo of " + q.Author
			}
		}
	case *CTAContent:
		if v.Image != "" && v.ImageAlt == "" {
			v.ImageAlt = placeholderAlt(catalog.KindCTA, v.Headline)
		}
		labelForm(v.Form)
	case *FooterContent:
		labelForm(v.Form)
	}
}

func labelForm(fields []FormField) {
	for i := range fields {
		f := &fields[i]
		if f.Name == "" {
			f.Name = fmt.Sprintf("field_%d", i+1)
		}
		if f.Label == "" {
			f.Label = labelFromName(f.Name)
		}
		if f.Type == "" {
			f.Type = "text"
		}
	}
}

// SlotKeys returns the slot keys the schema of kind can hold.
// Used to check a catalog against the content schemas.
func SlotKeys(kind catalog.Kind) []string {
	c, err := Empty(kind)
	if err != nil {
		return nil
	}
	fields := fieldsOf(c)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	return keys
}

// ValidateCatalog checks that every slot a catalog declares is addressable
// in the content schema of its kind.
func ValidateCatalog(cat *catalog.Catalog) error {
	for _, meta := range cat.All() {
		c, err := Empty(meta.Kind)
		if err != nil {
			return err
		}
		fields := fieldsOf(c)
		for _, slot := range meta.ContentSlots {
			f, ok := fields[slot.Key]
			if !ok {
				return fmt.Errorf("%s: slot %q is not part of the %s schema", meta.Ref(), slot.Key, meta.Kind)
			}
			isList := slot.Type == catalog.SlotList || slot.Type == catalog.SlotForm
			if isList != (f.text == nil) {
				return fmt.Errorf("%s: slot %q type %s does not match the schema field", meta.Ref(), slot.Key, slot.Type)
			}
		}
	}
	return nil
}
