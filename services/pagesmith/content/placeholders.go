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
	"strings"
	"unicode"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
)

// Placeholder text is fixed per (kind, slot, tone). Every value satisfies the
// tightest bounds and patterns any catalog variant declares for that slot.
var textPlaceholders = map[string]map[catalog.Tone]string{
	"hero.headline": {
		catalog.ToneMinimal:   "A simpler way to get work done",
		catalog.ToneBold:      "Build what others call impossible",
		catalog.TonePlayful:   "Work that feels a lot like play",
		catalog.ToneCorporate: "Reliable tools for growing teams",
	},
	"hero.subheadline": {
		"": "Everything your team needs in one place.",
	},
	"hero.ctaLabel": {
		catalog.ToneMinimal:   "Get started",
		catalog.ToneBold:      "Start now",
		catalog.TonePlayful:   "Let's go",
		catalog.ToneCorporate: "Request a demo",
	},
	"hero.ctaHref":       {"": "#get-started"},
	"hero.image":         {"": "/placeholders/hero.svg"},
	"features.title":     {"": "What you get"},
	"about.title":        {"": "About us"},
	"about.body":         {"": "We are a small team building careful software for people who care about their craft."},
	"about.image":        {"": "/placeholders/team.svg"},
	"testimonials.title": {"": "What customers say"},
	"cta.headline": {
		catalog.ToneMinimal:   "Ready when you are",
		catalog.ToneBold:      "Stop waiting and start building",
		catalog.TonePlayful:   "Come join the fun today",
		catalog.ToneCorporate: "Talk to our team this week",
	},
	"cta.body":         {"": "No credit card required."},
	"cta.buttonLabel":  {"": "Get started"},
	"cta.buttonHref":   {"": "#get-started"},
	"cta.image":        {"": "/placeholders/offer.svg"},
	"footer.company":   {"": "Your Company"},
	"footer.copyright": {"": "All rights reserved."},
}

// placeholderText returns the deterministic placeholder for a text slot.
func placeholderText(kind catalog.Kind, key string, tone catalog.Tone) string {
	byTone, ok := textPlaceholders[string(kind)+"."+key]
	if !ok {
		return ""
	}
	if v, ok := byTone[tone]; ok {
		return v
	}
	if v, ok := byTone[""]; ok {
		return v
	}
	return byTone[catalog.DefaultTone]
}

var placeholderFeatures = []FeatureItem{
	{Title: "Fast", Description: "Pages load in a blink.", Icon: "bolt"},
	{Title: "Secure", Description: "Your data stays yours.", Icon: "shield"},
	{Title: "Simple", Description: "Nothing to configure.", Icon: "sparkle"},
	{Title: "Supported", Description: "Real people answer.", Icon: "chat"},
	{Title: "Flexible", Description: "Fits the way you work.", Icon: "layers"},
	{Title: "Open", Description: "Export everything, any time.", Icon: "door"},
}

var placeholderQuotes = []Quote{
	{Text: "It changed how our team works.", Author: "Alex Rivera", Role: "Founder"},
	{Text: "Setup took five minutes.", Author: "Sam Lee", Role: "Engineer"},
	{Text: "The support team is wonderful.", Author: "Jordan Kim", Role: "Designer"},
	{Text: "We shipped twice as fast.", Author: "Taylor Morgan", Role: "Product lead"},
}

var placeholderLinks = []Link{
	{Label: "Privacy", Href: "/privacy"},
	{Label: "Terms", Href: "/terms"},
	{Label: "Contact", Href: "/contact"},
}

var placeholderBullets = []string{"No setup", "Cancel any time"}

var placeholderForm = []FormField{
	{Name: "email", Label: "Email address", Type: "email", Required: true},
}

// placeholderCount picks how many placeholder items to emit for a list slot:
// the preferred count clamped into the slot's bounds and the available pool.
func placeholderCount(slot catalog.ContentSlot, preferred, pool int) int {
	n := preferred
	if n < slot.MinLength {
		n = slot.MinLength
	}
	if slot.MaxLength > 0 && n > slot.MaxLength {
		n = slot.MaxLength
	}
	if n > pool {
		n = pool
	}
	return n
}

func placeholderAlt(kind catalog.Kind, subject string) string {
	if strings.TrimSpace(subject) != "" {
		return "Image for " + subject
	}
	return "Illustration for the " + string(kind) + " section"
}

// labelFromName derives a human label from a form field name: "first_name" -> "First name".
func labelFromName(name string) string {
	name = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	if name == "" {
		return "Field"
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
