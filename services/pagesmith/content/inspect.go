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

// Image is an image reference found in a payload.
type Image struct {
	Field string
	Src   string
	Alt   string
}

// Images returns every non-empty image a payload renders.
func Images(c Content) []Image {
	var out []Image
	add := func(field, src, alt string) {
		if src != "" {
			out = append(out, Image{Field: field, Src: src, Alt: alt})
		}
	}
	switch v := c.(type) {
	case *HeroContent:
		add("image", v.Image, v.ImageAlt)
	case *AboutContent:
		add("image", v.Image, v.ImageAlt)
	case *CTAContent:
		add("image", v.Image, v.ImageAlt)
	case *TestimonialsContent:
		for _, q := range v.Quotes {
			add("quotes.avatar", q.Avatar, q.AvatarAlt)
		}
	}
	return out
}

// FormFields returns the form controls a payload renders.
func FormFields(c Content) []FormField {
	switch v := c.(type) {
	case *CTAContent:
		return v.Form
	case *FooterContent:
		return v.Form
	}
	return nil
}

// Headline returns the primary heading text of a payload.
func Headline(c Content) string {
	switch v := c.(type) {
	case *HeroContent:
		return v.Headline
	case *CTAContent:
		return v.Headline
	case *FeaturesContent:
		return v.Title
	case *AboutContent:
		return v.Title
	case *TestimonialsContent:
		return v.Title
	case *FooterContent:
		return v.Company
	}
	return ""
}

// ItemCount returns the number of repeated items a payload renders
// (features, quotes, links), or 0 for kinds without items.
func ItemCount(c Content) int {
	switch v := c.(type) {
	case *FeaturesContent:
		return len(v.Items)
	case *TestimonialsContent:
		return len(v.Quotes)
	case *FooterContent:
		return len(v.Links)
	}
	return 0
}
