// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec marks a parametric transform missing its parameters.
var ErrInvalidSpec = errors.New("invalid transform spec")

// Spec is the wire form of one transform: a library name plus the
// parameters the parametric transforms need.
type Spec struct {
	Name      string         `json:"name" yaml:"name" validate:"required"`
	SectionID string         `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
	Variant   string         `json:"variant,omitempty" yaml:"variant,omitempty"`
	From      *int           `json:"from,omitempty" yaml:"from,omitempty"`
	To        *int           `json:"to,omitempty" yaml:"to,omitempty"`
	Content   map[string]any `json:"content,omitempty" yaml:"content,omitempty"`
}

// FromSpec builds the transform a Spec describes.
func (l *Library) FromSpec(s Spec) (Transform, error) {
	switch s.Name {
	case SwapVariantName:
		if s.SectionID == "" || s.Variant == "" {
			return nil, fmt.Errorf("%w: %s requires sectionId and variant", ErrInvalidSpec, s.Name)
		}
		return l.SwapVariant(s.SectionID, s.Variant), nil
	case ReorderSectionsName:
		if s.From == nil || s.To == nil {
			return nil, fmt.Errorf("%w: %s requires from and to", ErrInvalidSpec, s.Name)
		}
		return ReorderSections(*s.From, *s.To), nil
	case UpdateContentName:
		if s.SectionID == "" || len(s.Content) == 0 {
			return nil, fmt.Errorf("%w: %s requires sectionId and content", ErrInvalidSpec, s.Name)
		}
		return l.UpdateContent(s.SectionID, s.Content), nil
	}
	t, ok := l.Named(s.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, s.Name)
	}
	return t, nil
}

// FromSpecs builds every transform of specs, in order.
func (l *Library) FromSpecs(specs []Spec) ([]Transform, error) {
	out := make([]Transform, 0, len(specs))
	for i, s := range specs {
		t, err := l.FromSpec(s)
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
