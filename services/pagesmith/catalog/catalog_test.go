// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Default catalog
// =============================================================================

func TestDefault_LoadsEveryKind(t *testing.T) {
	c := Default()
	for _, k := range Kinds {
		metas, err := c.Lookup(k)
		require.NoError(t, err, k)
		assert.NotEmpty(t, metas, k)
		for _, m := range metas {
			assert.Equal(t, k, m.Kind)
		}
	}
}

func TestDefault_DeclarationOrderIsStable(t *testing.T) {
	all := Default().All()
	require.NotEmpty(t, all)
	for i, m := range all {
		assert.Equal(t, i, m.Order(), m.Ref())
	}
	assert.Equal(t, "hero/centered", all[0].Ref())
}

func TestDefault_HeroVariantsCarryH1(t *testing.T) {
	heroes, err := Default().Lookup(KindHero)
	require.NoError(t, err)
	for _, m := range heroes {
		assert.Equal(t, 1, m.HeadingLevel, m.Ref())
		assert.Contains(t, m.HardConstraints, "single-h1", m.Ref())
	}
}

func TestCatalog_Get(t *testing.T) {
	c := Default()

	t.Run("known variant", func(t *testing.T) {
		m, err := c.Get(KindTestimonials, "carousel")
		require.NoError(t, err)
		assert.Equal(t, "testimonials/carousel", m.Ref())
		assert.True(t, m.OverflowX)
		assert.Greater(t, m.Bias(TonePlayful), m.Bias(ToneCorporate))
	})

	t.Run("unknown variant is a typed NotFound", func(t *testing.T) {
		_, err := c.Get(KindHero, "does-not-exist")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, KindHero, nf.Kind)
		assert.Equal(t, "does-not-exist", nf.Variant)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := c.Lookup(Kind("pricing"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCatalog_LookupReturnsCopy(t *testing.T) {
	c := Default()
	first, err := c.Lookup(KindCTA)
	require.NoError(t, err)
	first[0] = nil

	second, err := c.Lookup(KindCTA)
	require.NoError(t, err)
	assert.NotNil(t, second[0])
}

// =============================================================================
// Load validation
// =============================================================================

const minimalCatalog = `
sections:
  - { kind: hero, variant: a, density: 1, intensity: 1 }
  - { kind: features, variant: a, density: 1, intensity: 1 }
  - { kind: about, variant: a, density: 1, intensity: 1 }
  - { kind: testimonials, variant: a, density: 1, intensity: 1 }
  - { kind: cta, variant: a, density: 1, intensity: 1 }
  - { kind: footer, variant: a, density: 1, intensity: 1 }
`

func TestLoad_Minimal(t *testing.T) {
	c, err := Load([]byte(minimalCatalog))
	require.NoError(t, err)
	assert.Len(t, c.All(), 6)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown kind", minimalCatalog + "  - { kind: pricing, variant: a, density: 1, intensity: 1 }\n"},
		{"duplicate variant", minimalCatalog + "  - { kind: hero, variant: a, density: 1, intensity: 1 }\n"},
		{"density out of range", minimalCatalog + "  - { kind: hero, variant: b, density: 9, intensity: 1 }\n"},
		{"bias out of range", minimalCatalog + "  - { kind: hero, variant: b, density: 1, intensity: 1, toneBias: { bold: 2 } }\n"},
		{"unknown tone", minimalCatalog + "  - { kind: hero, variant: b, density: 1, intensity: 1, toneBias: { grumpy: 0.1 } }\n"},
		{"bad pattern", minimalCatalog + "  - { kind: hero, variant: b, density: 1, intensity: 1, contentSlots: [{ key: headline, type: text, pattern: '(' }] }\n"},
		{"missing kind", "sections:\n  - { kind: hero, variant: a, density: 1, intensity: 1 }\n"},
		{"not yaml", "sections: [:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestContentSlot_Bounds(t *testing.T) {
	s := ContentSlot{MinLength: 2, MaxLength: 4}
	assert.False(t, s.Within(1))
	assert.True(t, s.Within(2))
	assert.True(t, s.Within(4))
	assert.False(t, s.Within(5))

	unbounded := ContentSlot{}
	assert.True(t, unbounded.Within(1000))
}

func TestParseToneAndKind(t *testing.T) {
	tone, err := ParseTone("playful")
	require.NoError(t, err)
	assert.Equal(t, TonePlayful, tone)

	_, err = ParseTone("grumpy")
	assert.Error(t, err)

	kind, err := ParseKind("cta")
	require.NoError(t, err)
	assert.Equal(t, KindCTA, kind)

	_, err = ParseKind("pricing")
	assert.Error(t, err)
}

func TestSize_Rank(t *testing.T) {
	assert.Less(t, SizeSmall.Rank(), SizeMedium.Rank())
	assert.Less(t, SizeMedium.Rank(), SizeLarge.Rank())
}
