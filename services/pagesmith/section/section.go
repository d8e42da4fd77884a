// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package section defines the placed-section value and helpers over ordered
// section sequences.
//
// Sequences are treated as immutable values. Every helper that changes a
// sequence returns a new slice with cloned nodes.
package section

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
)

// Node is one instantiated section in a page.
//
// Meta is not serialized; it is rehydrated from the catalog by Hydrate after
// a sequence is loaded.
type Node struct {
	ID       string               `json:"id"`
	Kind     catalog.Kind         `json:"kind"`
	Variant  string               `json:"variant"`
	Meta     *catalog.SectionMeta `json:"-"`
	Props    content.Props        `json:"props"`
	Position int                  `json:"position"`
}

type nodeWire struct {
	ID       string          `json:"id"`
	Kind     catalog.Kind    `json:"kind"`
	Variant  string          `json:"variant"`
	Props    json.RawMessage `json:"props"`
	Position int             `json:"position"`
}

// UnmarshalJSON decodes a node, resolving its props against the kind schema.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if _, err := catalog.ParseKind(string(w.Kind)); err != nil {
		return err
	}
	props, err := content.DecodeProps(w.Kind, w.Props)
	if err != nil {
		return fmt.Errorf("section %s: %w", w.ID, err)
	}
	*n = Node{ID: w.ID, Kind: w.Kind, Variant: w.Variant, Props: props, Position: w.Position}
	return nil
}

// New creates a node for meta with the given id and props.
func New(id string, meta *catalog.SectionMeta, props content.Props) Node {
	return Node{ID: id, Kind: meta.Kind, Variant: meta.Variant, Meta: meta, Props: props}
}

// Clone returns a deep copy of the node. Meta is shared; it is immutable.
func (n Node) Clone() Node {
	out := n
	out.Props = n.Props.Clone()
	return out
}

// Ref returns "kind/variant".
func (n Node) Ref() string {
	return string(n.Kind) + "/" + n.Variant
}

// Clone returns a deep copy of seq.
func Clone(seq []Node) []Node {
	if seq == nil {
		return nil
	}
	out := make([]Node, len(seq))
	for i, n := range seq {
		out[i] = n.Clone()
	}
	return out
}

// Renumber returns a copy of seq with positions set to slice indices.
func Renumber(seq []Node) []Node {
	out := Clone(seq)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// Equal reports whether two sequences are structurally identical.
func Equal(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !nodeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b Node) bool {
	if a.ID != b.ID || a.Kind != b.Kind || a.Variant != b.Variant || a.Position != b.Position {
		return false
	}
	if a.Props.Tone != b.Props.Tone {
		return false
	}
	if len(a.Props.Style) != len(b.Props.Style) {
		return false
	}
	for k, v := range a.Props.Style {
		if b.Props.Style[k] != v {
			return false
		}
	}
	return reflect.DeepEqual(a.Props.Content, b.Props.Content)
}

// IndexOf returns the index of the node with id, or -1.
func IndexOf(seq []Node, id string) int {
	for i, n := range seq {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// FirstOf returns the index of the first node of kind, or -1.
func FirstOf(seq []Node, kind catalog.Kind) int {
	for i, n := range seq {
		if n.Kind == kind {
			return i
		}
	}
	return -1
}

// Has reports whether seq contains a node of kind.
func Has(seq []Node, kind catalog.Kind) bool {
	return FirstOf(seq, kind) >= 0
}

// Kinds returns the kinds of seq in order.
func Kinds(seq []Node) []catalog.Kind {
	out := make([]catalog.Kind, len(seq))
	for i, n := range seq {
		out[i] = n.Kind
	}
	return out
}

// Metas returns the descriptors of seq in order.
func Metas(seq []Node) []*catalog.SectionMeta {
	out := make([]*catalog.SectionMeta, len(seq))
	for i, n := range seq {
		out[i] = n.Meta
	}
	return out
}

// NextID returns the id for a new node of kind: "<kind>-N" with the smallest
// N >= 1 not already used in seq.
func NextID(seq []Node, kind catalog.Kind) string {
	used := make(map[int]bool, len(seq))
	prefix := string(kind) + "-"
	for _, n := range seq {
		if !strings.HasPrefix(n.ID, prefix) {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimPrefix(n.ID, prefix)); err == nil {
			used[v] = true
		}
	}
	for i := 1; ; i++ {
		if !used[i] {
			return prefix + strconv.Itoa(i)
		}
	}
}

// Hydrate resolves Meta for every node of seq in place.
func Hydrate(cat *catalog.Catalog, seq []Node) error {
	for i := range seq {
		meta, err := cat.Get(seq[i].Kind, seq[i].Variant)
		if err != nil {
			return fmt.Errorf("section %s: %w", seq[i].ID, err)
		}
		seq[i].Meta = meta
	}
	return nil
}

// Summary renders a one-line-per-section description of seq, used in prompts
// and logs.
func Summary(seq []Node) string {
	var b strings.Builder
	for i, n := range seq {
		fmt.Fprintf(&b, "%d. %s (%s, tone %s)\n", i+1, n.ID, n.Ref(), n.Props.Tone)
	}
	return b.String()
}
