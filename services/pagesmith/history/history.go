// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history implements linear undo/redo over section sequences.
package history

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

// SnapshotVersion is the serialization version written by Snapshot.
const SnapshotVersion = 1

// DefaultLimit caps the number of undo steps kept.
const DefaultLimit = 100

// ErrUnsupportedVersion is returned when restoring an unknown snapshot version.
var ErrUnsupportedVersion = errors.New("unsupported history snapshot version")

// Snapshot is the persisted form of a Manager. It is the only contract
// between the manager and storage.
type Snapshot struct {
	Version int              `json:"version"`
	Past    [][]section.Node `json:"past"`
	Present []section.Node   `json:"present"`
	Future  [][]section.Node `json:"future"`
}

// Manager is a classic linear undo/redo stack.
//
// # Description
//
//   - Push(next): past += [present]; present = next; future = [].
//   - Undo(): if past is empty, no-op; else future = [present] + future and
//     present = past.pop().
//   - Redo(): the inverse of Undo.
//   - Apply(ts): folds ts over present and pushes the result as one entry.
//
// The oldest past entries are dropped once more than the limit are held.
//
// # Thread Safety
//
// Not safe for concurrent use. Sessions load a fresh Manager per request.
type Manager struct {
	past    [][]section.Node
	present []section.Node
	future  [][]section.Node
	limit   int
}

// New creates a Manager whose present is initial.
func New(initial []section.Node) *Manager {
	return &Manager{present: section.Clone(nonNil(initial)), limit: DefaultLimit}
}

// Restore rebuilds a Manager from a snapshot, resolving section metadata
// against cat.
func Restore(s Snapshot, cat *catalog.Catalog) (*Manager, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	m := &Manager{limit: DefaultLimit}
	m.present = section.Clone(nonNil(s.Present))
	if err := section.Hydrate(cat, m.present); err != nil {
		return nil, err
	}
	var err error
	if m.past, err = hydrateAll(cat, s.Past); err != nil {
		return nil, err
	}
	if m.future, err = hydrateAll(cat, s.Future); err != nil {
		return nil, err
	}
	return m, nil
}

// SetLimit changes the number of undo steps kept. Values below 1 are ignored.
func (m *Manager) SetLimit(n int) {
	if n >= 1 {
		m.limit = n
		m.trim()
	}
}

// Snapshot returns a deep copy of the state for persistence.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Past:    cloneAll(m.past),
		Present: section.Clone(m.present),
		Future:  cloneAll(m.future),
	}
}

// Present returns a copy of the current sequence.
func (m *Manager) Present() []section.Node {
	return section.Clone(m.present)
}

// CanUndo reports whether Undo would change the state.
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether Redo would change the state.
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the number of past and future entries.
func (m *Manager) Depth() (past, future int) {
	return len(m.past), len(m.future)
}

// Push makes next the present and clears the redo history.
func (m *Manager) Push(next []section.Node) {
	m.past = append(m.past, m.present)
	m.present = section.Clone(nonNil(next))
	m.future = nil
	m.trim()
}

// Undo steps back one entry and returns the new present.
func (m *Manager) Undo() []section.Node {
	if len(m.past) == 0 {
		return m.Present()
	}
	m.future = append([][]section.Node{m.present}, m.future...)
	m.present = m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	return m.Present()
}

// Redo steps forward one entry and returns the new present.
func (m *Manager) Redo() []section.Node {
	if len(m.future) == 0 {
		return m.Present()
	}
	m.past = append(m.past, m.present)
	m.present = m.future[0]
	m.future = m.future[1:]
	return m.Present()
}

// Simulate folds ts over the present without changing the history.
func (m *Manager) Simulate(ts ...transform.Transform) []section.Node {
	return transform.Chain(ts...)(m.Present())
}

// Apply folds ts over the present and pushes the result as a single entry.
// It returns the new present.
func (m *Manager) Apply(ts ...transform.Transform) []section.Node {
	next := m.Simulate(ts...)
	m.Push(next)
	return m.Present()
}

func (m *Manager) trim() {
	if over := len(m.past) - m.limit; over > 0 {
		m.past = append([][]section.Node(nil), m.past[over:]...)
	}
}

func nonNil(seq []section.Node) []section.Node {
	if seq == nil {
		return []section.Node{}
	}
	return seq
}

func cloneAll(in [][]section.Node) [][]section.Node {
	out := make([][]section.Node, len(in))
	for i, seq := range in {
		out[i] = section.Clone(nonNil(seq))
	}
	return out
}

func hydrateAll(cat *catalog.Catalog, in [][]section.Node) ([][]section.Node, error) {
	out := cloneAll(in)
	for _, seq := range out {
		if err := section.Hydrate(cat, seq); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
