// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sessionstore

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Records are stored encoded so
// callers never share state with the store.
type MemoryStore struct {
	opts Options

	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory(opts Options) *MemoryStore {
	return &MemoryStore{opts: opts.withDefaults(), entries: make(map[string][]byte)}
}

// Name implements Store.
func (m *MemoryStore) Name() string { return "memory" }

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	data, ok := m.entries[id]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, unavailable(m.Name(), "get", errClosed)
	}
	if !ok {
		return nil, ErrNotFound
	}
	env, err := decode(data)
	if err != nil {
		return nil, unavailable(m.Name(), "get", err)
	}
	if expired(env.ExpiresAt, m.opts.Now()) {
		return nil, ErrNotFound
	}
	return env.Record, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, id string, rec *Record) error {
	data, err := encode(rec, m.opts.Now().Add(m.opts.TTL))
	if err != nil {
		return unavailable(m.Name(), "set", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable(m.Name(), "set", errClosed)
	}
	m.entries[id] = data
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable(m.Name(), "delete", errClosed)
	}
	delete(m.entries, id)
	return nil
}

// Cleanup implements Store.
func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	now := m.opts.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, data := range m.entries {
		env, err := decode(data)
		if err != nil || expired(env.ExpiresAt, now) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of physically stored records, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
