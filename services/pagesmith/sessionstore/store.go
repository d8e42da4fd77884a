// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sessionstore persists edit sessions behind a single Store contract.
//
// Three backends are provided. MemoryStore keeps records in process memory,
// BadgerStore uses BadgerDB's native entry TTL, and SQLiteStore keeps an
// expires_at column that is swept by Cleanup. Every backend also checks the
// expiry itself on Get, so an expired record is never returned even when the
// backend has not physically evicted it yet.
//
// Select probes an ordered list of candidates once at startup and returns the
// first backend that round-trips a test record. There is no runtime failover.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/pagesmith/services/pagesmith/history"
)

// TTL is the sliding inactivity window of a session.
const TTL = 30 * time.Minute

var (
	// ErrNotFound is returned by Get for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")

	// ErrUnavailable marks a failure of the backend itself.
	ErrUnavailable = errors.New("session store unavailable")

	errClosed = errors.New("store closed")
)

// Record is one persisted session.
type Record struct {
	ID        string           `json:"id"`
	History   history.Snapshot `json:"history"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Store is the persistence contract shared by all backends.
//
// # Thread Safety
//
// Implementations are safe for concurrent use. Writes to the same id are
// last-write-wins.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Get returns the record for id, or ErrNotFound when it is absent or
	// its TTL has lapsed.
	Get(ctx context.Context, id string) (*Record, error)

	// Set writes rec under id and refreshes its TTL.
	Set(ctx context.Context, id string, rec *Record) error

	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup physically removes expired records and reports how many
	// were removed.
	Cleanup(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Options are shared by every backend.
type Options struct {
	// TTL overrides the inactivity window. Zero means TTL.
	TTL time.Duration

	// Now overrides the clock used for expiry decisions.
	Now func() time.Time

	// Logger receives backend diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = TTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// =============================================================================
// Errors
// =============================================================================

// StoreError describes a failed backend operation.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrUnavailable equivalence for errors.Is.
func (e *StoreError) Is(target error) bool {
	return target == ErrUnavailable
}

func unavailable(backend, op string, err error) error {
	return &StoreError{Backend: backend, Op: op, Err: err}
}

// =============================================================================
// Encoding
// =============================================================================

// envelope is the on-disk form used by the key-value backends.
type envelope struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Record    *Record   `json:"record"`
}

func encode(rec *Record, expires time.Time) ([]byte, error) {
	return json.Marshal(envelope{ExpiresAt: expires, Record: rec})
}

func decode(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("decode session record: %w", err)
	}
	if env.Record == nil {
		return envelope{}, errors.New("decode session record: missing record")
	}
	return env, nil
}

func expired(expires, now time.Time) bool {
	return !now.Before(expires)
}

// =============================================================================
// Error hook
// =============================================================================

// ErrorHook observes backend failures.
type ErrorHook func(backend, op string)

type observed struct {
	Store
	hook ErrorHook
}

// WithErrorHook wraps s so that every ErrUnavailable failure is reported to
// hook before being returned.
func WithErrorHook(s Store, hook ErrorHook) Store {
	if hook == nil {
		return s
	}
	return &observed{Store: s, hook: hook}
}

func (o *observed) report(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		o.hook(o.Name(), op)
	}
	return err
}

func (o *observed) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := o.Store.Get(ctx, id)
	return rec, o.report("get", err)
}

func (o *observed) Set(ctx context.Context, id string, rec *Record) error {
	return o.report("set", o.Store.Set(ctx, id, rec))
}

func (o *observed) Delete(ctx context.Context, id string) error {
	return o.report("delete", o.Store.Delete(ctx, id))
}

func (o *observed) Cleanup(ctx context.Context) (int, error) {
	n, err := o.Store.Cleanup(ctx)
	return n, o.report("cleanup", err)
}
