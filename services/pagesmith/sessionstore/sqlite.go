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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSchema creates the sessions table. expires_at is unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	record BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

// SQLiteStore persists sessions in a SQLite table. It has no native TTL: Get
// filters on expires_at and Cleanup deletes expired rows.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// OpenSQLite opens (or creates) the database at path. The path ":memory:"
// keeps the database in memory for the lifetime of the store.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	opts = opts.withDefaults()
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, opts: opts}, nil
}

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM sessions WHERE id = ? AND expires_at > ?",
		id, s.opts.Now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(s.Name(), "get", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, unavailable(s.Name(), "get", fmt.Errorf("decode session record: %w", err))
	}
	return &rec, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, id string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return unavailable(s.Name(), "set", err)
	}
	now := s.opts.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, record, updated_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		id, data, now.UnixMilli(), now.Add(s.opts.TTL).UnixMilli(),
	)
	if err != nil {
		return unavailable(s.Name(), "set", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return unavailable(s.Name(), "delete", err)
	}
	return nil
}

// Cleanup implements Store.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.opts.Now().UnixMilli())
	if err != nil {
		return 0, unavailable(s.Name(), "cleanup", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(s.Name(), "cleanup", err)
	}
	return int(n), nil
}

// rows reports the number of physically stored rows, expired or not.
func (s *SQLiteStore) rows(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
