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
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/pagesmith/services/pagesmith/history"
)

const probeID = "__pagesmith_probe__"

// Candidate is one backend in the selection chain.
type Candidate struct {
	Name string
	Open func(ctx context.Context) (Store, error)
}

// Select returns the first candidate that opens and round-trips a probe
// record.
//
// # Description
//
// Candidates are tried in order. A candidate is accepted when it opens and a
// set/get/delete cycle of a probe record succeeds. Rejected backends are
// closed. Selection runs once; the caller keeps the returned store for the
// lifetime of the process.
//
// # Outputs
//
//   - Store: The selected backend.
//   - error: Wraps ErrUnavailable when no candidate works.
func Select(ctx context.Context, candidates []Candidate, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error
	for _, c := range candidates {
		store, err := c.Open(ctx)
		if err != nil {
			logger.Warn("session store backend failed to open", "backend", c.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		if err := probe(ctx, store); err != nil {
			logger.Warn("session store backend failed probe", "backend", c.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			_ = store.Close()
			continue
		}
		logger.Info("session store backend selected", "backend", store.Name())
		return store, nil
	}
	return nil, fmt.Errorf("%w: no backend passed the probe: %w", ErrUnavailable, errors.Join(errs...))
}

func probe(ctx context.Context, s Store) error {
	rec := &Record{ID: probeID, History: history.New(nil).Snapshot()}
	if err := s.Set(ctx, probeID, rec); err != nil {
		return fmt.Errorf("probe set: %w", err)
	}
	got, err := s.Get(ctx, probeID)
	if err != nil {
		return fmt.Errorf("probe get: %w", err)
	}
	if got.ID != probeID {
		return fmt.Errorf("probe get: read back id %q", got.ID)
	}
	if err := s.Delete(ctx, probeID); err != nil {
		return fmt.Errorf("probe delete: %w", err)
	}
	return nil
}
