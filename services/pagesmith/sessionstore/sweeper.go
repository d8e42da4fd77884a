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
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Expired Session Sweeper
// =============================================================================

// DefaultSweepInterval is how often the sweeper calls Store.Cleanup.
const DefaultSweepInterval = time.Minute

// SweepResult summarizes one cleanup cycle.
type SweepResult struct {
	Backend string
	Removed int
	Started time.Time
	Ended   time.Time
}

// Duration returns how long the cycle took.
func (r SweepResult) Duration() time.Duration {
	return r.Ended.Sub(r.Started)
}

// Sweeper periodically removes expired sessions from a Store.
//
// # Description
//
// Manages the lifecycle of a background goroutine that calls Cleanup at a
// fixed interval. Uses the ticker + done channel pattern for graceful
// shutdown. Get already hides expired records, so the sweeper only reclaims
// space.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	onSweep  func(SweepResult, error)

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
	running bool
}

// NewSweeper creates a sweeper for store. A non-positive interval means
// DefaultSweepInterval.
func NewSweeper(store Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// OnSweep registers a callback invoked after every cycle. Must be called
// before Start.
func (s *Sweeper) OnSweep(fn func(SweepResult, error)) {
	s.onSweep = fn
}

// Start begins the background sweep loop.
//
// # Inputs
//
//   - ctx: When cancelled, the loop stops.
//
// # Outputs
//
//   - error: Non-nil if the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	s.logger.Info("session sweeper starting",
		"backend", s.store.Name(),
		"interval", s.interval.String(),
	)
	go s.runLoop(ctx, s.done, s.stopped)
	return nil
}

// Stop signals the loop to exit and waits for the current cycle to finish.
// Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
	s.logger.Info("session sweeper stopped")
}

// RunNow performs one cleanup cycle immediately.
func (s *Sweeper) RunNow(ctx context.Context) (SweepResult, error) {
	res := SweepResult{Backend: s.store.Name(), Started: time.Now()}
	n, err := s.store.Cleanup(ctx)
	res.Removed = n
	res.Ended = time.Now()
	return res, err
}

func (s *Sweeper) runLoop(ctx context.Context, done, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

func (s *Sweeper) execute(ctx context.Context) {
	res, err := s.RunNow(ctx)
	if s.onSweep != nil {
		s.onSweep(res, err)
	}
	if err != nil {
		s.logger.Error("session sweep failed", "backend", res.Backend, "error", err)
		return
	}
	if res.Removed > 0 {
		s.logger.Info("session sweep completed",
			"backend", res.Backend,
			"removed", res.Removed,
			"duration_ms", res.Duration().Milliseconds(),
		)
	} else {
		s.logger.Debug("session sweep completed (no expired sessions)")
	}
}
