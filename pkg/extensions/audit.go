// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent records a state-changing request against the API.
//
// # Event Types
//
// Events are named "category.action":
//   - Sessions: "session.create", "session.command", "session.transforms",
//     "session.undo", "session.redo", "session.delete"
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "session.command",
//	    UserID:       authInfo.UserID,
//	    Action:       ActionWrite,
//	    ResourceType: "session",
//	    ResourceID:   sessionID,
//	    Outcome:      OutcomeSuccess,
//	}
type AuditEvent struct {
	// EventType categorizes the event.
	EventType string `json:"eventType"`

	// Timestamp is when the event occurred. If zero, implementations set
	// it to time.Now().UTC().
	Timestamp time.Time `json:"timestamp"`

	// UserID identifies who performed the action, "anonymous" if unknown.
	UserID string `json:"userId"`

	// Action is the authorization action that was checked.
	Action string `json:"action"`

	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId,omitempty"`

	// Outcome is one of the Outcome constants.
	Outcome string `json:"outcome"`

	// Metadata holds request details such as "status", "client_ip" and
	// "duration_ms".
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBlocked = "blocked"
)

// AuditLogger records state-changing requests.
//
// Implementations must be safe for concurrent use. Log is called on the
// request path and should return quickly.
type AuditLogger interface {
	// Log records one event.
	Log(ctx context.Context, event AuditEvent) error

	// Flush persists buffered events. Called once at shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger is the default audit logger. It discards every event.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	return nil
}

// Flush is a no-op since nothing is buffered.
func (l *NopAuditLogger) Flush(ctx context.Context) error {
	return nil
}

// SlogAuditLogger writes events as structured log records at INFO level
// under the "audit" message. It suits deployments that ship logs to a
// central store.
type SlogAuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSlogAuditLogger creates an audit logger writing to logger. A nil
// logger uses slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{
		logger: logger.With("component", "audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Log writes the event.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.UserID == "" {
		event.UserID = "anonymous"
	}
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.Time("timestamp", event.Timestamp),
		slog.String("user_id", event.UserID),
		slog.String("action", event.Action),
		slog.String("resource_type", event.ResourceType),
		slog.String("resource_id", event.ResourceID),
		slog.String("outcome", event.Outcome),
	}
	if len(event.Metadata) > 0 {
		meta := make([]any, 0, 2*len(event.Metadata))
		for k, v := range event.Metadata {
			meta = append(meta, k, v)
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

// Flush is a no-op; slog handlers write synchronously.
func (l *SlogAuditLogger) Flush(ctx context.Context) error {
	return nil
}

// Compile-time interface compliance checks.
var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
