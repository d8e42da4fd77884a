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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// =============================================================================
// ServiceOptions Tests
// =============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if _, ok := opts.AuthProvider.(*NopAuthProvider); !ok {
		t.Error("DefaultOptions().AuthProvider should be *NopAuthProvider")
	}
	if _, ok := opts.AuthzProvider.(*NopAuthzProvider); !ok {
		t.Error("DefaultOptions().AuthzProvider should be *NopAuthzProvider")
	}
	if _, ok := opts.AuditLogger.(*NopAuditLogger); !ok {
		t.Error("DefaultOptions().AuditLogger should be *NopAuditLogger")
	}
}

func TestServiceOptions_With(t *testing.T) {
	base := DefaultOptions()
	static := NewStaticTokenProvider(nil)
	roles := NewRoleAuthzProvider("editor")

	opts := base.WithAuth(static).WithAuthz(roles)
	if opts.AuthProvider != static {
		t.Error("WithAuth should replace AuthProvider")
	}
	if opts.AuthzProvider != roles {
		t.Error("WithAuthz should replace AuthzProvider")
	}
	if _, ok := base.AuthProvider.(*NopAuthProvider); !ok {
		t.Error("WithAuth must not modify the receiver")
	}
}

// =============================================================================
// Auth Tests
// =============================================================================

func TestNopAuthProvider_Validate(t *testing.T) {
	info, err := (&NopAuthProvider{}).Validate(context.Background(), "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if info.UserID != "local-user" {
		t.Errorf("UserID = %q, want local-user", info.UserID)
	}
	if !info.HasRole("admin") {
		t.Error("local user should have admin role")
	}
}

func TestStaticTokenProvider_Validate(t *testing.T) {
	p := NewStaticTokenProvider([]StaticToken{
		{Token: "editor-token-0123456789", UserID: "ed", Roles: []string{"editor"}},
		{Token: "viewer-token-0123456789", UserID: "vi", Roles: []string{"viewer"}},
	})

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"editor", "editor-token-0123456789", "ed", false},
		{"viewer", "viewer-token-0123456789", "vi", false},
		{"empty", "", "", true},
		{"unknown", "nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := p.Validate(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("Validate() error = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if info.UserID != tt.want {
				t.Errorf("UserID = %q, want %q", info.UserID, tt.want)
			}
		})
	}
}

func TestRoleAuthzProvider_Authorize(t *testing.T) {
	p := NewRoleAuthzProvider("editor", "admin")
	editor := &AuthInfo{UserID: "ed", Roles: []string{"editor"}}
	viewer := &AuthInfo{UserID: "vi", Roles: []string{"viewer"}}

	tests := []struct {
		name    string
		req     AuthzRequest
		allowed bool
	}{
		{"viewer reads", AuthzRequest{User: viewer, Action: ActionRead, ResourceType: "session"}, true},
		{"viewer writes", AuthzRequest{User: viewer, Action: ActionWrite, ResourceType: "session"}, false},
		{"editor writes", AuthzRequest{User: editor, Action: ActionWrite, ResourceType: "session"}, true},
		{"anonymous", AuthzRequest{Action: ActionRead}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(context.Background(), tt.req)
			if tt.allowed && err != nil {
				t.Errorf("Authorize() error = %v, want nil", err)
			}
			if !tt.allowed && !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestNopAuthzProvider_AllowsEverything(t *testing.T) {
	err := (&NopAuthzProvider{}).Authorize(context.Background(), AuthzRequest{Action: ActionWrite})
	if err != nil {
		t.Errorf("Authorize() error = %v", err)
	}
}

// =============================================================================
// Audit Tests
// =============================================================================

func TestServiceOptions_WithAudit(t *testing.T) {
	audit := NewSlogAuditLogger(nil)
	opts := DefaultOptions().WithAudit(audit)
	if opts.AuditLogger != audit {
		t.Error("WithAudit should replace AuditLogger")
	}
}

func TestNopAuditLogger(t *testing.T) {
	l := &NopAuditLogger{}
	if err := l.Log(context.Background(), AuditEvent{EventType: "session.init"}); err != nil {
		t.Errorf("Log() error = %v", err)
	}
	if err := l.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestSlogAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	err := l.Log(context.Background(), AuditEvent{
		EventType:    "session.delete",
		Action:       ActionWrite,
		ResourceType: "session",
		ResourceID:   "abc",
		Outcome:      OutcomeSuccess,
		Metadata:     map[string]any{"status": 200},
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "audit" || rec["component"] != "audit" {
		t.Errorf("unexpected record header: %v", rec)
	}
	if rec["user_id"] != "anonymous" {
		t.Errorf("user_id = %v, want anonymous", rec["user_id"])
	}
	if rec["event_type"] != "session.delete" || rec["resource_id"] != "abc" {
		t.Errorf("unexpected event fields: %v", rec)
	}
	if rec["timestamp"] != fixed.Format(time.RFC3339) {
		t.Errorf("timestamp = %v", rec["timestamp"])
	}
	meta, ok := rec["metadata"].(map[string]any)
	if !ok || meta["status"] != float64(200) {
		t.Errorf("metadata = %v", rec["metadata"])
	}
}
