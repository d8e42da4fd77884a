// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
)

type recordingAuditLogger struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
	err    error
}

func (r *recordingAuditLogger) Log(_ context.Context, ev extensions.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingAuditLogger) Flush(context.Context) error { return nil }

func auditRouter(logger extensions.AuditLogger, authz extensions.AuthzProvider) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(&extensions.NopAuthProvider{}))
	g := router.Group("/v1/sessions", AuditTrail(logger, "session"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	g.POST("", ok)
	g.GET("/:id", ok)
	g.DELETE("/:id", ok)
	g.POST("/:id/command", RequireAction(authz, extensions.ActionWrite, "session"), ok)
	g.POST("/:id/undo", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func TestAuditTrail_EventTypes(t *testing.T) {
	rec := &recordingAuditLogger{}
	router := auditRouter(rec, &extensions.NopAuthzProvider{})

	tests := []struct {
		method, path string
		eventType    string
		resourceID   string
		outcome      string
	}{
		{http.MethodPost, "/v1/sessions", "session.create", "", extensions.OutcomeSuccess},
		{http.MethodDelete, "/v1/sessions/abc", "session.delete", "abc", extensions.OutcomeSuccess},
		{http.MethodPost, "/v1/sessions/abc/command", "session.command", "abc", extensions.OutcomeSuccess},
		{http.MethodPost, "/v1/sessions/abc/undo", "session.undo", "abc", extensions.OutcomeFailure},
	}
	for _, tt := range tests {
		serve(router, tt.method, tt.path, "")
	}

	require.Len(t, rec.events, len(tests))
	for i, tt := range tests {
		ev := rec.events[i]
		assert.Equal(t, tt.eventType, ev.EventType)
		assert.Equal(t, tt.resourceID, ev.ResourceID)
		assert.Equal(t, tt.outcome, ev.Outcome)
		assert.Equal(t, "local-user", ev.UserID)
		assert.Equal(t, extensions.ActionWrite, ev.Action)
		assert.Contains(t, ev.Metadata, "status")
	}
}

func TestAuditTrail_SkipsReads(t *testing.T) {
	rec := &recordingAuditLogger{}
	router := auditRouter(rec, &extensions.NopAuthzProvider{})

	w := serve(router, http.MethodGet, "/v1/sessions/abc", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, rec.events)
}

func TestAuditTrail_RecordsBlocked(t *testing.T) {
	rec := &recordingAuditLogger{}
	router := auditRouter(rec, extensions.NewRoleAuthzProvider("editor"))

	// The no-op identity has only the admin role.
	w := serve(router, http.MethodPost, "/v1/sessions/abc/command", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.Len(t, rec.events, 1)
	assert.Equal(t, extensions.OutcomeBlocked, rec.events[0].Outcome)
}

func TestAuditTrail_LoggerErrorDoesNotFailRequest(t *testing.T) {
	rec := &recordingAuditLogger{err: errors.New("sink down")}
	router := auditRouter(rec, &extensions.NopAuthzProvider{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/sessions/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.events, 1)
}

func TestAuditOperation(t *testing.T) {
	assert.Equal(t, "create", auditOperation("/v1/sessions", http.MethodPost))
	assert.Equal(t, "delete", auditOperation("/v1/sessions/:id", http.MethodDelete))
	assert.Equal(t, "transforms", auditOperation("/v1/sessions/:id/transforms", http.MethodPost))
}
