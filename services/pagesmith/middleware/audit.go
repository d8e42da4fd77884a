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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
)

// AuditTrail records every state-changing request of a route group.
//
// # Description
//
// Runs after the handler so the outcome reflects the final status. Safe
// methods (GET, HEAD, OPTIONS) are not recorded. The event type is
// "<resourceType>.<operation>", where the operation is "create" for a
// collection route, the lower-cased method for an item route and the last
// path segment otherwise ("session.command", "session.undo").
//
// Audit failures are logged and never fail the request.
func AuditTrail(logger extensions.AuditLogger, resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		event := extensions.AuditEvent{
			EventType:    resourceType + "." + auditOperation(c.FullPath(), c.Request.Method),
			Action:       extensions.ActionWrite,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			Outcome:      auditOutcome(c.Writer.Status()),
			Metadata: map[string]any{
				"status":      c.Writer.Status(),
				"client_ip":   c.ClientIP(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		}
		if info := GetAuthInfo(c); info != nil {
			event.UserID = info.UserID
		}
		if err := logger.Log(c.Request.Context(), event); err != nil {
			slog.Warn("Audit log write failed", "event_type", event.EventType, "error", err)
		}
	}
}

func auditOperation(fullPath, method string) string {
	if !strings.Contains(fullPath, ":") {
		return "create"
	}
	seg := fullPath[strings.LastIndex(fullPath, "/")+1:]
	if strings.HasPrefix(seg, ":") {
		return strings.ToLower(method)
	}
	return seg
}

func auditOutcome(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return extensions.OutcomeBlocked
	case status >= http.StatusBadRequest:
		return extensions.OutcomeFailure
	default:
		return extensions.OutcomeSuccess
	}
}
