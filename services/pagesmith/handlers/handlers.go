// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the Gin handlers of the pagesmith HTTP API.
//
// Every handler is a constructor that closes over its dependencies and
// returns a gin.HandlerFunc. Errors are rendered through apperr so every
// failure carries a stable code.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
)

// storeRetryAfter is sent with STORE_UNAVAILABLE responses, in seconds.
const storeRetryAfter = "1"

// renderError writes err as an ErrorResponse with the status of its code.
func renderError(c *gin.Context, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeInternal {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	if e.Code.Retryable() {
		c.Header("Retry-After", storeRetryAfter)
	}
	c.AbortWithStatusJSON(e.Code.HTTPStatus(), e.Response())
}

// sessionID reads and checks the ":id" path parameter.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !session.ValidID(id) {
		renderError(c, apperr.Validation("session id must be 1-64 characters of letters, digits, '-' or '_'"))
		return "", false
	}
	return id, true
}

// Health reports liveness and the active store backend.
func Health(storeName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": storeName})
	}
}
