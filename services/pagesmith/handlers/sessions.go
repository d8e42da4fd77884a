// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/pagesmith/services/pagesmith/datatypes"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
)

// InitSession handles POST /v1/sessions. Responds 201 with the session id
// and its composed sequence.
func InitSession(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.InitSessionRequest
		if err := datatypes.Decode(c.Request.Body, &req); err != nil {
			renderError(c, err)
			return
		}
		res, err := orch.Init(c.Request.Context(), req.ToInit())
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// GetSession handles GET /v1/sessions/:id.
func GetSession(orch *session.Orchestrator) gin.HandlerFunc {
	return stateHandler(orch.Get)
}

// UndoSession handles POST /v1/sessions/:id/undo. Undo with nothing to undo
// returns the unchanged state.
func UndoSession(orch *session.Orchestrator) gin.HandlerFunc {
	return stateHandler(orch.Undo)
}

// RedoSession handles POST /v1/sessions/:id/redo.
func RedoSession(orch *session.Orchestrator) gin.HandlerFunc {
	return stateHandler(orch.Redo)
}

func stateHandler(run func(ctx context.Context, id string) (*session.State, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}
		st, err := run(c.Request.Context(), id)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// PreviewSession handles POST /v1/sessions/:id/preview. Nothing is written.
func PreviewSession(orch *session.Orchestrator) gin.HandlerFunc {
	return commandHandler(orch.Preview)
}

// CommandSession handles POST /v1/sessions/:id/command. On success exactly
// one history entry is committed; on failure nothing is.
func CommandSession(orch *session.Orchestrator) gin.HandlerFunc {
	return commandHandler(orch.Command)
}

func commandHandler(run func(ctx context.Context, id, command string) (*session.EditResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}
		var req datatypes.CommandRequest
		if err := datatypes.Decode(c.Request.Body, &req); err != nil {
			renderError(c, err)
			return
		}
		res, err := run(c.Request.Context(), id, req.Command)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ApplyTransforms handles POST /v1/sessions/:id/transforms. All transforms
// commit as one history entry.
func ApplyTransforms(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}
		var req datatypes.TransformsRequest
		if err := datatypes.Decode(c.Request.Body, &req); err != nil {
			renderError(c, err)
			return
		}
		res, err := orch.ApplyTransforms(c.Request.Context(), id, req.Transforms)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// DeleteSession handles DELETE /v1/sessions/:id.
func DeleteSession(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}
		if err := orch.Delete(c.Request.Context(), id); err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "sessionId": id})
	}
}

// AuditSession handles POST /v1/audit.
func AuditSession(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AuditRequest
		if err := datatypes.Decode(c.Request.Body, &req); err != nil {
			renderError(c, err)
			return
		}
		rep, err := orch.Audit(c.Request.Context(), req.SessionID)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}
