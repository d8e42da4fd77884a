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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/datatypes"
	"github.com/AleutianAI/pagesmith/services/pagesmith/observability"
)

// Compose handles POST /v1/compose.
//
// # Description
//
// Decodes and validates the request, runs the beam search with the server's
// bounds (overridable per request) and returns the best sequence. A critical
// section that cannot be placed yields 422 with code INFEASIBLE, the kind
// and the violated constraints.
//
// # Inputs
//
//   - composer: The engine. Must not be nil.
//   - defaults: Search bounds used when the request sets none.
//   - metrics: Optional; nil disables recording.
func Compose(composer *compose.Composer, defaults compose.Config, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ComposeRequest
		if err := datatypes.Decode(c.Request.Body, &req); err != nil {
			metrics.RecordCompose(observability.StatusInvalid, 0)
			renderError(c, err)
			return
		}

		creq, cfg := req.ToCompose(defaults)
		start := time.Now()
		res, err := composer.Compose(creq, cfg)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			status := observability.StatusError
			if code := apperr.From(err).Code; code == apperr.CodeValidation || code == apperr.CodeNotFound {
				status = observability.StatusInvalid
			}
			metrics.RecordCompose(status, elapsed)
			renderError(c, err)
			return
		}
		if res.Infeasible != nil {
			metrics.RecordCompose(observability.StatusInfeasible, elapsed)
			slog.Info("Composition infeasible", "kind", res.Infeasible.Kind, "constraints", res.Infeasible.Constraints)
			renderError(c, apperr.FromInfeasible(res.Infeasible))
			return
		}

		metrics.RecordCompose(observability.StatusOK, elapsed)
		c.JSON(http.StatusOK, datatypes.NewComposeResponse(res))
	}
}

// ListCatalog handles GET /v1/catalog.
func ListCatalog(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.NewCatalogResponse(cat.All()))
	}
}

// GetCatalogKind handles GET /v1/catalog/:kind.
func GetCatalogKind(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := catalog.ParseKind(c.Param("kind"))
		if err != nil {
			renderError(c, apperr.Wrap(apperr.CodeNotFound, "unknown section kind", err))
			return
		}
		metas, err := cat.Lookup(kind)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.NewCatalogResponse(metas))
	}
}
