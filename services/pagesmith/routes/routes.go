// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the pagesmith HTTP API onto a Gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/handlers"
	"github.com/AleutianAI/pagesmith/services/pagesmith/middleware"
	"github.com/AleutianAI/pagesmith/services/pagesmith/observability"
	"github.com/AleutianAI/pagesmith/services/pagesmith/realtime"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
)

// Resource types passed to the authorization provider.
const (
	ResourceComposition = "composition"
	ResourceCatalog     = "catalog"
	ResourceSession     = "session"
)

// Dependencies are the components the routes dispatch to. Optional fields
// may be nil.
type Dependencies struct {
	Catalog         *catalog.Catalog
	Composer        *compose.Composer
	ComposeDefaults compose.Config
	Orchestrator    *session.Orchestrator
	StoreName       string

	// Hub serves GET /v1/sessions/:id/ws. Optional.
	Hub *realtime.Hub

	// Metrics records compose outcomes. Optional.
	Metrics *observability.Metrics

	// Gatherer serves GET /metrics. Optional.
	Gatherer prometheus.Gatherer

	// RateLimiter guards /v1. Optional.
	RateLimiter *middleware.RateLimiter

	Options extensions.ServiceOptions
}

// SetupRoutes registers every route on router.
//
//	GET    /health
//	GET    /metrics
//	POST   /v1/compose
//	GET    /v1/catalog
//	GET    /v1/catalog/:kind
//	POST   /v1/audit
//	POST   /v1/sessions
//	GET    /v1/sessions/:id
//	DELETE /v1/sessions/:id
//	POST   /v1/sessions/:id/preview
//	POST   /v1/sessions/:id/command
//	POST   /v1/sessions/:id/transforms
//	POST   /v1/sessions/:id/undo
//	POST   /v1/sessions/:id/redo
//	GET    /v1/sessions/:id/ws
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	opts := deps.Options
	defaults := extensions.DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = defaults.AuthProvider
	}
	if opts.AuthzProvider == nil {
		opts.AuthzProvider = defaults.AuthzProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = defaults.AuditLogger
	}
	read := func(resource string) gin.HandlerFunc {
		return middleware.RequireAction(opts.AuthzProvider, extensions.ActionRead, resource)
	}
	write := func(resource string) gin.HandlerFunc {
		return middleware.RequireAction(opts.AuthzProvider, extensions.ActionWrite, resource)
	}

	router.GET("/health", handlers.Health(deps.StoreName))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider))
	{
		v1.POST("/compose", read(ResourceComposition),
			handlers.Compose(deps.Composer, deps.ComposeDefaults, deps.Metrics))
		v1.GET("/catalog", read(ResourceCatalog), handlers.ListCatalog(deps.Catalog))
		v1.GET("/catalog/:kind", read(ResourceCatalog), handlers.GetCatalogKind(deps.Catalog))
		v1.POST("/audit", read(ResourceSession), handlers.AuditSession(deps.Orchestrator))

		sessions := v1.Group("/sessions", middleware.AuditTrail(opts.AuditLogger, ResourceSession))
		{
			sessions.POST("", write(ResourceSession), handlers.InitSession(deps.Orchestrator))
			sessions.GET("/:id", read(ResourceSession), handlers.GetSession(deps.Orchestrator))
			sessions.DELETE("/:id", write(ResourceSession), handlers.DeleteSession(deps.Orchestrator))
			sessions.POST("/:id/preview", read(ResourceSession), handlers.PreviewSession(deps.Orchestrator))
			sessions.POST("/:id/command", write(ResourceSession), handlers.CommandSession(deps.Orchestrator))
			sessions.POST("/:id/transforms", write(ResourceSession), handlers.ApplyTransforms(deps.Orchestrator))
			sessions.POST("/:id/undo", write(ResourceSession), handlers.UndoSession(deps.Orchestrator))
			sessions.POST("/:id/redo", write(ResourceSession), handlers.RedoSession(deps.Orchestrator))
			if deps.Hub != nil {
				sessions.GET("/:id/ws", write(ResourceSession), deps.Hub.Handler())
			}
		}
	}
}
