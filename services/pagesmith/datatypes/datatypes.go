// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

// =============================================================================
// Composition
// =============================================================================

// SectionRequest asks for one section of a kind.
type SectionRequest struct {
	Kind        string `json:"kind" yaml:"kind" validate:"required,sectionkind"`
	Priority    string `json:"priority,omitempty" yaml:"priority,omitempty" validate:"omitempty,oneof=critical important nice-to-have"`
	VariantHint string `json:"variantHint,omitempty" yaml:"variantHint,omitempty" validate:"omitempty,max=64"`
}

// ComposeConfig overrides the search bounds for one request.
type ComposeConfig struct {
	BeamWidth int `json:"beamWidth,omitempty" yaml:"beamWidth,omitempty" validate:"omitempty,min=1,max=64"`
	MaxDepth  int `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty" validate:"omitempty,min=1,max=32"`
}

// ComposeRequest is the body of POST /v1/compose.
//
// # Fields
//
//   - Tone: Optional. One of the catalog tones; default minimal.
//   - Content: Optional. At most one payload per section kind.
//   - Sections: Required. 1-32 requested sections.
//   - Config: Optional. Search bounds; fields left zero use the server's.
type ComposeRequest struct {
	Tone     string           `json:"tone,omitempty" yaml:"tone,omitempty" validate:"omitempty,tone"`
	Content  content.Graph    `json:"content" yaml:"content"`
	Sections []SectionRequest `json:"sections" yaml:"sections" validate:"required,min=1,max=32,dive"`
	Config   *ComposeConfig   `json:"config,omitempty" yaml:"config,omitempty"`
}

// ToCompose converts the body into engine inputs, filling unset search
// bounds from defaults.
func (r *ComposeRequest) ToCompose(defaults compose.Config) (compose.Request, compose.Config) {
	cfg := defaults
	if r.Config != nil {
		if r.Config.BeamWidth > 0 {
			cfg.BeamWidth = r.Config.BeamWidth
		}
		if r.Config.MaxDepth > 0 {
			cfg.MaxDepth = r.Config.MaxDepth
		}
	}
	return compose.Request{
		Tone:     catalog.Tone(r.Tone),
		Content:  r.Content,
		Sections: toSections(r.Sections),
	}, cfg
}

func toSections(in []SectionRequest) []compose.SectionRequest {
	out := make([]compose.SectionRequest, len(in))
	for i, s := range in {
		out[i] = compose.SectionRequest{
			Kind:        catalog.Kind(s.Kind),
			Priority:    compose.Priority(s.Priority),
			VariantHint: s.VariantHint,
		}
	}
	return out
}

// ComposeResponse is the successful body of POST /v1/compose.
type ComposeResponse struct {
	Sequence  []section.Node         `json:"sequence"`
	Score     float64                `json:"score"`
	Breakdown []compose.SectionScore `json:"breakdown"`
	Warnings  []string               `json:"warnings"`
}

// NewComposeResponse renders a successful composition.
func NewComposeResponse(res *compose.Result) ComposeResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ComposeResponse{
		Sequence:  res.Sequence,
		Score:     res.Score,
		Breakdown: res.Breakdown,
		Warnings:  warnings,
	}
}

// =============================================================================
// Sessions
// =============================================================================

// InitSessionRequest is the body of POST /v1/sessions.
type InitSessionRequest struct {
	SessionID string           `json:"sessionId,omitempty" validate:"omitempty,sessionid"`
	Tone      string           `json:"tone,omitempty" validate:"omitempty,tone"`
	Content   content.Graph    `json:"content"`
	Sections  []SectionRequest `json:"sections" validate:"required,min=1,max=32,dive"`
}

// ToInit converts the body into an orchestrator request.
func (r *InitSessionRequest) ToInit() session.InitRequest {
	return session.InitRequest{
		SessionID: r.SessionID,
		Tone:      catalog.Tone(r.Tone),
		Content:   r.Content,
		Sections:  toSections(r.Sections),
	}
}

// CommandRequest is the body of the preview and command endpoints.
type CommandRequest struct {
	Command string `json:"command" validate:"required,maxcommand"`
}

// TransformsRequest is the body of POST /v1/sessions/:id/transforms.
type TransformsRequest struct {
	Transforms []transform.Spec `json:"transforms" validate:"required,min=1,max=50,dive"`
}

// AuditRequest is the body of POST /v1/audit.
type AuditRequest struct {
	SessionID string `json:"sessionId" validate:"required,sessionid"`
}

// =============================================================================
// Catalog
// =============================================================================

// CatalogResponse lists section variants.
type CatalogResponse struct {
	Sections []*catalog.SectionMeta `json:"sections"`
	Count    int                    `json:"count"`
}

// NewCatalogResponse renders metas.
func NewCatalogResponse(metas []*catalog.SectionMeta) CatalogResponse {
	return CatalogResponse{Sections: metas, Count: len(metas)}
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}
