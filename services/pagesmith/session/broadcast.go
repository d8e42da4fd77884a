// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"regexp"
)

// =============================================================================
// Broadcast feed
// =============================================================================

// Operation names carried by events and metrics.
const (
	OpInit       = "init"
	OpGet        = "get"
	OpPreview    = "preview"
	OpCommand    = "command"
	OpTransforms = "transforms"
	OpUndo       = "undo"
	OpRedo       = "redo"
	OpDelete     = "delete"
	OpAudit      = "audit"
)

// Event is one successful operation fanned out to session subscribers.
type Event struct {
	Operation string `json:"operation"`
	SessionID string `json:"sessionId"`
	Data      any    `json:"data,omitempty"`
}

// Broadcaster receives every successful preview, command, transforms, undo,
// redo and delete result. Publish must not block on slow subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event)
}

type originKey struct{}

// WithOrigin marks ctx as coming from the subscriber with the given id, so
// the broadcaster can skip echoing the update back to it.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin set by WithOrigin, or "".
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is an acceptable session id.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
