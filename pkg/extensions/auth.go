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
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when authentication or authorization fails.
// Implementations should wrap this error with additional context.
var ErrUnauthorized = errors.New("unauthorized")

// Actions checked by the API.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// AuthInfo contains identity information returned after successful
// authentication.
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// This is the only required field and must never be empty.
	UserID string

	// Email is the user's email address. May be empty.
	Email string

	// Roles contains the user's role memberships for authorization decisions.
	// Common roles: "admin", "editor", "viewer"
	Roles []string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Returns ErrUnauthorized (or wrapped) if the token is invalid, other
	// errors for provider failures.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthzRequest describes an authorization check as (subject, action,
// resource).
type AuthzRequest struct {
	// User is the authenticated user making the request.
	User *AuthInfo

	// Action is the operation being attempted: ActionRead or ActionWrite.
	Action string

	// ResourceType is the category of resource being accessed, such as
	// "session" or "composition".
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	ResourceID string
}

// AuthzProvider checks if a user is authorized to perform an action.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type AuthzProvider interface {
	// Authorize returns nil when the action is allowed and ErrUnauthorized
	// (or wrapped) when it is denied.
	Authorize(ctx context.Context, req AuthzRequest) error
}

// =============================================================================
// Default providers
// =============================================================================

// NopAuthProvider is the default authentication provider.
//
// It always returns a valid local user with admin privileges, so a local
// single-user deployment needs no authentication infrastructure.
type NopAuthProvider struct{}

// Validate always returns a valid local user with admin privileges.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

// NopAuthzProvider is the default authorization provider. It allows every
// action.
type NopAuthzProvider struct{}

// Authorize always returns nil.
func (p *NopAuthzProvider) Authorize(_ context.Context, _ AuthzRequest) error {
	return nil
}

// =============================================================================
// Static providers
// =============================================================================

// StaticToken maps one shared bearer token to an identity.
type StaticToken struct {
	Token  string   `json:"token" yaml:"token" validate:"required,min=16"`
	UserID string   `json:"user" yaml:"user" validate:"required"`
	Roles  []string `json:"roles" yaml:"roles"`
}

// StaticTokenProvider authenticates against a fixed list of tokens.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type StaticTokenProvider struct {
	tokens []StaticToken
}

// NewStaticTokenProvider creates a provider over tokens.
func NewStaticTokenProvider(tokens []StaticToken) *StaticTokenProvider {
	return &StaticTokenProvider{tokens: append([]StaticToken(nil), tokens...)}
}

// Validate compares token against every configured token in constant time.
func (p *StaticTokenProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("missing bearer token: %w", ErrUnauthorized)
	}
	for _, t := range p.tokens {
		if subtle.ConstantTimeCompare([]byte(t.Token), []byte(token)) == 1 {
			return &AuthInfo{UserID: t.UserID, Roles: append([]string(nil), t.Roles...)}, nil
		}
	}
	return nil, fmt.Errorf("unknown token: %w", ErrUnauthorized)
}

// RoleAuthzProvider allows reads to every authenticated user and writes only
// to users holding one of the writer roles.
type RoleAuthzProvider struct {
	writers []string
}

// NewRoleAuthzProvider creates a provider that grants writes to writers.
func NewRoleAuthzProvider(writers ...string) *RoleAuthzProvider {
	return &RoleAuthzProvider{writers: writers}
}

// Authorize implements AuthzProvider.
func (p *RoleAuthzProvider) Authorize(_ context.Context, req AuthzRequest) error {
	if req.User == nil {
		return fmt.Errorf("no authenticated user: %w", ErrUnauthorized)
	}
	if req.Action == ActionRead {
		return nil
	}
	for _, role := range p.writers {
		if req.User.HasRole(role) {
			return nil
		}
	}
	return fmt.Errorf("user %s cannot %s %s: %w", req.User.UserID, req.Action, req.ResourceType, ErrUnauthorized)
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider  = (*NopAuthProvider)(nil)
	_ AuthProvider  = (*StaticTokenProvider)(nil)
	_ AuthzProvider = (*NopAuthzProvider)(nil)
	_ AuthzProvider = (*RoleAuthzProvider)(nil)
)
