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
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pagesmith/pkg/extensions"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAuthProvider struct {
	authInfo *extensions.AuthInfo
	err      error
}

func (m *mockAuthProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.authInfo, nil
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// extractBearerToken Tests
// =============================================================================

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase", "bearer abc123", "abc123"},
		{"mixed case", "BeArEr abc123", "abc123"},
		{"missing", "", ""},
		{"no bearer prefix", "abc123", ""},
		{"basic auth", "Basic abc123", ""},
		{"empty bearer", "Bearer ", ""},
		{"only bearer", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func TestAuthMiddleware_Success(t *testing.T) {
	provider := &mockAuthProvider{authInfo: &extensions.AuthInfo{UserID: "user-123", Roles: []string{"editor"}}}

	router := gin.New()
	router.Use(AuthMiddleware(provider))
	router.GET("/test", func(c *gin.Context) {
		authInfo := GetAuthInfo(c)
		require.NotNil(t, authInfo)
		c.JSON(http.StatusOK, gin.H{"user_id": authInfo.UserID})
	})

	w := serve(router, "GET", "/test", "valid-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-123")
}

func TestAuthMiddleware_Failures(t *testing.T) {
	for name, err := range map[string]error{
		"unauthorized":   extensions.ErrUnauthorized,
		"provider error": errors.New("network error"),
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(&mockAuthProvider{err: err}))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			w := serve(router, "GET", "/test", "some-token")

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestAuthMiddleware_NopProvider(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware(&extensions.NopAuthProvider{}))
	router.GET("/test", func(c *gin.Context) {
		authInfo := GetAuthInfo(c)
		require.NotNil(t, authInfo)
		assert.Equal(t, "local-user", authInfo.UserID)
		c.Status(http.StatusOK)
	})

	w := serve(router, "GET", "/test", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_StaticTokens(t *testing.T) {
	provider := extensions.NewStaticTokenProvider([]extensions.StaticToken{
		{Token: "viewer-token-0123456789", UserID: "vi", Roles: []string{"viewer"}},
	})

	router := gin.New()
	router.Use(AuthMiddleware(provider))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/test", "viewer-token-0123456789").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "GET", "/test", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "GET", "/test", "wrong").Code)
}

// =============================================================================
// RequireAction Tests
// =============================================================================

func TestRequireAction(t *testing.T) {
	provider := extensions.NewStaticTokenProvider([]extensions.StaticToken{
		{Token: "viewer-token-0123456789", UserID: "vi", Roles: []string{"viewer"}},
		{Token: "editor-token-0123456789", UserID: "ed", Roles: []string{"editor"}},
	})
	authz := extensions.NewRoleAuthzProvider("editor")

	router := gin.New()
	router.Use(AuthMiddleware(provider))
	router.GET("/sessions/:id", RequireAction(authz, extensions.ActionRead, "session"),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/sessions/:id/command", RequireAction(authz, extensions.ActionWrite, "session"),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/sessions/s1", "viewer-token-0123456789").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "POST", "/sessions/s1/command", "viewer-token-0123456789").Code)
	assert.Equal(t, http.StatusOK, serve(router, "POST", "/sessions/s1/command", "editor-token-0123456789").Code)
}

// =============================================================================
// Context Helper Tests
// =============================================================================

func TestSetAndGetAuthInfo(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	expected := &extensions.AuthInfo{UserID: "test-user", Roles: []string{"viewer"}}
	SetAuthInfo(c, expected)

	actual := GetAuthInfo(c)
	require.NotNil(t, actual)
	assert.Equal(t, expected.UserID, actual.UserID)
	assert.Equal(t, expected.Roles, actual.Roles)
}

func TestGetAuthInfo_NotSetOrWrongType(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))

	c.Set(authInfoKey, "not an AuthInfo")
	assert.Nil(t, GetAuthInfo(c))
}
