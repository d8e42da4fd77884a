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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestRateLimiter_BurstThenReject(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2, Now: clock.Now})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per client")

	clock.now = clock.now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refilled")
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{})
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 5, IdleTTL: time.Minute, Now: clock.Now})

	l.Allow("old")
	clock.now = clock.now.Add(2 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.Evict())
	assert.Equal(t, 0, l.Evict())
}

func TestRateLimiter_Middleware(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	l := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1, Now: clock.Now})

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}
