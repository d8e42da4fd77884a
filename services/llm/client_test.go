// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoneBackendReturnsErrNoBackend(t *testing.T) {
	for _, backend := range []string{"", "none", "NONE"} {
		client, err := New(Config{Backend: backend})
		assert.Nil(t, client)
		assert.ErrorIs(t, err, ErrNoBackend)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "gemini"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoBackend)
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaClient("", "")
	require.Error(t, err)
}

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: got.Model, Response: "hello", Done: true})
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL+"/", "tiny")
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "say hello", GenerationParams{MaxTokens: Int(16)})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "tiny", got.Model)
	assert.False(t, got.Stream)
	assert.EqualValues(t, 16, got.Options["num_predict"])
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'tiny' not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "tiny")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull tiny")
}

func TestOpenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "prompt text", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "generated"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	client := newOpenAIClientWithConfig(cfg, "test-model")

	out, err := client.Generate(context.Background(), "prompt text", GenerationParams{Temperature: Float32(0)})
	require.NoError(t, err)
	assert.Equal(t, "generated", out)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	client := newOpenAIClientWithConfig(cfg, "m")

	_, err := client.Generate(context.Background(), "p", GenerationParams{})
	require.Error(t, err)
}
