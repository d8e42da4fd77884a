// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpret

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/pagesmith/services/llm"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Local
// =============================================================================

func TestLocal_ExampleCommand(t *testing.T) {
	res, err := NewLocal().Interpret(context.Background(), "make the hero more dramatic and add testimonials", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{transform.MakeHeroDramatic, transform.AddSocialProof}, res.Transforms)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Equal(t, SourceLocal, res.Source)
}

func TestLocal_Match(t *testing.T) {
	l := NewLocal()
	tests := []struct {
		command string
		want    []string
	}{
		{"Add a FOOTER please!", []string{transform.AddFooter}},
		{"add a call-to-action", []string{transform.AddCTA}},
		{"simplify it and make it friendlier", []string{transform.MakeFriendly, transform.SimplifyLayout}},
		{"more contrast, more contrast", []string{transform.IncreaseContrast}},
		{"highlight the features", []string{transform.EmphasizeFeatures}},
		{"add CTAs", []string{transform.AddCTA}},
		{"more buttons", []string{transform.AddCTA}},
		{"add footers", []string{transform.AddFooter}},
		{"show some reviews", []string{transform.AddSocialProof}},
		{"contact details in the function", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res := l.Match(tt.command)
			assert.Equal(t, tt.want, res.Transforms)
			if len(tt.want) == 0 {
				assert.Zero(t, res.Confidence)
			} else {
				assert.Equal(t, LocalConfidence, res.Confidence)
			}
		})
	}
}

func TestLocal_OnlyKnownTransforms(t *testing.T) {
	c := transform.NewLibrary(nil)
	for _, rule := range keywordTable {
		_, ok := c.Named(rule.transform)
		assert.True(t, ok, rule.transform)
	}
}

// =============================================================================
// LLM
// =============================================================================

type stubClient struct {
	reply  string
	err    error
	delay  time.Duration
	prompt string
}

func (s *stubClient) Generate(ctx context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.prompt = prompt
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

var allowed = []string{transform.AddCTA, transform.AddFooter, transform.MakeFriendly}

func TestLLM_ParsesAnswer(t *testing.T) {
	client := &stubClient{reply: "Sure!\n```json\n{\"transforms\":[\"addCTA\",\"dance\",\"addCTA\",\"addFooter\"],\"confidence\":0.93,\"reasoning\":\"wants conversion\"}\n```"}
	res, err := NewLLM(client, allowed).Interpret(context.Background(), "make it convert", []section.Node{})
	require.NoError(t, err)
	assert.Equal(t, []string{transform.AddCTA, transform.AddFooter}, res.Transforms)
	assert.Equal(t, 0.93, res.Confidence)
	assert.Equal(t, SourceLLM, res.Source)
	assert.True(t, strings.Contains(client.prompt, "addFooter"))
	assert.True(t, strings.Contains(client.prompt, "make it convert"))
}

func TestLLM_Errors(t *testing.T) {
	_, err := NewLLM(&stubClient{reply: "no json here"}, allowed).Interpret(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrInterpreterUnavailable)

	_, err = NewLLM(&stubClient{err: errors.New("503")}, allowed).Interpret(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrInterpreterUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = NewLLM(&stubClient{delay: time.Second}, allowed).Interpret(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrInterpreterTimeout)
}

// =============================================================================
// Engine
// =============================================================================

type fixedRemote struct {
	res Result
	err error
}

func (f fixedRemote) Interpret(context.Context, string, []section.Node) (Result, error) {
	return f.res, f.err
}

func TestEngine_NoRemoteUsesLocal(t *testing.T) {
	var sources []string
	e := NewEngine(nil, EngineConfig{OnResult: func(s string) { sources = append(sources, s) }})
	res, err := e.Interpret(context.Background(), "add a footer", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{transform.AddFooter}, res.Transforms)
	assert.Equal(t, []string{SourceLocal}, sources)
}

func TestEngine_ConfidentRemoteWins(t *testing.T) {
	remote := fixedRemote{res: Result{Transforms: []string{transform.AddCTA}, Confidence: 0.95}}
	res, err := NewEngine(remote, EngineConfig{}).Interpret(context.Background(), "add a footer", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{transform.AddCTA}, res.Transforms)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, SourceLLM, res.Source)
}

func TestEngine_LowConfidenceIsUnioned(t *testing.T) {
	remote := fixedRemote{res: Result{Transforms: []string{transform.AddCTA, transform.AddFooter}, Confidence: 0.5}}
	res, err := NewEngine(remote, EngineConfig{Threshold: 0.7}).Interpret(context.Background(), "add a footer", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{transform.AddFooter, transform.AddCTA}, res.Transforms)
	assert.Equal(t, LocalConfidence, res.Confidence)
	assert.Equal(t, SourceMerged, res.Source)
}

func TestEngine_ThresholdIsExclusive(t *testing.T) {
	remote := fixedRemote{res: Result{Transforms: []string{transform.AddCTA}, Confidence: 0.7}}
	res, _ := NewEngine(remote, EngineConfig{Threshold: 0.7}).Interpret(context.Background(), "add a footer", nil)
	assert.Equal(t, SourceMerged, res.Source)
}

func TestEngine_RemoteFailureFallsBack(t *testing.T) {
	remote := fixedRemote{err: ErrInterpreterUnavailable}
	res, err := NewEngine(remote, EngineConfig{}).Interpret(context.Background(), "make the hero more dramatic and add testimonials", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{transform.MakeHeroDramatic, transform.AddSocialProof}, res.Transforms)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Equal(t, SourceLocal, res.Source)
}

func TestEngine_RemoteTimeoutFallsBack(t *testing.T) {
	remote := NewLLM(&stubClient{reply: `{"transforms":["addCTA"],"confidence":1}`, delay: time.Second}, allowed)
	start := time.Now()
	res, err := NewEngine(remote, EngineConfig{Timeout: 20 * time.Millisecond}).Interpret(context.Background(), "add a footer", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{transform.AddFooter}, res.Transforms)
	assert.Equal(t, SourceLocal, res.Source)
}
