// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session implements the edit-session state machine: command
// interpretation, transform application, undo/redo history and persistence
// through a session store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/audit"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/history"
	"github.com/AleutianAI/pagesmith/services/pagesmith/interpret"
	"github.com/AleutianAI/pagesmith/services/pagesmith/rules"
	"github.com/AleutianAI/pagesmith/services/pagesmith/section"
	"github.com/AleutianAI/pagesmith/services/pagesmith/sessionstore"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

var tracer = otel.Tracer("pagesmith.session")

// =============================================================================
// Types
// =============================================================================

// InitRequest creates a session from a composition request.
type InitRequest struct {
	SessionID string
	Tone      catalog.Tone
	Content   content.Graph
	Sections  []compose.SectionRequest
}

// InitResult is the outcome of Init.
type InitResult struct {
	SessionID string                 `json:"sessionId"`
	Sequence  []section.Node         `json:"sequence"`
	Score     float64                `json:"score"`
	Breakdown []compose.SectionScore `json:"breakdown"`
	Warnings  []string               `json:"warnings"`
}

// State is the present of a session.
type State struct {
	SessionID string         `json:"sessionId"`
	Sequence  []section.Node `json:"sequence"`
	Score     float64        `json:"score"`
	CanUndo   bool           `json:"canUndo"`
	CanRedo   bool           `json:"canRedo"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Analysis explains an edit.
type Analysis struct {
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
	Source     string       `json:"source"`
	Score      float64      `json:"score"`
	Changed    bool         `json:"changed"`
	Audit      audit.Report `json:"audit"`
}

// EditResult is the outcome of Preview, Command and ApplyTransforms.
type EditResult struct {
	SessionID string         `json:"sessionId"`
	Sequence  []section.Node `json:"sequence"`
	Intents   []string       `json:"intents"`
	Warnings  []string       `json:"warnings"`
	Analysis  Analysis       `json:"analysis"`
	Committed bool           `json:"committed"`
	CanUndo   bool           `json:"canUndo"`
	CanRedo   bool           `json:"canRedo"`
}

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	// Compose bounds the search used by Init.
	Compose compose.Config

	// HistoryLimit caps the undo depth. Zero means history.DefaultLimit.
	HistoryLimit int

	// Interpreter resolves commands. Nil means a local-only engine.
	Interpreter interpret.Interpreter

	// Enricher fills missing headlines before Init composes. Optional.
	Enricher *content.Enricher

	// Broadcaster receives successful edits. Optional.
	Broadcaster Broadcaster

	// OnOperation is called once per operation with "ok" or the error code.
	OnOperation func(operation, status string)

	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// Orchestrator runs session operations against a Store.
//
// # Description
//
// Every operation round-trips the session through the store: load, apply,
// save. Previews never write. Concurrent commands against the same session
// race at the store boundary and the last write wins.
//
// # Thread Safety
//
// Safe for concurrent use.
type Orchestrator struct {
	composer *compose.Composer
	library  *transform.Library
	auditor  *audit.Auditor
	store    sessionstore.Store
	opts     Options
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(composer *compose.Composer, store sessionstore.Store, opts Options) *Orchestrator {
	if opts.Compose.BeamWidth == 0 && opts.Compose.MaxDepth == 0 {
		opts.Compose = compose.DefaultConfig
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interpreter == nil {
		opts.Interpreter = interpret.NewEngine(nil, interpret.EngineConfig{Logger: opts.Logger})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		composer: composer,
		library:  transform.NewLibrary(composer),
		auditor:  audit.NewAuditor(composer.Rules()),
		store:    store,
		opts:     opts,
	}
}

// SetBroadcaster installs the broadcast feed. It must be called before the
// orchestrator serves requests.
func (o *Orchestrator) SetBroadcaster(b Broadcaster) {
	o.opts.Broadcaster = b
}

// Library returns the transform library used for edits.
func (o *Orchestrator) Library() *transform.Library {
	return o.library
}

// =============================================================================
// Operations
// =============================================================================

// Init composes the initial sequence and persists a new session.
//
// # Description
//
// An empty SessionID is replaced by a generated UUID. An existing session
// with the same id is replaced. Infeasible requests return an apperr with
// CodeInfeasible and persist nothing.
func (o *Orchestrator) Init(ctx context.Context, req InitRequest) (res *InitResult, err error) {
	ctx, span := o.start(ctx, OpInit, req.SessionID)
	defer func() { o.finish(span, OpInit, err) }()

	id := req.SessionID
	if id == "" {
		id = o.opts.NewID()
	} else if !ValidID(id) {
		return nil, apperr.Validation("sessionId must match [A-Za-z0-9_-]{1,64}")
	}
	span.SetAttributes(attribute.String("session.id", id))

	graph := req.Content
	if o.opts.Enricher != nil {
		kinds := make([]catalog.Kind, 0, len(req.Sections))
		for _, s := range req.Sections {
			kinds = append(kinds, s.Kind)
		}
		graph = o.opts.Enricher.Enrich(ctx, graph, req.Tone, kinds)
	}

	out, err := o.composer.Compose(compose.Request{Tone: req.Tone, Content: graph, Sections: req.Sections}, o.opts.Compose)
	if err != nil {
		return nil, apperr.From(err)
	}
	if out.Infeasible != nil {
		return nil, apperr.FromInfeasible(out.Infeasible)
	}

	m := history.New(out.Sequence)
	m.SetLimit(o.opts.HistoryLimit)
	now := o.opts.Now()
	rec := &sessionstore.Record{ID: id, History: m.Snapshot(), CreatedAt: now, UpdatedAt: now}
	if err := o.store.Set(ctx, id, rec); err != nil {
		return nil, err
	}

	o.opts.Logger.Info("Session created", "session_id", id, "sections", len(out.Sequence), "score", out.Score)
	return &InitResult{
		SessionID: id,
		Sequence:  m.Present(),
		Score:     out.Score,
		Breakdown: out.Breakdown,
		Warnings:  out.Warnings,
	}, nil
}

// Get returns the present state of a session.
func (o *Orchestrator) Get(ctx context.Context, id string) (st *State, err error) {
	ctx, span := o.start(ctx, OpGet, id)
	defer func() { o.finish(span, OpGet, err) }()

	rec, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.state(rec, m), nil
}

// Preview interprets command and returns what it would produce without
// touching history or the store.
func (o *Orchestrator) Preview(ctx context.Context, id, command string) (res *EditResult, err error) {
	ctx, span := o.start(ctx, OpPreview, id)
	defer func() { o.finish(span, OpPreview, err) }()

	_, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	interp, ts, warnings, err := o.interpret(ctx, command, m.Present())
	if err != nil {
		return nil, err
	}

	before := m.Present()
	next := m.Simulate(ts...)
	res = o.result(id, before, next, interp, warnings)
	if vs := o.composer.Rules().CheckHard(next); len(vs) > 0 && res.Analysis.Changed {
		res.Warnings = append(res.Warnings, violationWarnings(vs)...)
	}
	res.CanUndo, res.CanRedo = m.CanUndo(), m.CanRedo()
	o.publish(ctx, OpPreview, id, res)
	return res, nil
}

// Command interprets command and commits the result as one history entry.
//
// # Description
//
// Nothing is written when no transform matches the command. A matched
// command is committed even when it leaves the sequence unchanged. An edit
// that would break a hard rule is rejected with CodeValidation and nothing
// is committed.
func (o *Orchestrator) Command(ctx context.Context, id, command string) (res *EditResult, err error) {
	ctx, span := o.start(ctx, OpCommand, id)
	defer func() { o.finish(span, OpCommand, err) }()

	rec, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	interp, ts, warnings, err := o.interpret(ctx, command, m.Present())
	if err != nil {
		return nil, err
	}
	res, err = o.commit(ctx, rec, m, ts, interp, warnings)
	if err != nil {
		return nil, err
	}
	if res.Committed {
		o.publish(ctx, OpCommand, id, res)
	}
	return res, nil
}

// ApplyTransforms commits explicit transform specs as one history entry.
func (o *Orchestrator) ApplyTransforms(ctx context.Context, id string, specs []transform.Spec) (res *EditResult, err error) {
	ctx, span := o.start(ctx, OpTransforms, id)
	defer func() { o.finish(span, OpTransforms, err) }()

	if len(specs) == 0 {
		return nil, apperr.Validation("at least one transform is required")
	}
	ts, err := o.library.FromSpecs(specs)
	if err != nil {
		return nil, apperr.From(err)
	}
	rec, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	interp := interpret.Result{Transforms: names, Confidence: 1, Source: "explicit"}
	res, err = o.commit(ctx, rec, m, ts, interp, nil)
	if err != nil {
		return nil, err
	}
	if res.Committed {
		o.publish(ctx, OpTransforms, id, res)
	}
	return res, nil
}

// Undo steps back one history entry. Undo with no past is a no-op that
// writes nothing.
func (o *Orchestrator) Undo(ctx context.Context, id string) (*State, error) {
	return o.step(ctx, OpUndo, id, (*history.Manager).CanUndo, (*history.Manager).Undo)
}

// Redo steps forward one history entry. Redo with no future is a no-op.
func (o *Orchestrator) Redo(ctx context.Context, id string) (*State, error) {
	return o.step(ctx, OpRedo, id, (*history.Manager).CanRedo, (*history.Manager).Redo)
}

// Delete removes a session.
func (o *Orchestrator) Delete(ctx context.Context, id string) (err error) {
	ctx, span := o.start(ctx, OpDelete, id)
	defer func() { o.finish(span, OpDelete, err) }()

	if _, _, err := o.load(ctx, id); err != nil {
		return err
	}
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	o.publish(ctx, OpDelete, id, map[string]string{"sessionId": id})
	return nil
}

// Audit runs the audit engine over the session's present sequence.
func (o *Orchestrator) Audit(ctx context.Context, id string) (rep *audit.Report, err error) {
	ctx, span := o.start(ctx, OpAudit, id)
	defer func() { o.finish(span, OpAudit, err) }()

	_, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r := o.auditor.Audit(m.Present())
	return &r, nil
}

// =============================================================================
// Internals
// =============================================================================

func (o *Orchestrator) load(ctx context.Context, id string) (*sessionstore.Record, *history.Manager, error) {
	if !ValidID(id) {
		return nil, nil, apperr.Validation("sessionId must match [A-Za-z0-9_-]{1,64}")
	}
	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	m, err := history.Restore(rec.History, o.composer.Catalog())
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "session record is unreadable", err)
	}
	m.SetLimit(o.opts.HistoryLimit)
	return rec, m, nil
}

func (o *Orchestrator) save(ctx context.Context, rec *sessionstore.Record, m *history.Manager) error {
	rec.History = m.Snapshot()
	rec.UpdatedAt = o.opts.Now()
	return o.store.Set(ctx, rec.ID, rec)
}

// interpret resolves command into transforms. Names the library does not
// know are dropped with a warning.
func (o *Orchestrator) interpret(ctx context.Context, command string, seq []section.Node) (interpret.Result, []transform.Transform, []string, error) {
	if strings.TrimSpace(command) == "" {
		return interpret.Result{}, nil, nil, apperr.Validation("command must not be empty")
	}
	res, err := o.opts.Interpreter.Interpret(ctx, command, seq)
	if err != nil {
		// Engine never fails; a bare interpreter might.
		o.opts.Logger.Warn("Interpreter failed, no transforms applied", "error", err)
		res = interpret.Result{Source: interpret.SourceLocal}
	}

	var warnings []string
	ts := make([]transform.Transform, 0, len(res.Transforms))
	intents := make([]string, 0, len(res.Transforms))
	for _, name := range res.Transforms {
		t, ok := o.library.Named(name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown transform %q ignored", name))
			continue
		}
		ts = append(ts, t)
		intents = append(intents, name)
	}
	res.Transforms = intents
	if len(ts) == 0 {
		warnings = append(warnings, "no transform matched the command")
	}
	return res, ts, warnings, nil
}

func (o *Orchestrator) commit(ctx context.Context, rec *sessionstore.Record, m *history.Manager,
	ts []transform.Transform, interp interpret.Result, warnings []string) (*EditResult, error) {
	before := m.Present()
	next := m.Simulate(ts...)
	res := o.result(rec.ID, before, next, interp, warnings)

	// Every resolved command is one history entry, even when it leaves the
	// page unchanged, so undo counts match command counts.
	if len(ts) > 0 {
		if res.Analysis.Changed {
			if vs := o.composer.Rules().CheckHard(next); len(vs) > 0 {
				e := apperr.Validation("edit rejected: " + strings.Join(violationWarnings(vs), "; "))
				e.Message = "edit would violate hard constraints"
				return nil, e
			}
		}
		m.Apply(ts...)
		if err := o.save(ctx, rec, m); err != nil {
			return nil, err
		}
		res.Committed = true
	}
	res.CanUndo, res.CanRedo = m.CanUndo(), m.CanRedo()
	return res, nil
}

func (o *Orchestrator) step(ctx context.Context, op, id string,
	can func(*history.Manager) bool, move func(*history.Manager) []section.Node) (st *State, err error) {
	ctx, span := o.start(ctx, op, id)
	defer func() { o.finish(span, op, err) }()

	rec, m, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !can(m) {
		return o.state(rec, m), nil
	}
	move(m)
	if err := o.save(ctx, rec, m); err != nil {
		return nil, err
	}
	st = o.state(rec, m)
	o.publish(ctx, op, id, st)
	return st, nil
}

func (o *Orchestrator) result(id string, before, next []section.Node, interp interpret.Result, warnings []string) *EditResult {
	score, _ := o.composer.Scorer().ScoreSequence(next)
	intents := interp.Transforms
	if intents == nil {
		intents = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return &EditResult{
		SessionID: id,
		Sequence:  next,
		Intents:   intents,
		Warnings:  warnings,
		Analysis: Analysis{
			Confidence: interp.Confidence,
			Reasoning:  interp.Reasoning,
			Source:     interp.Source,
			Score:      score,
			Changed:    !section.Equal(before, next),
			Audit:      o.auditor.Audit(next),
		},
	}
}

func (o *Orchestrator) state(rec *sessionstore.Record, m *history.Manager) *State {
	seq := m.Present()
	score, _ := o.composer.Scorer().ScoreSequence(seq)
	return &State{
		SessionID: rec.ID,
		Sequence:  seq,
		Score:     score,
		CanUndo:   m.CanUndo(),
		CanRedo:   m.CanRedo(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (o *Orchestrator) publish(ctx context.Context, op, id string, data any) {
	if o.opts.Broadcaster == nil {
		return
	}
	o.opts.Broadcaster.Publish(ctx, Event{Operation: op, SessionID: id, Data: data})
}

func (o *Orchestrator) start(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "session."+op, trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("session.operation", op),
	))
}

func (o *Orchestrator) finish(span trace.Span, op string, err error) {
	status := "ok"
	if err != nil {
		code := apperr.From(err).Code
		status = string(code)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		if code == apperr.CodeStoreUnavailable || code == apperr.CodeInternal {
			o.opts.Logger.Error("Session operation failed", "operation", op, "error", err)
		}
	}
	span.End()
	if o.opts.OnOperation != nil {
		o.opts.OnOperation(op, status)
	}
}

func violationWarnings(vs []rules.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if v.SectionID != "" {
			out[i] = fmt.Sprintf("%s (%s): %s", v.Rule, v.SectionID, v.Message)
		} else {
			out[i] = fmt.Sprintf("%s: %s", v.Rule, v.Message)
		}
	}
	return out
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sessionstore.ErrNotFound)
}
