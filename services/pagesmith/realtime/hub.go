// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package realtime fans session updates out to WebSocket subscribers and
// accepts session operations over the same connection.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
)

// Envelope types.
const (
	TypeResponse = "response"
	TypeUpdate   = "update"
)

// OpSnapshot is the operation of the first update a subscriber receives.
const OpSnapshot = "snapshot"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Envelope is every message the hub sends.
type Envelope struct {
	Type      string                `json:"type"`
	ID        string                `json:"id,omitempty"`
	SessionID string                `json:"sessionId"`
	Operation string                `json:"operation,omitempty"`
	Success   bool                  `json:"success"`
	Data      any                   `json:"data,omitempty"`
	Error     *apperr.ErrorResponse `json:"error,omitempty"`
}

// Message is every message a subscriber may send.
type Message struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
}

// Operations is the subset of the session orchestrator the hub dispatches to.
type Operations interface {
	Get(ctx context.Context, id string) (*session.State, error)
	Preview(ctx context.Context, id, command string) (*session.EditResult, error)
	Command(ctx context.Context, id, command string) (*session.EditResult, error)
	Undo(ctx context.Context, id string) (*session.State, error)
	Redo(ctx context.Context, id string) (*session.State, error)
}

// Config tunes a Hub.
type Config struct {
	// SendBuffer is the per-subscriber queue length. A subscriber whose
	// queue is full is disconnected.
	SendBuffer int

	// CheckOrigin is passed to the upgrader. Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool

	// OnSubscribers is called with the total subscriber count whenever it
	// changes.
	OnSubscribers func(total int)

	Logger *slog.Logger
}

// Hub is a pub/sub broadcaster keyed by session id.
//
// # Description
//
// Each connection gets a writer goroutine and a bounded send queue. Publish
// never blocks: it enqueues to every subscriber of the session except the
// one named by session.OriginFrom(ctx). Hub implements session.Broadcaster.
//
// # Thread Safety
//
// Safe for concurrent use.
type Hub struct {
	ops      Operations
	cfg      Config
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	subs  map[string]map[*client]struct{}
	total int
}

// NewHub creates a Hub.
func NewHub(ops Operations, cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		ops: ops,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		subs: make(map[string]map[*client]struct{}),
	}
}

// =============================================================================
// Publishing
// =============================================================================

// Publish implements session.Broadcaster.
func (h *Hub) Publish(ctx context.Context, ev session.Event) {
	origin := session.OriginFrom(ctx)
	data, err := json.Marshal(Envelope{
		Type:      TypeUpdate,
		SessionID: ev.SessionID,
		Operation: ev.Operation,
		Success:   true,
		Data:      ev.Data,
	})
	if err != nil {
		h.cfg.Logger.Error("Failed to encode realtime update", "session_id", ev.SessionID, "error", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.subs[ev.SessionID] {
		if c.id == origin {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.cfg.Logger.Warn("Dropping slow realtime subscriber", "session_id", ev.SessionID, "client_id", c.id)
		h.remove(c)
	}
}

// Subscribers returns the number of subscribers of sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	for _, set := range h.subs {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		h.remove(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	set, ok := h.subs[c.sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.sessionID] = set
	}
	set[c] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()
	h.notify(total)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	set := h.subs[c.sessionID]
	if _, ok := set[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, c.sessionID)
	}
	h.total--
	total := h.total
	h.mu.Unlock()

	c.close()
	h.notify(total)
}

func (h *Hub) notify(total int) {
	if h.cfg.OnSubscribers != nil {
		h.cfg.OnSubscribers(total)
	}
}

// =============================================================================
// Connections
// =============================================================================

// Handler upgrades GET /v1/sessions/:id/ws. Unknown sessions are rejected
// before the upgrade.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		state, err := h.ops.Get(c.Request.Context(), sessionID)
		if err != nil {
			e := apperr.From(err)
			c.JSON(e.Code.HTTPStatus(), e.Response())
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.cfg.Logger.Error("Failed to upgrade the websocket", "session_id", sessionID, "error", err)
			return
		}

		cl := &client{
			id:        uuid.NewString(),
			sessionID: sessionID,
			conn:      conn,
			send:      make(chan []byte, h.cfg.SendBuffer),
		}
		h.add(cl)
		h.cfg.Logger.Info("Realtime subscriber connected", "session_id", sessionID, "client_id", cl.id)

		go cl.writeLoop(h.cfg.Logger)
		h.reply(cl, Envelope{Type: TypeUpdate, SessionID: sessionID, Operation: OpSnapshot, Success: true, Data: state})
		h.readLoop(c.Request.Context(), cl)

		h.remove(cl)
		h.cfg.Logger.Info("Realtime subscriber disconnected", "session_id", sessionID, "client_id", cl.id)
	}
}

func (h *Hub) readLoop(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := cl.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.cfg.Logger.Debug("Realtime read ended", "client_id", cl.id, "error", err)
			}
			return
		}
		h.reply(cl, h.dispatch(session.WithOrigin(ctx, cl.id), cl.sessionID, msg))
	}
}

func (h *Hub) dispatch(ctx context.Context, sessionID string, msg Message) Envelope {
	env := Envelope{Type: TypeResponse, ID: msg.ID, SessionID: sessionID, Operation: msg.Type}

	var (
		data any
		err  error
	)
	switch msg.Type {
	case session.OpGet:
		data, err = h.ops.Get(ctx, sessionID)
	case session.OpPreview:
		data, err = h.ops.Preview(ctx, sessionID, msg.Command)
	case session.OpCommand:
		data, err = h.ops.Command(ctx, sessionID, msg.Command)
	case session.OpUndo:
		data, err = h.ops.Undo(ctx, sessionID)
	case session.OpRedo:
		data, err = h.ops.Redo(ctx, sessionID)
	default:
		err = apperr.Validation("unknown message type " + `"` + msg.Type + `"`)
	}

	if err != nil {
		resp := apperr.From(err).Response()
		env.Error = &resp
		return env
	}
	env.Success = true
	env.Data = data
	return env
}

func (h *Hub) reply(cl *client, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.cfg.Logger.Error("Failed to encode realtime response", "client_id", cl.id, "error", err)
		return
	}
	if !cl.enqueue(data) {
		h.remove(cl)
	}
}

// client is one WebSocket subscriber.
type client struct {
	id        string
	sessionID string
	conn      *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues data without blocking. It returns false when the client
// is closed or its queue is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writeLoop(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("Failed to write WebSocket message", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
