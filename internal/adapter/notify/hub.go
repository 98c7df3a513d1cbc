// Package notify fans "docs_updated" events out to WebSocket subscribers,
// optionally through a Redis channel so several server instances share them.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"doctrack/internal/infrastructure/metrics"
)

const (
	TypeDocsUpdated = "docs_updated"

	maxTotalConns = 10000
)

var ErrTooManyConnections = errors.New("server connection limit reached")

// Event is the only message shape sent to subscribers.
type Event struct {
	Type string `json:"type"`
}

var docsUpdatedPayload, _ = json.Marshal(Event{Type: TypeDocsUpdated})

type Hub struct {
	mu     sync.RWMutex
	conns  map[*Client]struct{}
	closed bool
	relay  *Relay
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*Client]struct{})}
}

// UseRelay routes broadcasts through r. Call before serving.
func (h *Hub) UseRelay(r *Relay) { h.relay = r }

func (h *Hub) Register(conn *websocket.Conn, name string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.conns) >= maxTotalConns {
		return nil, ErrTooManyConnections
	}
	c := newClient(h, conn, name)
	h.conns[c] = struct{}{}
	metrics.WebSocketConnections.Inc()
	return c, nil
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.Send)
		metrics.WebSocketConnections.Dec()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// BroadcastLocal sends message to every subscriber on this instance.
func (h *Hub) BroadcastLocal(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.TrySend(message)
	}
}

// DocsUpdated tells every subscriber to refetch. With a relay the event goes
// through Redis and comes back to each instance's subscriber loop; if the
// publish fails it is delivered locally instead.
func (h *Hub) DocsUpdated(ctx context.Context) {
	if h.relay != nil {
		err := h.relay.Publish(ctx, docsUpdatedPayload)
		if err == nil {
			return
		}
		slog.Warn("notify: relay publish failed, broadcasting locally", "err", err)
	}
	h.BroadcastLocal(docsUpdatedPayload)
}

// Shutdown closes every subscriber with a going-away frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.conns {
		_ = c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = c.Conn.Close()
		delete(h.conns, c)
		close(c.Send)
		metrics.WebSocketConnections.Dec()
	}
	return nil
}
