// Package realtime pushes board changes to connected websocket clients.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/funnel-crm-api/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 5 * time.Second
	defaultPong    = 60 * time.Second
	maxMessageSize = 512
)

// Event is the message sent to clients after a board mutation
type Event struct {
	Action   string      `json:"action"`
	FunnelID string      `json:"funnel_id,omitempty"`
	Details  interface{} `json:"details,omitempty"`
	SentAt   time.Time   `json:"sent_at"`
}

type client struct {
	conn     *websocket.Conn
	funnelID string // empty subscribes to every funnel
	writeMu  sync.Mutex
}

func (c *client) send(ev Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

// Hub tracks websocket subscribers and fans out board events
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	log      zerolog.Logger

	// a client that answers no ping within pongWait is dropped
	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewHub creates a hub. allowedOrigin "*" accepts any origin.
func NewHub(allowedOrigin string, m *metrics.Metrics, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		metrics:    m,
		log:        log.With().Str("component", "realtime").Logger(),
		pongWait:   defaultPong,
		pingPeriod: defaultPong * 9 / 10,
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away. The optional funnel_id query parameter narrows the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, funnelID: r.URL.Query().Get("funnel_id")}
	h.register(c)
	defer h.unregister(c)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(c, done)

	// Clients never send anything meaningful; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected(1)
	h.log.Debug().Str("funnel_id", c.funnelID).Msg("Websocket client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.metrics.ClientConnected(-1)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BoardChanged broadcasts an event to every client watching funnelID.
// Clients that fail to receive it are dropped.
func (h *Hub) BoardChanged(_ context.Context, funnelID, action string, details interface{}) {
	ev := Event{Action: action, FunnelID: funnelID, Details: details, SentAt: time.Now().UTC()}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.funnelID == "" || funnelID == "" || c.funnelID == funnelID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(ev); err != nil {
			h.log.Debug().Err(err).Msg("Dropping websocket client")
			h.unregister(c)
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		h.unregister(c)
	}
}
