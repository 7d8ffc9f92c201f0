package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/status"
)

// Event types sent on /api/events.
const (
	EventStatus = "status"
	EventAction = "action"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	defaultSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// envelope is the wire format of every event frame.
type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data"`
}

type statusData struct {
	Text string `json:"text"`
}

type actionData struct {
	Source    action.Source `json:"source"`
	Action    action.Event  `json:"action"`
	Label     string        `json:"label"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	AtMs      int64         `json:"at_ms"`
	LatencyMs int64         `json:"latency_ms"`
}

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// EventsHandler streams status changes and dispatch results to websocket
// clients. A client that cannot keep up is disconnected.
type EventsHandler struct {
	logger  *slog.Logger
	sendBuf int

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewEventsHandler creates an EventsHandler. Call Run to forward status updates.
func NewEventsHandler(logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		logger:  logger,
		sendBuf: defaultSendBuffer,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		remoteAddr: r.RemoteAddr,
	}
	h.add(c)
	defer h.remove(c, "disconnected")

	go h.writePump(c)

	// Keep connection alive by reading messages
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run forwards status updates to clients until ctx is cancelled, then
// disconnects everyone.
func (h *EventsHandler) Run(ctx context.Context, updates <-chan status.Update) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			h.broadcast(EventStatus, u.At, statusData{Text: u.Text})
		}
	}
}

// PublishResult sends a dispatch result to clients.
func (h *EventsHandler) PublishResult(r dispatch.Result) {
	data := actionData{
		Source:    r.Source,
		Action:    r.Event,
		Label:     r.Event.Label(),
		Outcome:   string(r.Outcome),
		AtMs:      r.AtMs,
		LatencyMs: r.Latency.Milliseconds(),
	}
	if r.Err != nil {
		data.Error = r.Err.Error()
	}
	h.broadcast(EventAction, time.Now(), data)
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventsHandler) broadcast(typ string, ts time.Time, data interface{}) {
	msg, err := json.Marshal(envelope{Type: typ, Ts: ts.UTC(), Data: data})
	if err != nil {
		h.logger.Warn("encoding event", "type", typ, "error", err)
		return
	}

	var slow []*client
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "slow client")
	}
}

func (h *EventsHandler) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event client connected", "remote_addr", c.remoteAddr, "clients", n)
}

func (h *EventsHandler) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	if c.conn != nil {
		c.conn.Close()
	}
	h.logger.Debug("event client removed", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func (h *EventsHandler) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c, "shutdown")
	}
}

// writePump writes queued frames until the send channel is closed.
func (h *EventsHandler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c, "write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c, "ping error")
				return
			}
		}
	}
}
