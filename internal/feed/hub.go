// Package feed pushes analysis snapshots to dashboard clients over WebSocket.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
	sendBuffer = 32
)

// Message is one frame sent to clients.
type Message struct {
	Type  string    `json:"type"`
	Index string    `json:"index,omitempty"`
	Data  any       `json:"data,omitempty"`
	Time  time.Time `json:"time"`
}

// Request is a client frame; Type is "subscribe" or "unsubscribe".
type Request struct {
	Type    string   `json:"type"`
	Indices []string `json:"indices"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	mu      sync.Mutex
	indices map[string]bool
}

// wants reports whether the client subscribed to index; no subscription means everything.
func (c *client) wants(index string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return index == "" || len(c.indices) == 0 || c.indices[index]
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewHub returns a hub accepting any origin.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		now:      time.Now,
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), indices: make(map[string]bool)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("remote", r.RemoteAddr).Info("feed client connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Warn("feed read error")
			}
			return
		}
		if req.Type != "subscribe" && req.Type != "unsubscribe" {
			continue
		}
		c.mu.Lock()
		for _, idx := range req.Indices {
			idx = strings.ToUpper(idx)
			if req.Type == "unsubscribe" {
				delete(c.indices, idx)
			} else {
				c.indices[idx] = true
			}
		}
		c.mu.Unlock()
		h.deliver(c, Message{Type: req.Type + "d", Data: req.Indices, Time: h.now()})
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) deliver(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("feed marshal failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Broadcast sends msg to every client subscribed to its index. Clients whose
// buffer is full are disconnected.
func (h *Hub) Broadcast(msg Message) {
	if msg.Time.IsZero() {
		msg.Time = h.now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("feed marshal failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(msg.Index) {
			continue
		}
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("dropping slow feed client")
		}
	}
}

// Publish broadcasts v; a channel of the form "type:INDEX" targets that index.
func (h *Hub) Publish(_ context.Context, channel string, v any) error {
	typ, index, _ := strings.Cut(channel, ":")
	h.Broadcast(Message{Type: typ, Index: index, Data: v})
	return nil
}

// Clients counts connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
