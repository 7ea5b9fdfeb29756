package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"keyrun/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local network tool; origins are not restricted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// runRequest is the only inbound WebSocket message: a client asking for a
// script run.
type runRequest struct {
	Type   string `json:"type"` // "run"
	Script string `json:"script"`
}

// wsHub tracks connected WebSocket clients and fans execution events out
// to them.
type wsHub struct {
	server     *Server
	clients    map[*wsClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan engine.Event
	register   chan *wsClient
	unregister chan *wsClient
}

// wsClient is one connected event-stream consumer.
type wsClient struct {
	hub  *wsHub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

func newWSHub(s *Server) *wsHub {
	return &wsHub{
		server:     s,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan engine.Event, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			h.server.log.Info("ws client connected", zap.String("remote", client.ip))

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			h.server.log.Info("ws client disconnected", zap.String("remote", client.ip))

		case ev := <-h.broadcast:
			h.broadcastMessage(ev)
		}
	}
}

// broadcastEvent queues an execution event for all clients, dropping it if
// the hub is saturated; the event stream is advisory.
func (h *wsHub) broadcastEvent(ev engine.Event) {
	select {
	case h.broadcast <- ev:
	default:
	}
}

func (h *wsHub) broadcastMessage(ev engine.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.server.log.Error("marshal ws event", zap.Error(err))
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Slow consumer; drop it.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *wsHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.server.log.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		ip:   r.RemoteAddr,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump consumes inbound messages and keeps the connection alive.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.server.log.Warn("ws read error", zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump sends queued events and periodic pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleMessage(data []byte) {
	var req runRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.server.log.Warn("ws invalid message", zap.Error(err))
		return
	}
	if req.Type != "run" || req.Script == "" {
		return
	}

	c.hub.server.log.Info("ws script run requested", zap.String("script", req.Script), zap.String("remote", c.ip))
	// Run off the read pump; runScript serializes concurrent triggers.
	go func() {
		if err := c.hub.server.runScript(req.Script); err != nil {
			c.hub.server.log.Warn("ws script run failed", zap.String("script", req.Script), zap.Error(err))
		}
	}()
}
