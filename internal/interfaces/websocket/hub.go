// Package websocket exposes the live event-stream observer endpoint
// (§6 "GET /api/v1/ws") — every eventbus.Event is fanned out to connected
// dashboard/operator clients in real time, no command/control path runs
// over this connection.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// observerMessage is the wire shape delivered to every connected client.
type observerMessage struct {
	EventType string          `json:"event_type"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload"`
}

// client is one connected dashboard socket.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans eventbus.Event values out to every connected observer client.
// Grounded on the teacher's interfaces/websocket Hub/Client register-
// broadcast-unregister channel pattern, narrowed to a broadcast-only
// (no per-client inbound routing) use case.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	logger     *zap.Logger
}

// NewHub constructs an idle Hub; call Run to start its dispatch loop and
// Attach to wire it to an event bus.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// Attach subscribes the hub to every event on bus and marshals each onto
// the broadcast channel.
func (h *Hub) Attach(bus eventbus.Bus) {
	bus.Subscribe(eventbus.Type("*"), func(ctx context.Context, ev eventbus.Event) {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			h.logger.Warn("observer hub: failed to marshal event payload", zap.Error(err))
			return
		}
		out, err := json.Marshal(observerMessage{
			EventType: string(ev.EventType),
			At:        ev.At,
			Payload:   payload,
		})
		if err != nil {
			return
		}
		select {
		case h.broadcast <- out:
		default:
			h.logger.Warn("observer hub broadcast buffer full, dropping event")
		}
	})
}

// Run drives the register/unregister/broadcast loop until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount reports the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the HTTP request to a WebSocket connection and
// registers it as an observer client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("observer hub: upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   r.RemoteAddr + "-" + time.Now().Format("150405.000000"),
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains the connection to detect client-initiated close;
// the observer stream is one-directional.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
