package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 10 * time.Second

// wsConn is the part of *websocket.Conn the hub writes through
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	Close() error
}

// client serializes writes to one connection
type client struct {
	conn wsConn
	mu   sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub pushes every case event to the office dashboards connected over websocket
type Hub struct {
	clients map[wsConn]*client
	mutex   sync.Mutex
}

// NewHub returns a hub with no clients
func NewHub() *Hub {
	return &Hub{clients: make(map[wsConn]*client)}
}

// ServeHTTP upgrades the request and keeps the connection registered until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	h.add(conn)
	zap.S().Debugw("dashboard connected to /ws/cases", "remote", r.RemoteAddr)

	// drain until the peer goes away
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) add(conn wsConn) {
	h.mutex.Lock()
	h.clients[conn] = &client{conn: conn}
	h.mutex.Unlock()
}

func (h *Hub) drop(conn wsConn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	conn.Close()
}

// Clients returns how many dashboards are connected
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Name implements Sink
func (h *Hub) Name() string {
	return "websocket"
}

// Send implements Sink. The client set is copied before writing so a slow dashboard
// never holds up the others or new connections. Clients that fail a write are
// disconnected.
func (h *Hub) Send(ctx context.Context, e Event) error {
	h.mutex.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	msg := map[string]interface{}{
		"event": e.Tag,
		"key":   e.Key(),
		"data":  e,
	}
	for _, c := range clients {
		if err := c.write(msg); err != nil {
			zap.S().Warnw("dropping dashboard after failed write", "error", err)
			h.drop(c.conn)
		}
	}
	return nil
}
