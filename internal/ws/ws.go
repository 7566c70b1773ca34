package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
)

// Event is the payload broadcast to connected dashboard clients.
type Event struct {
	Type   string `json:"type"`
	ID     any    `json:"id"`
	Action string `json:"action"`
}

type client struct {
	conn *gws.Conn
	mu   sync.Mutex
}

// Hub tracks connected WebSocket clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Broadcast sends an event to every connected client. Clients whose
// writes fail are dropped.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteMessage(gws.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.unregister(c)
		}
	}
}

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the connection, registers it with the hub, and keeps
// it alive with pings until the peer goes away.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	hub.register(c)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			c.mu.Lock()
			err := conn.WriteControl(gws.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	hub.unregister(c)
}
