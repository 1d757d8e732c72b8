package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"tradedash/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub tracks connected chart WebSocket clients and fans settings change
// notifications out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	prom    *metrics.Metrics
}

// NewHub creates an empty hub. prom may be nil in tests.
func NewHub(prom *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		prom:    prom,
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one JSON message to every connected client. Clients with
// a full send queue are dropped rather than blocking the broadcast.
func (h *Hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[ws] broadcast marshal: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
			if h.prom != nil {
				h.prom.WSMessages.Inc()
			}
		default:
			go c.conn.Close()
		}
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.prom != nil {
		h.prom.WSClients.Set(float64(n))
	}
	log.Printf("[ws] client connected (%d total)", n)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if h.prom != nil {
		h.prom.WSClients.Set(float64(n))
	}
	log.Printf("[ws] client disconnected (%d total)", n)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
