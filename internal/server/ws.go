package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"tradedash/internal/compute"

	"github.com/gorilla/websocket"
)

// wsRequest is one client message. Only "compute" is recognized; unknown
// types get an error reply so a misbehaving client can notice.
type wsRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	compute.Request
}

const wsComputeTimeout = 30 * time.Second

// handleWS upgrades to WebSocket and serves compute requests over it.
// Settings change broadcasts arrive on the same connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 64)}
	s.hub.register(c)
	go c.writePump()

	defer func() {
		s.hub.unregister(c)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.sendError(c, "", "invalid JSON message")
			continue
		}

		switch req.Type {
		case "compute":
			s.serveComputeWS(c, req)
		case "ping":
			s.send(c, map[string]any{"type": "pong", "id": req.ID})
		default:
			s.sendError(c, req.ID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) serveComputeWS(c *wsClient, req wsRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), wsComputeTimeout)
	defer cancel()

	if s.maxCandles > 0 && len(req.Candles) > s.maxCandles {
		s.sendError(c, req.ID, "too many candles")
		return
	}

	resp, err := s.engine.Compute(ctx, req.Request)
	if errors.Is(err, compute.ErrNoCandles) {
		s.sendError(c, req.ID, err.Error())
		return
	}
	if err != nil {
		s.sendError(c, req.ID, "compute failed")
		return
	}
	s.send(c, map[string]any{
		"type":       "indicators",
		"id":         req.ID,
		"indicators": resp.Indicators,
	})
}

func (s *Server) send(c *wsClient, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[ws] marshal: %v", err)
		return
	}
	select {
	case c.send <- payload:
		if s.prom != nil {
			s.prom.WSMessages.Inc()
		}
	default:
		go c.conn.Close()
	}
}

func (s *Server) sendError(c *wsClient, id, msg string) {
	s.send(c, map[string]any{"type": "error", "id": id, "message": msg})
}
