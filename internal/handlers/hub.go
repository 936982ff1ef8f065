package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"divisionone/internal/eventlog"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Hub fans committed events out to websocket subscribers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	name string
}

// NewHub accepts websocket upgrades from allowedOrigins. An empty list
// accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every subscriber whose filter matches. A subscriber
// whose buffer is full misses the message.
func (h *Hub) Broadcast(msg *eventlog.Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("Failed to marshal event for broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		if s.name != "" && s.name != msg.Name {
			continue
		}
		select {
		case s.send <- body:
		default:
			log.WithField("remote", s.conn.RemoteAddr().String()).Warn("Subscriber too slow, dropping event")
		}
	}
}

// HandleMessage broadcasts a queue body. It matches the consumer handler
// signature.
func (h *Hub) HandleMessage(body []byte) error {
	msg, err := eventlog.Parse(body)
	if err != nil {
		// Nothing a redelivery could fix.
		log.WithError(err).Warn("Dropping malformed stream message")
		return nil
	}
	h.Broadcast(msg)
	return nil
}

// ServeWS upgrades the request and registers the connection until it
// closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, name string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer), name: name}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	log.WithField("remote", conn.RemoteAddr().String()).Info("Event subscriber connected")

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// readPump only drains control frames; subscribers do not send data.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Event subscriber read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case body, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
