// Package ws pushes owner notifications to live websocket connections.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message is the frame written to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks live connections per owner. It implements ports.NotificationPusher.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

type client struct {
	hub   *Hub
	owner uuid.UUID
	conn  *websocket.Conn
	send  chan []byte
	once  sync.Once
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.Component(log, "ws_hub"),
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Serve upgrades the request and attaches the connection to owner.
// It returns once the connection is registered.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, owner uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{hub: h, owner: owner, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.clients[owner] == nil {
		h.clients[owner] = make(map[*client]struct{})
	}
	h.clients[owner][c] = struct{}{}
	total := len(h.clients[owner])
	h.mu.Unlock()

	h.log.Debug().Str("owner_id", owner.String()).Int("connections", total).Msg("WS connected")

	go c.writePump()
	go c.readPump()
	return nil
}

// Push queues n for every connection of owner and returns how many
// connections accepted it. Slow connections are dropped.
func (h *Hub) Push(owner uuid.UUID, n *domain.WalletNotification) int {
	payload, err := json.Marshal(Message{Type: "notification", Data: n})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode notification")
		return 0
	}

	h.mu.RLock()
	var delivered int
	var slow []*client
	for c := range h.clients[owner] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("owner_id", owner.String()).Msg("Dropping slow WS connection")
		h.remove(c)
	}
	return delivered
}

// Connections returns the number of live connections for owner.
func (h *Hub) Connections(owner uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.clients[c.owner]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.owner)
			}
		}
		h.mu.Unlock()
		close(c.send)
		h.log.Debug().Str("owner_id", c.owner.String()).Msg("WS disconnected")
	})
}

// readPump drains client frames so control messages are processed.
func (c *client) readPump() {
	defer c.hub.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}
