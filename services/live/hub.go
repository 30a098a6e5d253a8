// Package live pushes today's daily counter to websocket subscribers after every check-in.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/core/attendance"
)

// Message types
const (
	TypeDailyCounter = "dailyCounter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var ErrHubStopped = errors.New("live hub stopped")

type (
	Message struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}

	CounterPayload struct {
		attendance.DailyCounter
		Total int `json:"total"`
	}

	Client struct {
		ID   uuid.UUID
		hub  *Hub
		conn *websocket.Conn
		send chan []byte
	}

	// Hub fans messages out to its clients. Run must be running for clients to be served.
	Hub struct {
		clients    map[uuid.UUID]*Client
		broadcast  chan []byte
		register   chan *Client
		unregister chan *Client
		done       chan struct{}
		logger     core.Logger
		upgrader   websocket.Upgrader

		mu    sync.RWMutex // guards count
		count int
	}
)

var _ attendance.Notifier = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // kiosk dashboards run on the LAN
		},
	}
}

func NewCounterMessage(c attendance.DailyCounter) Message {
	return Message{Type: TypeDailyCounter, Payload: CounterPayload{DailyCounter: c, Total: c.Total()}}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client.ID] = client
			h.setCount(len(h.clients))
			h.logger.Debug("live client registered", map[string]interface{}{"client": client.ID.String()})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				select {
				case client.send <- msg:
				default: // too slow
					h.remove(client)
				}
			}

		case <-ctx.Done():
			for _, client := range h.clients {
				h.remove(client)
			}
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.send)
	h.setCount(len(h.clients))
	h.logger.Debug("live client unregistered", map[string]interface{}{"client": client.ID.String()})
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Publish queues msg for every client. It drops msg when the queue is full or the hub stopped.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding live message", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("live queue full, message dropped", map[string]interface{}{"type": msg.Type})
	}
}

func (h *Hub) NotifyCounter(c attendance.DailyCounter) {
	h.Publish(NewCounterMessage(c))
}

// Serve upgrades the request to a websocket, sends initial, then streams published messages.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial Message) error {
	data, err := json.Marshal(initial)
	if err != nil {
		return errors.Wrap(err, "encoding live message")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading to websocket")
	}

	client := &Client{ID: uuid.New(), hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	client.send <- data

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump discards incoming messages; it only watches for the connection to close.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("unexpected websocket close", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
