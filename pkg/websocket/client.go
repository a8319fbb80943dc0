package websocket

import (
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// Client is one dashboard connection
type Client struct {
	ID   string
	Role string
	Send chan *Message

	conn *websocket.Conn
	hub  *Hub
	log  *zap.Logger

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// NewClient wraps conn. A nil log uses the global logger.
func NewClient(id string, conn *websocket.Conn, hub *Hub, role string, log *zap.Logger) *Client {
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		ID:    id,
		Role:  role,
		Send:  make(chan *Message, sendBuffer),
		conn:  conn,
		hub:   hub,
		log:   log.With(zap.String("client_id", id)),
		rooms: make(map[string]struct{}),
	}
}

// SendMessage queues msg without blocking. A client whose buffer is full is disconnected.
func (c *Client) SendMessage(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		c.log.Warn("websocket: send buffer full, dropping client")
		c.closed = true
		close(c.Send)
		return false
	}
}

// Rooms returns the rooms this client watches, sorted
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (c *Client) join(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) leave(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads inbound frames until the connection fails, then unregisters the client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket: unexpected close", zap.Error(err))
			}
			return
		}
		c.hub.HandleMessage(c, &msg)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug("websocket: write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
