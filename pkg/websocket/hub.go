package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/logger"
	"go.uber.org/zap"
)

// Message is the frame exchanged with dashboard clients
type Message struct {
	Type      string                 `json:"type"`
	Room      string                 `json:"room,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// HandlerFunc handles one inbound message type
type HandlerFunc func(c *Client, msg *Message)

// Hub tracks connected clients and the rooms they watch
type Hub struct {
	clients  map[string]*Client
	rooms    map[string]map[string]*Client
	handlers map[string]HandlerFunc

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Message

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	once    sync.Once
}

// NewHub creates an idle hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		handlers:   make(map[string]HandlerFunc),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects everyone
func (h *Hub) Run(ctx context.Context) {
	defer h.once.Do(func() { close(h.done) })

	for {
		select {
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.Broadcast:
			h.SendToAll(msg)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	existing, replaced := h.registerLocked(client)
	h.mu.Unlock()

	h.afterRegister(client, existing, replaced)
}

// RegisterWithRooms registers client and joins rooms in one step, so a broadcast
// that follows the call reaches it. It returns false once the hub has stopped.
func (h *Hub) RegisterWithRooms(client *Client, rooms []string) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		client.close()
		return false
	}
	existing, replaced := h.registerLocked(client)
	for _, room := range rooms {
		h.joinLocked(client, room)
	}
	h.mu.Unlock()

	h.afterRegister(client, existing, replaced)
	return true
}

// registerLocked stores client, detaching any older connection with the same ID. Callers hold h.mu.
func (h *Hub) registerLocked(client *Client) (*Client, bool) {
	existing, ok := h.clients[client.ID]
	replaced := ok && existing != client
	if replaced {
		h.detachLocked(existing)
	}
	h.clients[client.ID] = client
	return existing, replaced
}

func (h *Hub) afterRegister(client, existing *Client, replaced bool) {
	if replaced {
		existing.close()
		logger.Debug("websocket: replaced client connection", zap.String("client_id", client.ID))
	}
	logger.Debug("websocket: client registered", zap.String("client_id", client.ID), zap.String("role", client.Role))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ID]
	if ok && current == client {
		h.detachLocked(client)
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()

	client.close()
	logger.Debug("websocket: client unregistered", zap.String("client_id", client.ID))
}

// detachLocked removes client from every room. Callers hold h.mu.
func (h *Hub) detachLocked(client *Client) {
	for _, room := range client.Rooms() {
		if members, ok := h.rooms[room]; ok {
			if members[client.ID] == client {
				delete(members, client.ID)
			}
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
		client.leave(room)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.stopped = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// AddClientToRoom subscribes a registered client to room
func (h *Hub) AddClientToRoom(clientID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	h.joinLocked(client, room)
	return true
}

func (h *Hub) joinLocked(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][client.ID] = client
	client.join(room)
}

// RemoveClientFromRoom unsubscribes a client. Empty rooms are dropped.
func (h *Hub) RemoveClientFromRoom(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if client, ok := members[clientID]; ok {
		client.leave(room)
		delete(members, clientID)
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// SendToUser delivers msg to one client if connected
func (h *Hub) SendToUser(clientID string, msg *Message) {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()

	if ok {
		client.SendMessage(msg)
	}
}

// SendToRoom delivers msg to every client in room
func (h *Hub) SendToRoom(room string, msg *Message) int {
	return h.SendToRooms([]string{room}, msg)
}

// SendToRooms delivers msg once to every client in any of rooms and returns the recipient count
func (h *Hub) SendToRooms(rooms []string, msg *Message) int {
	h.mu.RLock()
	recipients := make(map[string]*Client)
	for _, room := range rooms {
		for id, c := range h.rooms[room] {
			recipients[id] = c
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		c.SendMessage(msg)
	}
	return len(recipients)
}

// SendToAll delivers msg to every connected client
func (h *Hub) SendToAll(msg *Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.SendMessage(msg)
	}
}

// RegisterHandler installs the handler for an inbound message type
func (h *Hub) RegisterHandler(msgType string, handler HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// HandleMessage routes an inbound message to its handler
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		logger.Debug("websocket: no handler for message type", zap.String("type", msg.Type))
		return
	}
	handler(client, msg)
}

// GetClient returns a connected client by ID
func (h *Hub) GetClient(clientID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	return c, ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientsInRoom returns the clients subscribed to room
func (h *Hub) GetClientsInRoom(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

// GetRoomCount returns the number of non-empty rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
