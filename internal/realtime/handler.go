package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	ws "github.com/richxcame/cyber-patrol/pkg/websocket"
	"go.uber.org/zap"
)

// Inbound message types
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageSubscribed  = "subscribed"
)

// Handler upgrades dashboard connections onto the hub
type Handler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket handler. An empty origin list accepts any origin.
func NewHandler(hub *ws.Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      originChecker(allowedOrigins),
		},
	}
	hub.RegisterHandler(MessageSubscribe, h.subscribe)
	hub.RegisterHandler(MessageUnsubscribe, h.unsubscribe)
	return h
}

// ServeAlerts opens an alert stream
// GET /ws/alerts?rooms=tier:HIGH,service:facebook&officer=si.rao
func (h *Handler) ServeAlerts(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	officer := c.DefaultQuery("officer", "anonymous")
	client := ws.NewClient(uuid.New().String(), conn, h.hub, officer, nil)
	if !h.hub.RegisterWithRooms(client, parseRooms(c.Query("rooms"))) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	client.SendMessage(&ws.Message{
		Type:      MessageSubscribed,
		Data:      map[string]interface{}{"client_id": client.ID, "rooms": client.Rooms()},
		Timestamp: time.Now().UTC(),
	})
}

// RegisterRoutes registers the websocket route
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/alerts", h.ServeAlerts)
}

func (h *Handler) subscribe(c *ws.Client, msg *ws.Message) {
	if !validRoom(msg.Room) {
		return
	}
	h.hub.AddClientToRoom(c.ID, msg.Room)
	c.SendMessage(&ws.Message{
		Type:      MessageSubscribed,
		Room:      msg.Room,
		Data:      map[string]interface{}{"rooms": c.Rooms()},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) unsubscribe(c *ws.Client, msg *ws.Message) {
	h.hub.RemoveClientFromRoom(c.ID, msg.Room)
}

// parseRooms reads a comma list of rooms, defaulting to every alert
func parseRooms(raw string) []string {
	var rooms []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if validRoom(r) {
			rooms = append(rooms, r)
		}
	}
	if len(rooms) == 0 {
		return []string{RoomAll}
	}
	return rooms
}

func validRoom(room string) bool {
	if room == RoomAll || room == RoomBatches {
		return true
	}
	for _, prefix := range []string{"tier:", "service:"} {
		if strings.HasPrefix(room, prefix) && len(room) > len(prefix) {
			return true
		}
	}
	return false
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
