// Package realtime keeps the websocket connections of signed-in users and pushes events to
// them. Each user has a room holding every open connection of that user.
//
// A connection must send {"token": "<jwt>"} as its first frame within five seconds. After
// that frames are {"type": ..., "data": ...} in both directions.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freightDeliveryManagement/internal/auth"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/internal/metrics"
	"freightDeliveryManagement/models"
	"freightDeliveryManagement/repository"
)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
	handleTimeout  = 5 * time.Second
)

// Event names.
const (
	EventAuthenticated  = "authenticated"
	EventPing           = "ping"
	EventPong           = "pong"
	EventPrivateMessage = "private_message"
	EventMessageAck     = "message_ack"
	EventLocationUpdate = "location_update"
	EventError          = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Authenticator turns the token of the first frame into a principal.
type Authenticator func(ctx context.Context, token string) (*auth.Principal, error)

// LocationPoster records a driver position for a shipment and fans it out.
type LocationPoster interface {
	PostLocation(ctx context.Context, shipmentID, driverID int64, pos geo.Point) (*models.LocationPing, error)
}

// Frame is one websocket message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hub is the registry of connected clients by user id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[string]*Client

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}

	authenticate Authenticator
	messages     repository.MessageRepositoryI
	locations    LocationPoster
	log          *zap.Logger
}

// NewHub creates a Hub. Call Run before serving connections; locations may be set later
// with SetLocations.
func NewHub(authenticate Authenticator, messages repository.MessageRepositoryI, locations LocationPoster, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:        make(map[int64]map[string]*Client),
		register:     make(chan *Client, 16),
		unregister:   make(chan *Client, 16),
		stopped:      make(chan struct{}),
		authenticate: authenticate,
		messages:     messages,
		locations:    locations,
		log:          log,
	}
}

// SetLocations wires the location handler after construction, for callers whose location
// service needs the hub as its emitter.
func (h *Hub) SetLocations(l LocationPoster) {
	h.locations = l
}

// Run owns room membership until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("realtime hub stopped")
			return nil

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.UserID]
			if !ok {
				room = make(map[string]*Client)
				h.rooms[c.UserID] = room
			}
			room[c.ID] = c
			h.mu.Unlock()
			metrics.RealtimeConnections.Inc()
			h.log.Debug("client joined", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
			c.enqueue(EventAuthenticated, map[string]any{"user_id": c.UserID, "role": c.Role})
			go c.writePump()
			go c.readPump()

		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.UserID]
	if !ok {
		return
	}
	if _, ok := room[c.ID]; !ok {
		return
	}
	delete(room, c.ID)
	if len(room) == 0 {
		delete(h.rooms, c.UserID)
	}
	close(c.send)
	metrics.RealtimeConnections.Dec()
	h.log.Debug("client left", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, room := range h.rooms {
		for _, c := range room {
			close(c.send)
			metrics.RealtimeConnections.Dec()
		}
		delete(h.rooms, uid)
	}
}

// Emit sends an event to every connection of userID and returns how many received it.
// A connection whose buffer is full misses the event.
func (h *Hub) Emit(userID int64, event string, payload any) int {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error("encode realtime event", zap.String("event", event), zap.Error(err))
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.rooms[userID] {
		select {
		case c.send <- msg:
			n++
		default:
			h.log.Warn("realtime send buffer full", zap.String("client_id", c.ID), zap.Int64("user_id", userID), zap.String("event", event))
		}
	}
	return n
}

// Connected reports how many connections userID has open.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// ServeWS upgrades the request and waits for the auth frame.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var hello struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth timeout"))
		_ = conn.Close()
		h.log.Info("ws auth frame missing", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	p, err := h.authenticate(ctx, hello.Token)
	cancel()
	if err != nil {
		_ = conn.WriteJSON(Frame{Type: EventError, Data: mustJSON(map[string]string{"reason": "unauthenticated", "message": err.Error()})})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		_ = conn.Close()
		h.log.Info("ws auth rejected", zap.Error(err))
		return
	}

	c := &Client{
		ID:     uuid.NewString(),
		UserID: p.UserID,
		Role:   models.Role(p.Kind),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	select {
	case h.register <- c:
	case <-h.stopped:
		_ = conn.Close()
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: event, Data: data})
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
