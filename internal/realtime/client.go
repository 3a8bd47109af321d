package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freightDeliveryManagement/internal/apperr"
	"freightDeliveryManagement/internal/geo"
	"freightDeliveryManagement/models"
)

// Client is one authenticated connection.
type Client struct {
	ID     string
	UserID int64
	Role   models.Role

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

type privateMessage struct {
	ReceiverID int64  `json:"receiver_id"`
	ShipmentID *int64 `json:"shipment_id,omitempty"`
	Message    string `json:"message"`
	ClientRef  string `json:"client_ref,omitempty"`
}

type messageAck struct {
	ID        int64     `json:"id"`
	ClientRef string    `json:"client_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type locationUpdate struct {
	ShipmentID int64   `json:"shipment_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// enqueue queues a frame for this connection only. Frames for a connection that already
// left the hub are dropped.
func (c *Client) enqueue(event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.rooms[c.UserID][c.ID]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("realtime send buffer full", zap.String("client_id", c.ID), zap.String("event", event))
	}
}

func (c *Client) fail(err error) {
	c.enqueue(EventError, apperr.ToBody(err))
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("ws read", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.fail(apperr.Validation("malformed frame"))
			continue
		}
		if err := c.handle(f); err != nil {
			c.fail(err)
		}
	}
}

func (c *Client) handle(f Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch f.Type {
	case EventPing:
		c.enqueue(EventPong, map[string]int64{"at": time.Now().Unix()})
		return nil
	case EventPrivateMessage:
		var in privateMessage
		if err := json.Unmarshal(f.Data, &in); err != nil {
			return apperr.Validation("malformed private_message")
		}
		return c.privateMessage(ctx, in)
	case EventLocationUpdate:
		var in locationUpdate
		if err := json.Unmarshal(f.Data, &in); err != nil {
			return apperr.Validation("malformed location_update")
		}
		if c.Role != models.RoleDriver {
			return fmt.Errorf("%w: only drivers report locations", apperr.ErrUnauthorized)
		}
		if c.hub.locations == nil {
			return errors.New("location updates not enabled")
		}
		_, err := c.hub.locations.PostLocation(ctx, in.ShipmentID, c.UserID, geo.Point{Lat: in.Lat, Lng: in.Lng})
		return err
	default:
		return apperr.Validation("unknown event %q", f.Type)
	}
}

// privateMessage persists a chat line, then pushes it to both users and acknowledges the sender.
func (c *Client) privateMessage(ctx context.Context, in privateMessage) error {
	body := strings.TrimSpace(in.Message)
	switch {
	case in.ReceiverID <= 0:
		return apperr.Validation("receiver_id is required")
	case in.ReceiverID == c.UserID:
		return apperr.Validation("cannot message yourself")
	case body == "":
		return apperr.Validation("message is required")
	}
	m, err := c.hub.messages.Create(ctx, &models.Message{
		SenderID:   c.UserID,
		ReceiverID: in.ReceiverID,
		ShipmentID: in.ShipmentID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		c.hub.log.Error("persist message", zap.Int64("sender_id", c.UserID), zap.Error(err))
		return fmt.Errorf("store message: %w", err)
	}
	c.hub.Emit(m.ReceiverID, EventPrivateMessage, m)
	c.hub.Emit(m.SenderID, EventPrivateMessage, m)
	c.enqueue(EventMessageAck, messageAck{ID: m.ID, ClientRef: in.ClientRef, CreatedAt: m.CreatedAt})
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
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
