package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okrish/wavelink/internal/apperr"
	"github.com/okrish/wavelink/internal/models"
	"go.uber.org/zap"
)

const (
	// writeWait is how long a single write may take before the connection
	// is considered dead.
	writeWait = 10 * time.Second

	// pongWait bounds silence from the peer; pings go out at pingPeriod so
	// a healthy peer always answers in time.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 64 * 1024

	// sendQueueSize is the per-client broadcast buffer. A client that falls
	// this far behind is dropped by the hub.
	sendQueueSize = 256
)

// Authorizer decides whether a user may receive a channel's events. It is
// consulted on every subscribe, so group membership cannot outlive channel
// access.
type Authorizer interface {
	CheckAccess(ctx context.Context, userID, channelID uuid.UUID) error
}

// Poster persists a published message; the broadcast to subscribers happens
// inside it, after persistence.
type Poster interface {
	Post(ctx context.Context, senderID, channelID uuid.UUID, content string, attachments []string) (*models.MessageDetail, error)
}

// clientFrame is every frame a client may send up the connection.
type clientFrame struct {
	Type        string   `json:"type"`
	ChannelID   string   `json:"channel_id"`
	Content     string   `json:"content,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Client is one live websocket connection for one authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	logger *zap.Logger

	// mu guards closed so no goroutine can send on a closed queue.
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		logger: logger,
		send:   make(chan []byte, sendQueueSize),
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. One writer per connection; gorilla/websocket allows at
// most one concurrent writer.
func (c *Client) writePump() {
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
				// Hub dropped or disconnected us.
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

// readPump handles inbound frames until the transport reports disconnect,
// then evicts the connection from every group.
func (c *Client) readPump(ctx context.Context, authorizer Authorizer, poster Poster) {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}
		c.handleFrame(ctx, frame, authorizer, poster)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame clientFrame, authorizer Authorizer, poster Poster) {
	channelID, err := uuid.Parse(frame.ChannelID)
	if err != nil {
		c.sendError("invalid channel id")
		return
	}

	switch frame.Type {
	case "subscribe":
		// Re-validated on every subscribe: leaving (or being removed from)
		// a private channel means the next subscribe is refused.
		if err := authorizer.CheckAccess(ctx, c.userID, channelID); err != nil {
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				c.sendError("channel not found")
			case errors.Is(err, apperr.ErrForbidden):
				c.sendError("not authorized for this channel")
			default:
				c.logger.Error("subscribe access check failed", zap.Error(err))
				c.sendError("subscribe failed")
			}
			return
		}
		c.hub.Subscribe(c, channelID)
		c.sendFrame(serverFrame{Type: "subscribed", ChannelID: frame.ChannelID})

	case "unsubscribe":
		c.hub.Unsubscribe(c, channelID)
		c.sendFrame(serverFrame{Type: "unsubscribed", ChannelID: frame.ChannelID})

	case "publish":
		// Publish goes through the message store: persist first, then the
		// store broadcasts the persisted record. The realtime path is a
		// notification of a persistence event, never a second write path.
		if _, err := poster.Post(ctx, c.userID, channelID, frame.Content, frame.Attachments); err != nil {
			switch {
			case errors.Is(err, apperr.ErrInvalidInput):
				c.sendError("message content is required")
			case errors.Is(err, apperr.ErrNotFound):
				c.sendError("channel not found")
			case errors.Is(err, apperr.ErrForbidden):
				c.sendError("not authorized to post in this channel")
			default:
				c.logger.Error("publish failed", zap.Error(err))
				c.sendError("publish failed")
			}
		}

	default:
		c.sendError("unknown frame type")
	}
}

func (c *Client) sendError(msg string) {
	c.sendFrame(serverFrame{Type: "error", Error: msg})
}

func (c *Client) sendFrame(frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
