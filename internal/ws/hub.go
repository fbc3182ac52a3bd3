// Package ws is the realtime fan-out layer: one websocket per client, one
// broadcast group per channel. The hub owns all connection↔group state; it
// is created at startup and closed at shutdown, and is only touched through
// Subscribe/Unsubscribe/Disconnect/Deliver.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/models"
	"go.uber.org/zap"
)

// serverFrame is every frame the server sends down a connection.
type serverFrame struct {
	Type      string                `json:"type"`
	ChannelID string                `json:"channel_id,omitempty"`
	Message   *models.MessageDetail `json:"message,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type Hub struct {
	logger *zap.Logger

	mu sync.Mutex
	// groups: channel id → subscribed clients.
	groups map[uuid.UUID]map[*Client]struct{}
	// subscriptions: reverse index so Disconnect can evict a client from
	// every group without scanning.
	subscriptions map[*Client]map[uuid.UUID]struct{}
	closed        bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:        logger,
		groups:        make(map[uuid.UUID]map[*Client]struct{}),
		subscriptions: make(map[*Client]map[uuid.UUID]struct{}),
	}
}

// Subscribe adds the client to a channel's group. Access checks happen in
// the connection handler before this is called.
func (h *Hub) Subscribe(client *Client, channelID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	group, ok := h.groups[channelID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[channelID] = group
	}
	group[client] = struct{}{}

	subs, ok := h.subscriptions[client]
	if !ok {
		subs = make(map[uuid.UUID]struct{})
		h.subscriptions[client] = subs
	}
	subs[channelID] = struct{}{}
}

// Unsubscribe removes the client from a channel's group. No-op when the
// client is not subscribed.
func (h *Hub) Unsubscribe(client *Client, channelID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client, channelID)
}

// Disconnect evicts the client from every group and closes its send queue.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channelID := range h.subscriptions[client] {
		h.removeLocked(client, channelID)
	}
	delete(h.subscriptions, client)
	client.closeSend()
}

// BroadcastMessage implements service.Broadcaster: it wraps a persisted
// message in a frame and delivers it to the channel's current group.
func (h *Hub) BroadcastMessage(message models.MessageDetail) {
	data, err := json.Marshal(serverFrame{
		Type:      "message",
		ChannelID: message.ChannelID.String(),
		Message:   &message,
	})
	if err != nil {
		h.logger.Error("marshal broadcast frame", zap.Error(err))
		return
	}
	h.Deliver(message.ChannelID, data)
}

// Deliver sends a payload to every connection in the channel's group,
// excluding none. Delivery is best-effort and at-most-once: a client whose
// send queue is full is dropped rather than allowed to stall the rest of
// the group.
func (h *Hub) Deliver(channelID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.groups[channelID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client",
				zap.String("user_id", client.userID.String()),
			)
			for id := range h.subscriptions[client] {
				h.removeLocked(client, id)
			}
			delete(h.subscriptions, client)
			client.closeSend()
		}
	}
}

// Close evicts every client; their pumps wind down as the send queues close.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for client := range h.subscriptions {
		client.closeSend()
	}
	h.groups = make(map[uuid.UUID]map[*Client]struct{})
	h.subscriptions = make(map[*Client]map[uuid.UUID]struct{})
}

// GroupSize reports how many connections are subscribed to a channel.
func (h *Hub) GroupSize(channelID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[channelID])
}

func (h *Hub) removeLocked(client *Client, channelID uuid.UUID) {
	group, ok := h.groups[channelID]
	if !ok {
		return
	}
	delete(group, client)
	if len(group) == 0 {
		delete(h.groups, channelID)
	}
	if subs, ok := h.subscriptions[client]; ok {
		delete(subs, channelID)
	}
}
