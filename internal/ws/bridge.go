package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/okrish/wavelink/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "wavelink.chan."

// RedisBridge routes broadcasts through Redis pub/sub so every instance's
// hub sees every persisted message. It satisfies service.Broadcaster in
// place of the hub; the hub still does local delivery when a published
// envelope comes back in.
type RedisBridge struct {
	rdb    *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{rdb: rdb, hub: hub, logger: logger}
}

// BroadcastMessage publishes the persisted record; delivery to local
// subscribers happens when Run receives it back, the same as on any other
// instance.
func (b *RedisBridge) BroadcastMessage(message models.MessageDetail) {
	data, err := json.Marshal(serverFrame{
		Type:      "message",
		ChannelID: message.ChannelID.String(),
		Message:   &message,
	})
	if err != nil {
		b.logger.Error("marshal bridge frame", zap.Error(err))
		return
	}

	channel := redisChannelPrefix + message.ChannelID.String()
	if err := b.rdb.Publish(context.Background(), channel, data).Err(); err != nil {
		b.logger.Error("redis publish failed",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

// Run consumes the pattern subscription and forwards envelopes to the local
// hub until the context is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			channelID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, redisChannelPrefix))
			if err != nil {
				b.logger.Warn("bridge received malformed channel name",
					zap.String("channel", msg.Channel),
				)
				continue
			}
			b.hub.Deliver(channelID, []byte(msg.Payload))
		}
	}
}
