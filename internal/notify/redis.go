package notify

import (
	"context"
	"fmt"

	"ewaste/models"

	"github.com/redis/go-redis/v9"
)

const DefaultChannelPrefix = "bid_closed"

// RedisPublisher публикует событие в канал Pub/Sub "<prefix>:<unique_id>"
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Channel(itemID string) string {
	return fmt.Sprintf("%s:%s", p.prefix, itemID)
}

func (p *RedisPublisher) Publish(ctx context.Context, event *models.BidClosedEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.Channel(event.ItemID), data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}
