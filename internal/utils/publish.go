package utils

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// SubscriptionEvent is what the rest of the platform hears about a
// lifecycle transition. Delivery is fire-and-forget.
type SubscriptionEvent struct {
	VendorID       string            `json:"vendor_id"`
	BusinessID     string            `json:"business_id"`
	SubscriptionID string            `json:"subscription_id"`
	Type           string            `json:"type"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// RedisPublisher pushes subscription events onto the shared
// notifications channel consumed by the notification service.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: "notifications"}
}

func (p *RedisPublisher) Publish(ctx context.Context, event SubscriptionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] failed to marshal event: %v", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Printf("[EVENTS] failed to publish %s for subscription %s: %v",
			event.Type, event.SubscriptionID, err)
	}
}
