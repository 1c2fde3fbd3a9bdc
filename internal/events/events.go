// Package events publishes pipeline events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imagepress/imagepress/internal/domain"
)

// TypeImageCompressed is published once per committed record.
const TypeImageCompressed = "image.compressed"

// Event is the JSON payload published on the channel.
type Event struct {
	Type       string             `json:"type"`
	Image      domain.ImageRecord `json:"image"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// Redis publishes events on a single pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedis connects to the Redis server at url and verifies it responds.
func NewRedis(ctx context.Context, url, channel string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedis(client, channel), nil
}

func newRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel, now: time.Now}
}

// ImageCompressed publishes an image.compressed event for rec.
func (r *Redis) ImageCompressed(ctx context.Context, rec domain.ImageRecord) error {
	payload, err := Encode(Event{Type: TypeImageCompressed, Image: rec, OccurredAt: r.now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Encode serializes an event for the wire.
func Encode(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}
