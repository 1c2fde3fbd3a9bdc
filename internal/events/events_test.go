package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imagepress/imagepress/internal/domain"
)

func TestNewRedisInvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://not-redis", "ch")
	if err == nil || !strings.Contains(err.Error(), "parse redis url") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestEncode(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	b, err := Encode(Event{
		Type:       TypeImageCompressed,
		Image:      domain.ImageRecord{ID: "abc", OriginalName: "a.png", CompressionRatio: 42.5},
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "image.compressed" {
		t.Errorf("type = %v", got["type"])
	}
	if got["occurredAt"] != "2024-02-03T04:05:06Z" {
		t.Errorf("occurredAt = %v", got["occurredAt"])
	}
	img, ok := got["image"].(map[string]any)
	if !ok || img["id"] != "abc" || img["originalName"] != "a.png" {
		t.Errorf("image = %v", got["image"])
	}
}

func TestPublishUnreachable(t *testing.T) {
	// Nothing listens on port 1; publishing must fail rather than hang.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	r := newRedis(client, "ch")
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.ImageCompressed(ctx, domain.ImageRecord{ID: "x"}); err == nil {
		t.Fatal("expected publish error")
	}
}
