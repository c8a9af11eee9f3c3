package announce

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAnnouncer publishes sealed envelopes as JSON on a pub/sub channel so
// other services (overlays, bots, analytics) can follow rule changes live.
type RedisAnnouncer struct {
	client  *redis.Client
	channel string
}

// NewRedisAnnouncer connects a publisher to the given Redis instance.
func NewRedisAnnouncer(addr, password string, db int, channel string) *RedisAnnouncer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisAnnouncer{client: rdb, channel: channel}
}

func (a *RedisAnnouncer) Announce(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("announce to redis: encode: %w", err)
	}
	if err := a.client.Publish(ctx, a.channel, payload).Err(); err != nil {
		return fmt.Errorf("announce to redis: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (a *RedisAnnouncer) Close() error {
	return a.client.Close()
}
