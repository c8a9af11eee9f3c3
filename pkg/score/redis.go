package score

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLeaderboard keeps standings in a sorted set per channel, for
// deployments that want live display without touching the SQL store.
type RedisLeaderboard struct {
	client *redis.Client
}

func NewRedisLeaderboard(addr, password string, db int) *RedisLeaderboard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisLeaderboard{client: rdb}
}

func leaderboardKey(channel string) string {
	return "gauntlet:standings:" + channel
}

func (l *RedisLeaderboard) RecordOutcome(ctx context.Context, channel, player string, violated []string) error {
	err := l.client.ZIncrBy(ctx, leaderboardKey(channel), float64(Delta(violated)), player).Err()
	if err != nil {
		return fmt.Errorf("score: redis record outcome: %w", err)
	}
	return nil
}

func (l *RedisLeaderboard) Standings(ctx context.Context, channel string, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey(channel), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("score: redis standings: %w", err)
	}

	out := make([]Standing, 0, len(members))
	for _, m := range members {
		player, _ := m.Member.(string)
		out = append(out, Standing{Player: player, Points: int(m.Score)})
	}
	return out, nil
}

func (l *RedisLeaderboard) Close() error {
	return l.client.Close()
}
