// Package score keeps per-channel player standings. A clean message earns a
// point; every violated rule costs one. Three keepers cover the deployment
// range: embedded SQLite for a single node, PostgreSQL for shared setups,
// and a Redis sorted set for live display.
package score

import "context"

// DefaultLimit is applied when a standings query does not name one.
const DefaultLimit = 10

// Standing is one leaderboard row.
type Standing struct {
	Player string `json:"player"`
	Points int    `json:"points"`
}

// Keeper persists player scores per channel.
type Keeper interface {
	RecordOutcome(ctx context.Context, channel, player string, violated []string) error
	// Standings returns the top players for a channel, highest points first.
	Standings(ctx context.Context, channel string, limit int) ([]Standing, error)
}

// Delta is the scoring policy applied to one message outcome.
func Delta(violated []string) int {
	if len(violated) == 0 {
		return 1
	}
	return -len(violated)
}
