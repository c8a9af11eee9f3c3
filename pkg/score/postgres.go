package score

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresKeeper stores standings in PostgreSQL for deployments where
// several daemons share one leaderboard.
type PostgresKeeper struct {
	db *sql.DB
}

func NewPostgresKeeper(db *sql.DB) *PostgresKeeper {
	return &PostgresKeeper{db: db}
}

// Init creates the schema. cmd/bootstrap runs it at deploy time; idempotent.
func (k *PostgresKeeper) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS standings (
		channel    TEXT NOT NULL,
		player     TEXT NOT NULL,
		points     BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (channel, player)
	)`
	if _, err := k.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("score: init schema: %w", err)
	}
	return nil
}

func (k *PostgresKeeper) RecordOutcome(ctx context.Context, channel, player string, violated []string) error {
	query := `
	INSERT INTO standings (channel, player, points, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (channel, player) DO UPDATE SET
		points = standings.points + EXCLUDED.points,
		updated_at = NOW()`
	if _, err := k.db.ExecContext(ctx, query, channel, player, Delta(violated)); err != nil {
		return fmt.Errorf("score: record outcome: %w", err)
	}
	return nil
}

func (k *PostgresKeeper) Standings(ctx context.Context, channel string, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `
	SELECT player, points FROM standings
	WHERE channel = $1
	ORDER BY points DESC, player ASC
	LIMIT $2`
	rows, err := k.db.QueryContext(ctx, query, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("score: query standings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.Player, &s.Points); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
