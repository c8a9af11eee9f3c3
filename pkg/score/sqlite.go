package score

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteKeeper stores standings in an embedded SQLite database, the
// single-node default.
type SQLiteKeeper struct {
	db *sql.DB
}

// NewSQLiteKeeper wires a keeper over the given database and creates the
// schema if it is missing.
func NewSQLiteKeeper(db *sql.DB) (*SQLiteKeeper, error) {
	k := &SQLiteKeeper{db: db}
	if err := k.migrate(); err != nil {
		return nil, fmt.Errorf("score: migrate: %w", err)
	}
	return k, nil
}

func (k *SQLiteKeeper) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS standings (
		channel    TEXT NOT NULL,
		player     TEXT NOT NULL,
		points     INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME,
		PRIMARY KEY (channel, player)
	);`
	_, err := k.db.ExecContext(context.Background(), query)
	return err
}

func (k *SQLiteKeeper) RecordOutcome(ctx context.Context, channel, player string, violated []string) error {
	query := `
	INSERT INTO standings (channel, player, points, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (channel, player) DO UPDATE SET
		points = points + excluded.points,
		updated_at = excluded.updated_at`
	if _, err := k.db.ExecContext(ctx, query, channel, player, Delta(violated)); err != nil {
		return fmt.Errorf("score: record outcome: %w", err)
	}
	return nil
}

func (k *SQLiteKeeper) Standings(ctx context.Context, channel string, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `
	SELECT player, points FROM standings
	WHERE channel = ?
	ORDER BY points DESC, player ASC
	LIMIT ?`
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
