package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pipeline_events (
    id          BIGSERIAL PRIMARY KEY,
    target      TEXT NOT NULL,
    pipeline_id TEXT NOT NULL,
    phase       TEXT NOT NULL DEFAULT '',
    event       TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_events_target ON pipeline_events(target, id DESC);
`

// PostgresLog stores events for every target in one shared database, for
// teams that want a central history across machines.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresLog, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres events driver requires a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresLog{pool: pool}, nil
}

// Record appends e.
func (l *PostgresLog) Record(ctx context.Context, e Event) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO pipeline_events (target, pipeline_id, phase, event, detail, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Target, e.PipelineID, e.Phase, e.Event, e.Detail, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// History returns the target's events, newest first.
func (l *PostgresLog) History(ctx context.Context, target string, limit int) ([]Event, error) {
	query := `SELECT id, target, pipeline_id, phase, event, detail, recorded_at
		 FROM pipeline_events WHERE target = $1 ORDER BY id DESC`
	args := []any{target}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.Target, &e.PipelineID, &e.Phase, &e.Event, &e.Detail, &e.Timestamp)
		e.Timestamp = e.Timestamp.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (l *PostgresLog) Close() error {
	l.pool.Close()
	return nil
}
