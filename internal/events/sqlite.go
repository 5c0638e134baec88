package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pipeline_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    target      TEXT NOT NULL,
    pipeline_id TEXT NOT NULL,
    phase       TEXT,
    event       TEXT NOT NULL,
    detail      TEXT,
    timestamp   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pipeline_events_target ON pipeline_events(target, id DESC);
`

// DB wraps one SQLite event database.
type DB struct {
	conn *sql.DB
	path string
}

// OpenDB opens or creates the database at path. ":memory:" works for tests.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Migrate applies the schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqliteSchemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Insert appends an event and returns its row id.
func (d *DB) Insert(ctx context.Context, e Event) (int64, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO pipeline_events (target, pipeline_id, phase, event, detail, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Target, e.PipelineID, nullIfEmpty(e.Phase), e.Event, nullIfEmpty(e.Detail),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// History returns events for target, newest first.
func (d *DB) History(ctx context.Context, target string, limit int) ([]Event, error) {
	query := `SELECT id, target, pipeline_id, phase, event, detail, timestamp
		 FROM pipeline_events WHERE target = ? ORDER BY id DESC`
	args := []any{target}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var phase, detail sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Target, &e.PipelineID, &phase, &e.Event, &detail, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Phase = phase.String
		e.Detail = detail.String
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse event timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SQLiteLog stores each target's events in that target's own tracking
// directory, so targets stay isolated from each other.
type SQLiteLog struct {
	store *tracking.Store
}

// NewSQLiteLog creates a per-target SQLite log.
func NewSQLiteLog(store *tracking.Store) *SQLiteLog {
	return &SQLiteLog{store: store}
}

func (l *SQLiteLog) open(target string) (*DB, error) {
	if _, err := l.store.EnsureDir(target); err != nil {
		return nil, err
	}
	d, err := OpenDB(l.store.Path(target, tracking.EventsFile))
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Record appends e to the target's event database.
func (l *SQLiteLog) Record(ctx context.Context, e Event) error {
	d, err := l.open(e.Target)
	if err != nil {
		return err
	}
	defer d.Close()
	_, err = d.Insert(ctx, e)
	return err
}

// History reads the target's events. A target without an event database
// has no history.
func (l *SQLiteLog) History(ctx context.Context, target string, limit int) ([]Event, error) {
	if !l.store.Exists(target, tracking.EventsFile) {
		return nil, nil
	}
	d, err := l.open(target)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.History(ctx, target, limit)
}

// Close is a no-op; databases are opened per call.
func (l *SQLiteLog) Close() error { return nil }
