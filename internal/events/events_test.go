package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrateIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestInsertAndHistory(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	seq := []Event{
		{Target: "/r/a", PipelineID: "p1", Event: Initialized, Timestamp: base},
		{Target: "/r/a", PipelineID: "p1", Phase: "discoverer", Event: Started, Timestamp: base.Add(time.Second)},
		{Target: "/r/b", PipelineID: "p2", Event: Initialized, Timestamp: base},
		{Target: "/r/a", PipelineID: "p1", Phase: "discoverer", Event: Failed, Detail: "boom", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range seq {
		if _, err := d.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	got, err := d.History(ctx, "/r/a", 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(History) = %d, want 3", len(got))
	}
	if got[0].Event != Failed || got[0].Detail != "boom" {
		t.Errorf("newest event = %+v, want failed/boom", got[0])
	}
	if got[2].Event != Initialized || got[2].Phase != "" {
		t.Errorf("oldest event = %+v, want initialized with no phase", got[2])
	}
	if !got[1].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp = %v, want %v", got[1].Timestamp, base.Add(time.Second))
	}

	limited, err := d.History(ctx, "/r/a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Event != Failed {
		t.Errorf("History(limit=1) = %+v", limited)
	}
}

func TestSQLiteLogLivesInTrackingDir(t *testing.T) {
	store := tracking.NewStore(".agent-tracking")
	log := NewSQLiteLog(store)
	ctx := context.Background()
	target := t.TempDir()

	got, err := log.History(ctx, target, 0)
	if err != nil || got != nil {
		t.Fatalf("History() before any event = %v, %v; want nil, nil", got, err)
	}
	if _, err := os.Stat(store.Dir(target)); !os.IsNotExist(err) {
		t.Error("History() created the tracking dir")
	}

	err = log.Record(ctx, Event{Target: target, PipelineID: "p1", Event: Initialized, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if !store.Exists(target, tracking.EventsFile) {
		t.Fatalf("%s not created", tracking.EventsFile)
	}
	got, err = log.History(ctx, target, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PipelineID != "p1" {
		t.Errorf("History() = %+v", got)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	store := tracking.NewStore(".agent-tracking")
	ctx := context.Background()

	l, err := Open(ctx, config.EventsConfig{Driver: config.EventsNone}, store)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(Nop); !ok {
		t.Errorf("Open(none) = %T, want Nop", l)
	}

	l, err = Open(ctx, config.EventsConfig{Driver: config.EventsSQLite}, store)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(*SQLiteLog); !ok {
		t.Errorf("Open(sqlite) = %T, want *SQLiteLog", l)
	}

	if _, err := Open(ctx, config.EventsConfig{Driver: "mongo"}, store); err == nil {
		t.Error("Open(mongo) should fail")
	}
	if _, err := Open(ctx, config.EventsConfig{Driver: config.EventsPostgres}, store); err == nil {
		t.Error("Open(postgres) without dsn should fail")
	}
}

func TestPostgresLog(t *testing.T) {
	dsn := os.Getenv("AGENTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGENTS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	l, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() error: %v", err)
	}
	defer l.Close()

	target := "/test/" + t.Name() + "/" + time.Now().Format(time.RFC3339Nano)
	for _, name := range []string{Initialized, Started} {
		if err := l.Record(ctx, Event{Target: target, PipelineID: "p1", Event: name, Timestamp: time.Now()}); err != nil {
			t.Fatalf("Record(%s) error: %v", name, err)
		}
	}
	got, err := l.History(ctx, target, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Event != Started {
		t.Errorf("History() = %+v", got)
	}
}
