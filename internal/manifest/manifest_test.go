package manifest

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

func newTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	r := NewRecorder(tracking.NewStore(".agent-tracking"))
	r.SetClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	return r, t.TempDir()
}

func TestLoadMissing(t *testing.T) {
	r, target := newTestRecorder(t)

	m, found, err := r.Load(target)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if found {
		t.Error("found = true for a target without a manifest")
	}
	if len(m.Changes) != 0 || m.ScanCoverage != nil {
		t.Errorf("manifest = %+v, want empty", m)
	}
}

func TestRecordChangeAppends(t *testing.T) {
	r, target := newTestRecorder(t)

	if _, err := r.RecordChange(target, "builder", "src/a.js", Created, "new client"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RecordChange(target, "builder", "src/b.js", Modified, "wire client"); err != nil {
		t.Fatal(err)
	}
	m, err := r.RecordChange(target, "inspector", "src/old.js", Deleted, "dead code")
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Changes) != 3 {
		t.Fatalf("len(Changes) = %d, want 3", len(m.Changes))
	}
	if m.Changes[0].File != "src/a.js" || m.Changes[2].Agent != "inspector" {
		t.Errorf("changes out of order: %+v", m.Changes)
	}
	if want := map[string]int{Created: 1, Modified: 1, Deleted: 1}; !reflect.DeepEqual(m.CountByType(), want) {
		t.Errorf("CountByType() = %v, want %v", m.CountByType(), want)
	}

	loaded, found, err := r.Load(target)
	if err != nil {
		t.Fatal(err)
	}
	if !found || !reflect.DeepEqual(loaded.Changes, m.Changes) {
		t.Errorf("reloaded changes = %+v, want %+v", loaded.Changes, m.Changes)
	}
}

func TestRecordChangeRejectsUnknownType(t *testing.T) {
	r, target := newTestRecorder(t)

	_, err := r.RecordChange(target, "builder", "a.js", "renamed", "")
	if !errors.Is(err, ErrInvalidChangeType) {
		t.Fatalf("err = %v, want ErrInvalidChangeType", err)
	}

	_, found, err := r.Load(target)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("rejected change created a manifest")
	}
}

func TestRecordScanCoverageReplaces(t *testing.T) {
	r, target := newTestRecorder(t)

	if _, err := r.RecordChange(target, "discoverer", "a.js", Modified, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RecordScanCoverage(target, []string{"src", "lib"}, 40, true); err != nil {
		t.Fatal(err)
	}
	m, err := r.RecordScanCoverage(target, []string{"app"}, 7, false)
	if err != nil {
		t.Fatal(err)
	}

	sc := m.ScanCoverage
	if sc == nil {
		t.Fatal("ScanCoverage = nil")
	}
	if !reflect.DeepEqual(sc.ScannedPaths, []string{"app"}) || sc.TotalFiles != 7 || sc.CoverageComplete {
		t.Errorf("ScanCoverage = %+v, want the second scan only", sc)
	}
	if len(m.Changes) != 1 {
		t.Errorf("len(Changes) = %d, scan recording must leave changes alone", len(m.Changes))
	}
}
