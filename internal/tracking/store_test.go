package tracking

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

type sampleDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestReadMissingIsAbsent(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	var doc sampleDoc
	found, err := s.Read(target, StatusFile, &doc)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if found {
		t.Error("Read() found = true, want false for missing document")
	}
	if _, err := os.Stat(s.Dir(target)); !os.IsNotExist(err) {
		t.Error("Read() should not create the tracking directory")
	}
}

func TestWriteThenRead(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	path, err := s.Write(target, "doc.json", sampleDoc{Name: "alpha", Count: 2})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	want := filepath.Join(target, ".agent-tracking", "doc.json")
	if path != want {
		t.Errorf("Write() path = %q, want %q", path, want)
	}

	var got sampleDoc
	found, err := s.Read(target, "doc.json", &got)
	if err != nil || !found {
		t.Fatalf("Read() = %v, %v", found, err)
	}
	if got.Name != "alpha" || got.Count != 2 {
		t.Errorf("Read() = %+v, want {alpha 2}", got)
	}
}

func TestWriteFullyOverwrites(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	if _, err := s.WriteRaw(target, "doc.json", []byte(`{"name":"a long original value","count":99}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(target, "doc.json", sampleDoc{Name: "b"}); err != nil {
		t.Fatal(err)
	}

	data, found, err := s.ReadRaw(target, "doc.json")
	if err != nil || !found {
		t.Fatalf("ReadRaw() = %v, %v", found, err)
	}
	want := "{\n  \"name\": \"b\",\n  \"count\": 0\n}\n"
	if string(data) != want {
		t.Errorf("document = %q, want %q", data, want)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	for i := 0; i < 3; i++ {
		if _, err := s.Write(target, "doc.json", sampleDoc{Count: i}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(s.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("tracking dir = %v, want only doc.json", names)
	}
}

func TestReadMalformed(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	cases := map[string]string{
		"truncated.json": `{"name": "x"`,
		"unknown.json":   `{"name": "x", "extra": true}`,
		"wrongtype.json": `{"count": "seven"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := s.WriteRaw(target, name, []byte(body)); err != nil {
				t.Fatal(err)
			}
			var doc sampleDoc
			found, err := s.Read(target, name, &doc)
			if found {
				t.Error("found = true for malformed document")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("error = %v, want ErrMalformed", err)
			}
			var docErr *DocumentError
			if !errors.As(err, &docErr) || !strings.HasSuffix(docErr.Path, name) {
				t.Errorf("error = %v, want DocumentError for %s", err, name)
			}
		})
	}
}

func TestEnsureDirConcurrent(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.EnsureDir(target); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("EnsureDir() error: %v", err)
	}
	if info, err := os.Stat(s.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("tracking dir missing after EnsureDir: %v", err)
	}
}

func TestRemoveMatching(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	for _, name := range []string{
		"builder-output.json",
		"builder-output.loop-1.json",
		"builder-output.loop-2.json",
		"inspector-output.loop-1.json",
	} {
		if _, err := s.WriteRaw(target, name, []byte("{}\n")); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.RemoveMatching(target, "builder-output.loop-*.json")
	if err != nil {
		t.Fatalf("RemoveMatching() error: %v", err)
	}
	sort.Strings(removed)
	if strings.Join(removed, ",") != "builder-output.loop-1.json,builder-output.loop-2.json" {
		t.Errorf("removed = %v", removed)
	}
	if !s.Exists(target, "builder-output.json") || !s.Exists(target, "inspector-output.loop-1.json") {
		t.Error("RemoveMatching() removed documents outside the pattern")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	removed, err := s.Remove(target, "nope.json")
	if err != nil || removed {
		t.Errorf("Remove() = %v, %v; want false, nil", removed, err)
	}
	existed, err := s.RemoveAll(target)
	if err != nil || existed {
		t.Errorf("RemoveAll() = %v, %v; want false, nil", existed, err)
	}
}

func TestRemoveAll(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	if _, err := s.Write(target, StatusFile, sampleDoc{}); err != nil {
		t.Fatal(err)
	}
	existed, err := s.RemoveAll(target)
	if err != nil || !existed {
		t.Fatalf("RemoveAll() = %v, %v", existed, err)
	}
	if _, err := os.Stat(s.Dir(target)); !os.IsNotExist(err) {
		t.Error("tracking dir still present after RemoveAll()")
	}
	if _, err := os.Stat(target); err != nil {
		t.Error("RemoveAll() must not touch the target itself")
	}
}

func TestRename(t *testing.T) {
	s := NewStore(".agent-tracking")
	target := t.TempDir()

	moved, err := s.Rename(target, OutputFile("builder"), ArchivedOutputFile("builder", 1))
	if err != nil || moved {
		t.Errorf("Rename() of missing = %v, %v", moved, err)
	}

	if _, err := s.WriteRaw(target, OutputFile("builder"), []byte("{}\n")); err != nil {
		t.Fatal(err)
	}
	moved, err = s.Rename(target, OutputFile("builder"), ArchivedOutputFile("builder", 1))
	if err != nil || !moved {
		t.Fatalf("Rename() = %v, %v", moved, err)
	}
	if s.Exists(target, "builder-output.json") {
		t.Error("source still present after Rename()")
	}
	if !s.Exists(target, "builder-output.loop-1.json") {
		t.Error("archived document missing after Rename()")
	}
}
