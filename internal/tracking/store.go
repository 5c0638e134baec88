package tracking

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Well-known document names inside a tracking directory.
const (
	StatusFile           = "pipeline-status.json"
	ManifestFile         = "change-manifest.json"
	LoopInstructionsFile = "builder-loop-instructions.json"
	EventsFile           = "events.db"
)

// OutputFile returns the name of the document a phase's external actor produces.
func OutputFile(phase string) string {
	return phase + "-output.json"
}

// ArchivedOutputFile returns the name a consumed output is moved to when a
// build/inspect loop is requested.
func ArchivedOutputFile(phase string, loop int) string {
	return fmt.Sprintf("%s-output.loop-%d.json", phase, loop)
}

// InputFile returns the name of the copied input document for a phase.
func InputFile(phase string) string {
	return phase + "-input.json"
}

// PromptFile returns the name of the rendered prompt for a phase.
func PromptFile(phase string) string {
	return phase + "-prompt.md"
}

// Store manages the per-target tracking documents on disk. Every target
// gets its own hidden directory; documents are addressed by file name.
type Store struct {
	dirName string // e.g. ".agent-tracking"
}

// NewStore creates a Store that keeps documents in <target>/<dirName>.
func NewStore(dirName string) *Store {
	return &Store{dirName: dirName}
}

// DirName returns the tracking directory name used inside each target.
func (s *Store) DirName() string {
	return s.dirName
}

// Dir returns the tracking directory for a target.
func (s *Store) Dir(target string) string {
	return filepath.Join(target, s.dirName)
}

// Path returns the location of a named document for a target.
func (s *Store) Path(target, name string) string {
	return filepath.Join(s.Dir(target), name)
}

// EnsureDir creates the tracking directory if needed and returns its path.
// Safe to call concurrently and repeatedly.
func (s *Store) EnsureDir(target string) (string, error) {
	dir := s.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// Exists reports whether the named document is present.
func (s *Store) Exists(target, name string) bool {
	_, err := os.Stat(s.Path(target, name))
	return err == nil
}

// Read decodes the named document into v. A missing document is not an
// error: found is false and v is untouched.
func (s *Store) Read(target, name string, v any) (found bool, err error) {
	if err := ReadJSON(s.Path(target, name), v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadRaw returns the named document's bytes, or found=false when missing.
func (s *Store) ReadRaw(target, name string) (data []byte, found bool, err error) {
	data, err = os.ReadFile(s.Path(target, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// Write fully replaces the named document with v and returns its path.
func (s *Store) Write(target, name string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return s.WriteRaw(target, name, data)
}

// WriteRaw fully replaces the named document with data and returns its path.
func (s *Store) WriteRaw(target, name string, data []byte) (string, error) {
	if _, err := s.EnsureDir(target); err != nil {
		return "", err
	}
	path := s.Path(target, name)
	if err := WriteAtomic(path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Rename moves a document within the tracking directory. A missing source
// is reported as moved=false.
func (s *Store) Rename(target, from, to string) (moved bool, err error) {
	if err := os.Rename(s.Path(target, from), s.Path(target, to)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("rename %s -> %s: %w", from, to, err)
	}
	return true, nil
}

// Remove deletes the named document. Removing a missing document is a no-op.
func (s *Store) Remove(target, name string) (removed bool, err error) {
	if err := os.Remove(s.Path(target, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", name, err)
	}
	return true, nil
}

// RemoveMatching deletes every document whose name matches the glob pattern
// and returns the names removed.
func (s *Store) RemoveMatching(target, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir(target), pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	var removed []string
	for _, m := range matches {
		name := filepath.Base(m)
		ok, err := s.Remove(target, name)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, name)
		}
	}
	return removed, nil
}

// RemoveAll deletes the whole tracking directory for a target.
func (s *Store) RemoveAll(target string) (existed bool, err error) {
	dir := s.Dir(target)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return true, fmt.Errorf("remove %s: %w", dir, err)
	}
	return true, nil
}
