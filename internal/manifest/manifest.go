// Package manifest maintains a target's change manifest: the append-only
// list of files the external actor created, modified or deleted, plus the
// coverage of the most recent scan.
package manifest

import (
	"errors"
	"fmt"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// Change types.
const (
	Created  = "created"
	Modified = "modified"
	Deleted  = "deleted"
)

// ErrInvalidChangeType is returned for a change type outside
// created/modified/deleted.
var ErrInvalidChangeType = errors.New("invalid change type")

// Manifest is the change-manifest.json document.
type Manifest struct {
	Changes      []Change      `json:"changes"`
	ScanCoverage *ScanCoverage `json:"scanCoverage,omitempty"`
}

// Change is one recorded file change.
type Change struct {
	Agent       string    `json:"agent"`
	File        string    `json:"file"`
	ChangeType  string    `json:"changeType"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ScanCoverage describes what the last scan looked at. It is replaced
// wholesale on every recording.
type ScanCoverage struct {
	ScannedPaths     []string  `json:"scannedPaths"`
	TotalFiles       int       `json:"totalFiles"`
	ScannedAt        time.Time `json:"scannedAt"`
	CoverageComplete bool      `json:"coverageComplete"`
}

// CountByType tallies changes per change type.
func (m *Manifest) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, c := range m.Changes {
		counts[c.ChangeType]++
	}
	return counts
}

// Recorder reads and appends to change manifests.
type Recorder struct {
	store *tracking.Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store *tracking.Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// SetClock overrides the time source (for testing).
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Load returns the target's manifest. found is false when none exists yet.
func (r *Recorder) Load(target string) (m *Manifest, found bool, err error) {
	m = &Manifest{Changes: []Change{}}
	found, err = r.store.Read(target, tracking.ManifestFile, m)
	if err != nil {
		return nil, false, fmt.Errorf("read change manifest: %w", err)
	}
	if m.Changes == nil {
		m.Changes = []Change{}
	}
	return m, found, nil
}

// RecordChange appends one change.
func (r *Recorder) RecordChange(target, agent, file, changeType, description string) (*Manifest, error) {
	switch changeType {
	case Created, Modified, Deleted:
	default:
		return nil, fmt.Errorf("%w %q: want created, modified or deleted", ErrInvalidChangeType, changeType)
	}
	m, _, err := r.Load(target)
	if err != nil {
		return nil, err
	}
	m.Changes = append(m.Changes, Change{
		Agent:       agent,
		File:        file,
		ChangeType:  changeType,
		Description: description,
		Timestamp:   r.now().UTC(),
	})
	if _, err := r.store.Write(target, tracking.ManifestFile, m); err != nil {
		return nil, fmt.Errorf("write change manifest: %w", err)
	}
	return m, nil
}

// RecordScanCoverage replaces the scan coverage.
func (r *Recorder) RecordScanCoverage(target string, scannedPaths []string, totalFiles int, complete bool) (*Manifest, error) {
	m, _, err := r.Load(target)
	if err != nil {
		return nil, err
	}
	if scannedPaths == nil {
		scannedPaths = []string{}
	}
	m.ScanCoverage = &ScanCoverage{
		ScannedPaths:     scannedPaths,
		TotalFiles:       totalFiles,
		ScannedAt:        r.now().UTC(),
		CoverageComplete: complete,
	}
	if _, err := r.store.Write(target, tracking.ManifestFile, m); err != nil {
		return nil, fmt.Errorf("write change manifest: %w", err)
	}
	return m, nil
}
