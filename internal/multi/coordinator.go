// Package multi fans the pipeline out over every target under a folder and
// collects a combined status snapshot.
package multi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/report"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// TargetError records why one target could not be processed.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// Coordinator discovers, initializes and aggregates targets.
type Coordinator struct {
	machine *pipeline.Machine
	cfg     *config.Config
	now     func() time.Time
}

// New creates a Coordinator.
func New(machine *pipeline.Machine, cfg *config.Config) *Coordinator {
	return &Coordinator{machine: machine, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source (for testing).
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Discover returns the immediate children of folder that look like
// repositories, in directory-listing order. Hidden entries are skipped. A
// folder without repositories yields an empty result, not an error.
func (c *Coordinator) Discover(folder string) ([]string, error) {
	dir, err := os.Open(folder)
	if err != nil {
		return nil, fmt.Errorf("open folder: %w", err)
	}
	defer dir.Close()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var targets []string
	for _, e := range entries {
		name := e.Name()
		if c.cfg.HiddenPrefix != "" && strings.HasPrefix(name, c.cfg.HiddenPrefix) {
			continue
		}
		path := filepath.Join(folder, name)
		info, err := os.Stat(path)
		if err != nil {
			slog.Debug("skipping unreadable entry", "path", path, "err", err)
			continue
		}
		if !info.IsDir() || !c.hasMarker(path) {
			continue
		}
		targets = append(targets, path)
	}
	return targets, nil
}

func (c *Coordinator) hasMarker(dir string) bool {
	for _, m := range c.cfg.RepoMarkers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		} else if !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("marker check failed", "dir", dir, "marker", m, "err", err)
		}
	}
	return false
}

// InitializeAll initializes every target and stores a copy of the input
// document in its tracking directory. A failing target never stops its
// siblings; the failures are returned.
func (c *Coordinator) InitializeAll(ctx context.Context, targets []string, inputRef string, input []byte) []*TargetError {
	var failures []*TargetError
	for _, t := range targets {
		if err := c.initialize(ctx, t, inputRef, input); err != nil {
			slog.Warn("target initialization failed", "target", t, "err", err)
			failures = append(failures, &TargetError{Target: t, Err: err})
		}
	}
	return failures
}

func (c *Coordinator) initialize(ctx context.Context, target, inputRef string, input []byte) error {
	if _, err := c.machine.Initialize(ctx, target, inputRef); err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	if _, err := c.machine.Store().WriteRaw(target, tracking.InputFile(config.PhaseDiscoverer), input); err != nil {
		return fmt.Errorf("copy input: %w", err)
	}
	return nil
}

// Aggregate summarizes every target and writes the combined document to
// the folder root, replacing any previous one.
func (c *Coordinator) Aggregate(folder string, targets []string, failures []*TargetError) (*report.CombinedStatus, string, error) {
	failed := make(map[string]error, len(failures))
	for _, f := range failures {
		failed[f.Target] = f.Err
	}

	combined := &report.CombinedStatus{
		Folder:      folder,
		Repos:       make([]report.TargetStatus, 0, len(targets)),
		GeneratedAt: c.now().UTC(),
	}
	for _, t := range targets {
		ts := report.TargetStatus{Path: t, Name: norm.NFC.String(filepath.Base(t))}
		if err, ok := failed[t]; ok {
			ts.Error = err.Error()
		} else if s, err := report.Summarize(c.machine, t); err != nil {
			ts.Error = err.Error()
		} else {
			ts.Status = s
		}
		combined.Repos = append(combined.Repos, ts)
		combined.Totals.Add(ts)
	}

	path := filepath.Join(folder, c.cfg.CombinedStatusFile)
	if err := tracking.WriteJSON(path, combined); err != nil {
		return nil, "", fmt.Errorf("write combined status: %w", err)
	}
	return combined, path, nil
}
