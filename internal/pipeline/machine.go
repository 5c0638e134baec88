package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/events"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// Machine owns the PipelineStatus document of each target. Every
// transition is a read-modify-write through the tracking store.
type Machine struct {
	store    *tracking.Store
	phases   []config.Phase
	now      func() time.Time
	ids      IDGenerator
	recorder events.Recorder
}

// NewMachine creates a state machine over the given phase table.
func NewMachine(store *tracking.Store, phases []config.Phase) *Machine {
	return &Machine{
		store:    store,
		phases:   phases,
		now:      time.Now,
		ids:      UUIDv7Generator{},
		recorder: events.Nop{},
	}
}

// SetClock overrides the time source (for testing).
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// SetIDGenerator overrides pipeline id generation (for testing).
func (m *Machine) SetIDGenerator(g IDGenerator) {
	m.ids = g
}

// SetRecorder sets where transition events are logged.
func (m *Machine) SetRecorder(r events.Recorder) {
	m.recorder = r
}

// Store returns the underlying tracking store.
func (m *Machine) Store() *tracking.Store {
	return m.store
}

// Phases returns the phase table in order.
func (m *Machine) Phases() []config.Phase {
	return m.phases
}

// Phase looks up a phase by name.
func (m *Machine) Phase(name string) (config.Phase, error) {
	for _, p := range m.phases {
		if p.Name == name {
			return p, nil
		}
	}
	return config.Phase{}, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}

func (m *Machine) timestamp() time.Time {
	return m.now().UTC()
}

// Load returns the target's status, or ErrNotInitialized if there is none.
func (m *Machine) Load(target string) (*PipelineStatus, error) {
	var ps PipelineStatus
	found, err := m.store.Read(target, tracking.StatusFile, &ps)
	if err != nil {
		return nil, fmt.Errorf("read pipeline status: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, target)
	}
	if ps.Phases == nil {
		ps.Phases = make(map[string]*PhaseRecord)
	}
	return &ps, nil
}

func (m *Machine) save(target string, ps *PipelineStatus) error {
	if _, err := m.store.Write(target, tracking.StatusFile, ps); err != nil {
		return fmt.Errorf("write pipeline status: %w", err)
	}
	return nil
}

// update loads the status, applies fn and writes it back.
func (m *Machine) update(target, phase string, fn func(ps *PipelineStatus, rec *PhaseRecord) error) (*PipelineStatus, error) {
	if _, err := m.Phase(phase); err != nil {
		return nil, err
	}
	ps, err := m.Load(target)
	if err != nil {
		return nil, err
	}
	rec, ok := ps.Phases[phase]
	if !ok {
		// A document written before this phase existed; fill it in.
		rec = m.newRecord(phase)
		ps.Phases[phase] = rec
	}
	if err := fn(ps, rec); err != nil {
		return nil, err
	}
	if err := m.save(target, ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (m *Machine) newRecord(name string) *PhaseRecord {
	p, _ := m.Phase(name)
	return &PhaseRecord{
		Order:      p.Order,
		Label:      p.Label,
		Status:     StatusPending,
		OutputFile: tracking.OutputFile(name),
		Errors:     []PhaseError{},
	}
}

// Initialize loads the target's status or creates it. Missing phase
// records are filled in; present ones are never touched, so calling it
// again never discards progress or regenerates the pipeline id.
func (m *Machine) Initialize(ctx context.Context, target, inputRef string) (*PipelineStatus, error) {
	ps, err := m.Load(target)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, ErrNotInitialized):
		created = true
		ps = &PipelineStatus{
			PipelineID:    m.ids.Generate(),
			TargetPath:    target,
			InputFile:     inputRef,
			StartedAt:     m.timestamp(),
			Phases:        make(map[string]*PhaseRecord),
			OverallStatus: OverallInitialized,
		}
	default:
		return nil, err
	}

	for _, p := range m.phases {
		if _, ok := ps.Phases[p.Name]; !ok {
			ps.Phases[p.Name] = m.newRecord(p.Name)
		}
		if ps.Phases[p.Name].Errors == nil {
			ps.Phases[p.Name].Errors = []PhaseError{}
		}
	}
	switch all := ps.AllCompleted(); {
	case all:
		ps.OverallStatus = OverallCompleted
	case ps.OverallStatus == OverallCompleted:
		ps.OverallStatus = OverallInitialized
	}

	if err := m.save(target, ps); err != nil {
		return nil, err
	}
	if created {
		m.record(ctx, target, ps, "", events.Initialized, inputRef)
	}
	return ps, nil
}

// Start marks a phase in_progress.
func (m *Machine) Start(ctx context.Context, target, phase string) (*PipelineStatus, error) {
	ps, err := m.update(target, phase, func(ps *PipelineStatus, rec *PhaseRecord) error {
		now := m.timestamp()
		rec.Status = StatusInProgress
		rec.StartedAt = clamp(now, rec.StartedAt)
		ps.OverallStatus = OverallFor(phase, StatusInProgress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.record(ctx, target, ps, phase, events.Started, "")
	return ps, nil
}

// Complete marks a phase completed and stores its summary. When every phase
// is completed the pipeline itself completes.
func (m *Machine) Complete(ctx context.Context, target, phase string, summary map[string]any) (*PipelineStatus, error) {
	if summary == nil {
		summary = map[string]any{}
	}
	ps, err := m.update(target, phase, func(ps *PipelineStatus, rec *PhaseRecord) error {
		now := m.timestamp()
		rec.Status = StatusCompleted
		rec.CompletedAt = clamp(now, rec.CompletedAt, rec.StartedAt)
		rec.Summary = summary
		ps.OverallStatus = OverallFor(phase, StatusCompleted)
		if ps.AllCompleted() {
			ps.OverallStatus = OverallCompleted
			if ps.CompletedAt == nil {
				ps.CompletedAt = clamp(now, nil, rec.CompletedAt)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	name := events.Completed
	if s, _ := summary["status"].(string); s == events.AwaitingExternalStep {
		name = events.AwaitingExternalStep
	}
	m.record(ctx, target, ps, phase, name, "")
	return ps, nil
}

// Fail marks a phase failed and appends message to its errors. startedAt
// is kept.
func (m *Machine) Fail(ctx context.Context, target, phase, message string) (*PipelineStatus, error) {
	ps, err := m.update(target, phase, func(ps *PipelineStatus, rec *PhaseRecord) error {
		now := m.timestamp()
		if n := len(rec.Errors); n > 0 {
			now = *clamp(now, &rec.Errors[n-1].Timestamp)
		}
		rec.Status = StatusFailed
		rec.Errors = append(rec.Errors, PhaseError{Message: message, Timestamp: now})
		ps.OverallStatus = OverallFor(phase, StatusFailed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.record(ctx, target, ps, phase, events.Failed, message)
	return ps, nil
}

// ResetResult describes what a reset removed.
type ResetResult struct {
	Full    bool
	Status  *PipelineStatus // nil after a full reset
	Removed []string        // document names, or the tracking dir for a full reset
}

// Reset returns fromPhase and every later phase to pending, clearing their
// timestamps, errors and summaries and deleting their outputs. An empty
// fromPhase deletes the tracking directory wholesale.
func (m *Machine) Reset(ctx context.Context, target, fromPhase string) (*ResetResult, error) {
	if fromPhase == "" {
		existed, err := m.store.RemoveAll(target)
		if err != nil {
			return nil, err
		}
		res := &ResetResult{Full: true}
		if existed {
			res.Removed = []string{m.store.Dir(target)}
		}
		slog.Info("pipeline fully reset", "target", target, "removed", existed)
		return res, nil
	}

	from, err := m.Phase(fromPhase)
	if err != nil {
		return nil, err
	}
	ps, err := m.Load(target)
	if err != nil {
		return nil, err
	}

	res := &ResetResult{Status: ps}
	for _, p := range m.phases {
		if p.Order < from.Order {
			continue
		}
		rec, ok := ps.Phases[p.Name]
		if !ok {
			rec = m.newRecord(p.Name)
			ps.Phases[p.Name] = rec
		}
		rec.Status = StatusPending
		rec.StartedAt = nil
		rec.CompletedAt = nil
		rec.Errors = []PhaseError{}
		rec.Summary = nil

		if ok, err := m.store.Remove(target, tracking.OutputFile(p.Name)); err != nil {
			return nil, err
		} else if ok {
			res.Removed = append(res.Removed, tracking.OutputFile(p.Name))
		}
		archived, err := m.store.RemoveMatching(target, p.Name+"-output.loop-*.json")
		if err != nil {
			return nil, err
		}
		res.Removed = append(res.Removed, archived...)
	}

	if builder, err := m.Phase(config.PhaseBuilder); err == nil && from.Order <= builder.Order {
		if ok, err := m.store.Remove(target, tracking.LoopInstructionsFile); err != nil {
			return nil, err
		} else if ok {
			res.Removed = append(res.Removed, tracking.LoopInstructionsFile)
		}
	}

	ps.CompletedAt = nil
	if from.Order == m.phases[0].Order {
		ps.OverallStatus = OverallInitialized
	} else {
		ps.OverallStatus = OverallFor(fromPhase, StatusPending)
	}
	if err := m.save(target, ps); err != nil {
		return nil, err
	}
	m.record(ctx, target, ps, fromPhase, events.Reset, "")
	return res, nil
}

// Note records an event for target without changing its status. It is used
// for loop decisions, which are not phase transitions.
func (m *Machine) Note(ctx context.Context, target, phase, name, detail string) {
	ps, err := m.Load(target)
	if err != nil {
		ps = &PipelineStatus{}
	}
	m.record(ctx, target, ps, phase, name, detail)
}

func (m *Machine) record(ctx context.Context, target string, ps *PipelineStatus, phase, name, detail string) {
	e := events.Event{
		Target:     target,
		PipelineID: ps.PipelineID,
		Phase:      phase,
		Event:      name,
		Detail:     detail,
		Timestamp:  m.timestamp(),
	}
	if err := m.recorder.Record(ctx, e); err != nil {
		slog.Warn("record pipeline event", "target", target, "event", name, "err", err)
	}
}

// clamp returns now, raised to the latest of the given lower bounds, so a
// clock stepping backwards never makes a timestamp decrease.
func clamp(now time.Time, floors ...*time.Time) *time.Time {
	t := now
	for _, f := range floors {
		if f != nil && f.After(t) {
			t = *f
		}
	}
	return &t
}
