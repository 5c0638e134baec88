package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/events"
)

// Phase statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Overall statuses that are not derived from a single phase.
const (
	OverallInitialized = "initialized"
	OverallCompleted   = "pipeline_completed"
)

// OverallFor formats a per-phase overall status such as "builder_failed".
func OverallFor(phase, status string) string {
	return fmt.Sprintf("%s_%s", phase, status)
}

// PipelineStatus is the persisted state for one target
// (pipeline-status.json).
type PipelineStatus struct {
	PipelineID    string                  `json:"pipelineId"`
	TargetPath    string                  `json:"targetPath"`
	InputFile     string                  `json:"inputFile"`
	StartedAt     time.Time               `json:"startedAt"`
	CompletedAt   *time.Time              `json:"completedAt"`
	Phases        map[string]*PhaseRecord `json:"phases"`
	OverallStatus string                  `json:"overallStatus"`
}

// PhaseRecord tracks one phase's lifecycle.
type PhaseRecord struct {
	Order       int            `json:"order"`
	Label       string         `json:"label"`
	Status      string         `json:"status"`
	StartedAt   *time.Time     `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	OutputFile  string         `json:"outputFile"`
	Summary     map[string]any `json:"summary"`
	Errors      []PhaseError   `json:"errors"`
}

// PhaseError is one entry of a phase's append-only error list.
type PhaseError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NamedPhase pairs a phase record with its name.
type NamedPhase struct {
	Name string
	*PhaseRecord
}

// Ordered returns the phase records sorted by order.
func (s *PipelineStatus) Ordered() []NamedPhase {
	out := make([]NamedPhase, 0, len(s.Phases))
	for name, rec := range s.Phases {
		out = append(out, NamedPhase{Name: name, PhaseRecord: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AllCompleted reports whether every phase has status completed. The
// summary is not consulted: a completion recording a pause or a loop
// request counts like any other.
func (s *PipelineStatus) AllCompleted() bool {
	if len(s.Phases) == 0 {
		return false
	}
	for _, p := range s.Phases {
		if p.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Outstanding reports whether some completed phase only recorded a pause
// or a loop request, so the work it stands for is not done yet.
func (s *PipelineStatus) Outstanding() bool {
	for _, p := range s.Phases {
		if p.Awaiting() || p.LoopRequested() {
			return true
		}
	}
	return false
}

// Completed reports whether the pipeline has reached its terminal state.
func (s *PipelineStatus) Completed() bool {
	return s.OverallStatus == OverallCompleted
}

// Awaiting reports whether the phase was completed only as a pause while
// its external output is outstanding.
func (r *PhaseRecord) Awaiting() bool {
	if r == nil || r.Status != StatusCompleted {
		return false
	}
	s, _ := r.Summary["status"].(string)
	return s == events.AwaitingExternalStep
}

// LoopRequested reports whether the inspector completion asked for another
// build.
func (r *PhaseRecord) LoopRequested() bool {
	if r == nil || r.Status != StatusCompleted {
		return false
	}
	v, _ := r.Summary["loopRequested"].(bool)
	return v
}
