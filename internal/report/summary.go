// Package report projects tracking documents into summaries and renders
// them for the operator. Nothing here mutates tracking state.
package report

import (
	"errors"
	"strings"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/pipeline"
)

// NoPipelineMessage is reported for a target without a status document.
const NoPipelineMessage = "No pipeline initialized for this repo."

// Summary is the read-only view of one target's pipeline.
type Summary struct {
	Exists        bool           `json:"exists"`
	Message       string         `json:"message,omitempty"`
	PipelineID    string         `json:"pipelineId,omitempty"`
	OverallStatus string         `json:"overallStatus,omitempty"`
	Phases        []PhaseSummary `json:"phases,omitempty"`
}

// PhaseSummary is one row of a Summary.
type PhaseSummary struct {
	Phase       string     `json:"phase"`
	Label       string     `json:"label"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ErrorCount  int        `json:"errorCount"`
}

// Summarize reads target's status through the machine.
func Summarize(m *pipeline.Machine, target string) (*Summary, error) {
	ps, err := m.Load(target)
	if errors.Is(err, pipeline.ErrNotInitialized) {
		return &Summary{Exists: false, Message: NoPipelineMessage}, nil
	}
	if err != nil {
		return nil, err
	}
	return FromStatus(ps), nil
}

// FromStatus projects a loaded status document.
func FromStatus(ps *pipeline.PipelineStatus) *Summary {
	s := &Summary{
		Exists:        true,
		PipelineID:    ps.PipelineID,
		OverallStatus: ps.OverallStatus,
		Phases:        make([]PhaseSummary, 0, len(ps.Phases)),
	}
	for _, p := range ps.Ordered() {
		s.Phases = append(s.Phases, PhaseSummary{
			Phase:       p.Name,
			Label:       p.Label,
			Status:      p.Status,
			StartedAt:   p.StartedAt,
			CompletedAt: p.CompletedAt,
			ErrorCount:  len(p.Errors),
		})
	}
	return s
}

// Bucket classifies a summary for the multi-target totals.
func (s *Summary) Bucket() string {
	switch {
	case !s.Exists:
		return pipeline.StatusPending
	case s.OverallStatus == pipeline.OverallCompleted:
		return pipeline.StatusCompleted
	case strings.HasSuffix(s.OverallStatus, "_"+pipeline.StatusFailed):
		return pipeline.StatusFailed
	case s.OverallStatus == pipeline.OverallInitialized,
		strings.HasSuffix(s.OverallStatus, "_"+pipeline.StatusPending):
		return pipeline.StatusPending
	}
	return pipeline.StatusInProgress
}
