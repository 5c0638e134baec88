// Package actor runs a phase through an external actor. The pipeline never
// does the work of a phase itself: a Runner hands the phase to something
// else and reports back whether an output is available yet.
package actor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
)

// Kind classifies a runner result.
type Kind int

const (
	// Output means the actor produced its output document.
	Output Kind = iota
	// Pending means the output is not available yet; the pipeline pauses.
	Pending
	// Failure means the actor reported that it could not do the work.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Output:
		return "output"
	case Pending:
		return "pending"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Request describes one phase run.
type Request struct {
	Target   string
	Phase    config.Phase
	Loop     int // 0 outside the build/inspect loop
	MaxLoops int
	Status   *pipeline.PipelineStatus
}

// Result is what a Runner reports.
type Result struct {
	Kind       Kind
	Output     json.RawMessage // set for Output
	PromptFile string          // where the phase prompt was written, if any
	Message    string          // set for Failure
}

// Runner is the capability to have an external actor run a phase.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}
