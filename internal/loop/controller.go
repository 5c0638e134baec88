// Package loop runs the bounded build/inspect cycle. After every build the
// inspector may ask for another build; the controller honours that until
// the loop cap is reached.
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ajrichter/my-agents-cc/internal/actor"
	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/events"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/schema"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// Instructions is the builder-loop-instructions.json document handed to the
// next build.
type Instructions struct {
	Loop   int    `json:"loop"`
	Items  []any  `json:"items"`
	Reason string `json:"reason"`
}

// Outcome states.
const (
	Completed = "completed"
	Paused    = "paused"
)

// Result describes how a Run ended. Phase failures are returned as errors.
type Result struct {
	Status      string // Completed or Paused
	Loops       int    // builds started, counting resumed iterations
	CapReached  bool   // the inspector still wanted a loop at the cap
	PausedPhase string
	PromptFile  string
	Inspector   *schema.InspectorOutput
	Pipeline    *pipeline.PipelineStatus
}

// Controller drives builder and inspector for one target.
type Controller struct {
	exec     *actor.Executor
	maxLoops int
}

// New creates a Controller. maxLoops below 1 is treated as 1.
func New(exec *actor.Executor, maxLoops int) *Controller {
	if maxLoops < 1 {
		maxLoops = 1
	}
	return &Controller{exec: exec, maxLoops: maxLoops}
}

// MaxLoops returns the loop cap.
func (c *Controller) MaxLoops() int {
	return c.maxLoops
}

// Run executes build then inspect until the inspector is satisfied or the
// cap is reached. A pending loop instructions document resumes the count
// where a previous process stopped.
func (c *Controller) Run(ctx context.Context, target string) (*Result, error) {
	machine := c.exec.Machine()
	store := machine.Store()

	count, err := c.resumeCount(store, target)
	if err != nil {
		return nil, err
	}

	for {
		count++
		slog.Info("build/inspect loop", "target", target, "loop", count, "max", c.maxLoops)

		oc, err := c.exec.Execute(ctx, target, config.PhaseBuilder, count, c.maxLoops)
		if err != nil {
			return nil, err
		}
		if oc.Kind == actor.Pending {
			return paused(config.PhaseBuilder, count, oc), nil
		}
		summary, err := actor.OutputSummary(config.PhaseBuilder, oc.Output, count)
		if err != nil {
			return nil, err
		}
		if _, err := machine.Complete(ctx, target, config.PhaseBuilder, summary); err != nil {
			return nil, err
		}

		oc, err = c.exec.Execute(ctx, target, config.PhaseInspector, count, c.maxLoops)
		if err != nil {
			return nil, err
		}
		if oc.Kind == actor.Pending {
			return paused(config.PhaseInspector, count, oc), nil
		}
		var insp schema.InspectorOutput
		if err := json.Unmarshal(oc.Output, &insp); err != nil {
			return nil, fmt.Errorf("decode inspector output: %w", err)
		}

		if insp.RequiresBuilderLoop && count < c.maxLoops {
			if err := c.requestLoop(ctx, target, count, &insp); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := store.Remove(target, tracking.LoopInstructionsFile); err != nil {
			return nil, err
		}
		results := insp.ValidationResults
		if results == nil {
			results = map[string]any{}
		}
		ps, err := machine.Complete(ctx, target, config.PhaseInspector, results)
		if err != nil {
			return nil, err
		}
		res := &Result{Status: Completed, Loops: count, Inspector: &insp, Pipeline: ps}
		if insp.RequiresBuilderLoop {
			res.CapReached = true
			slog.Warn("loop cap reached with the inspector still requesting changes",
				"target", target, "max", c.maxLoops, "reason", insp.Reason())
		}
		return res, nil
	}
}

// requestLoop hands the inspector's items to the next build and moves the
// consumed outputs aside so the next iteration starts from fresh ones.
func (c *Controller) requestLoop(ctx context.Context, target string, count int, insp *schema.InspectorOutput) error {
	machine := c.exec.Machine()
	store := machine.Store()

	items := insp.LoopItems
	if items == nil {
		items = []any{}
	}
	next := Instructions{Loop: count + 1, Items: items, Reason: insp.Reason()}
	if _, err := store.Write(target, tracking.LoopInstructionsFile, next); err != nil {
		return fmt.Errorf("write loop instructions: %w", err)
	}
	for _, phase := range []string{config.PhaseBuilder, config.PhaseInspector} {
		if _, err := store.Rename(target, tracking.OutputFile(phase), tracking.ArchivedOutputFile(phase, count)); err != nil {
			return fmt.Errorf("archive %s output: %w", phase, err)
		}
	}
	if _, err := machine.Complete(ctx, target, config.PhaseInspector, map[string]any{
		"loopRequested": true,
		"loop":          count,
	}); err != nil {
		return err
	}
	machine.Note(ctx, target, config.PhaseInspector, events.LoopRequested, next.Reason)
	slog.Info("inspector requested another build", "target", target, "next_loop", next.Loop, "items", len(items))
	return nil
}

// resumeCount returns how many iterations already finished according to a
// pending instructions document, never past the cap.
func (c *Controller) resumeCount(store *tracking.Store, target string) (int, error) {
	var instr Instructions
	found, err := store.Read(target, tracking.LoopInstructionsFile, &instr)
	if err != nil {
		return 0, err
	}
	if !found || instr.Loop < 1 {
		return 0, nil
	}
	count := instr.Loop - 1
	if count >= c.maxLoops {
		count = c.maxLoops - 1
	}
	return count, nil
}

func paused(phase string, loop int, oc *actor.Outcome) *Result {
	return &Result{
		Status:      Paused,
		Loops:       loop,
		PausedPhase: phase,
		PromptFile:  oc.PromptFile,
		Pipeline:    oc.Status,
	}
}
