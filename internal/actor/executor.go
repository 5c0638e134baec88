package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/events"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/schema"
)

// PhaseFailedError reports that a phase was recorded as failed.
type PhaseFailedError struct {
	Phase   string
	Message string
	Err     error // underlying cause, e.g. a *schema.ValidationError
}

func (e *PhaseFailedError) Error() string {
	return fmt.Sprintf("phase %s failed: %s", e.Phase, e.Message)
}

func (e *PhaseFailedError) Unwrap() error {
	return e.Err
}

// Outcome is the result of executing one phase.
type Outcome struct {
	Kind       Kind // Output or Pending; failures come back as *PhaseFailedError
	Output     json.RawMessage
	PromptFile string
	Status     *pipeline.PipelineStatus
}

// Executor moves a phase through the state machine around one runner
// call: start, run, then record a pause or a failure. A valid output is
// returned to the caller, which completes the phase with its own summary.
type Executor struct {
	machine   *pipeline.Machine
	runner    Runner
	validator *schema.Validator
}

// NewExecutor creates an Executor.
func NewExecutor(machine *pipeline.Machine, runner Runner, validator *schema.Validator) *Executor {
	return &Executor{machine: machine, runner: runner, validator: validator}
}

// Machine returns the state machine the executor drives.
func (e *Executor) Machine() *pipeline.Machine {
	return e.machine
}

// Execute runs phase for target.
func (e *Executor) Execute(ctx context.Context, target, phase string, loop, maxLoops int) (*Outcome, error) {
	p, err := e.machine.Phase(phase)
	if err != nil {
		return nil, err
	}
	ps, err := e.machine.Start(ctx, target, phase)
	if err != nil {
		return nil, err
	}

	res, err := e.runner.Run(ctx, Request{Target: target, Phase: p, Loop: loop, MaxLoops: maxLoops, Status: ps})
	if err != nil {
		return nil, e.fail(ctx, target, phase, err.Error(), err)
	}

	switch res.Kind {
	case Pending:
		summary := map[string]any{"status": events.AwaitingExternalStep}
		if loop > 0 {
			summary["loop"] = loop
		}
		if res.PromptFile != "" {
			summary["promptFile"] = res.PromptFile
		}
		ps, err := e.machine.Complete(ctx, target, phase, summary)
		if err != nil {
			return nil, err
		}
		slog.Info("awaiting external step", "target", target, "phase", phase, "loop", loop)
		return &Outcome{Kind: Pending, PromptFile: res.PromptFile, Status: ps}, nil

	case Failure:
		return nil, e.fail(ctx, target, phase, res.Message, nil)

	case Output:
		kind, ok := schema.OutputKind(phase)
		if ok {
			if err := e.validator.Validate(kind, phase+"-output.json", res.Output); err != nil {
				return nil, e.fail(ctx, target, phase, err.Error(), err)
			}
		}
		return &Outcome{Kind: Output, Output: res.Output, Status: ps}, nil
	}
	return nil, fmt.Errorf("runner returned unknown result kind %v", res.Kind)
}

func (e *Executor) fail(ctx context.Context, target, phase, message string, cause error) error {
	if _, err := e.machine.Fail(ctx, target, phase, message); err != nil {
		return errors.Join(&PhaseFailedError{Phase: phase, Message: message, Err: cause}, err)
	}
	return &PhaseFailedError{Phase: phase, Message: message, Err: cause}
}

// OutputSummary derives the summary recorded when a phase completes with
// output. loop is included for the builder when positive.
func OutputSummary(phase string, output []byte, loop int) (map[string]any, error) {
	switch phase {
	case config.PhaseDiscoverer:
		var out schema.DiscovererOutput
		if err := json.Unmarshal(output, &out); err != nil {
			return nil, fmt.Errorf("decode discoverer output: %w", err)
		}
		return map[string]any{"occurrences": len(out.Occurrences)}, nil
	case config.PhaseBuilder:
		var out schema.BuilderOutput
		if err := json.Unmarshal(output, &out); err != nil {
			return nil, fmt.Errorf("decode builder output: %w", err)
		}
		summary := map[string]any{}
		for k, v := range out.TestResults {
			summary[k] = v
		}
		if loop > 0 {
			summary["loop"] = loop
		}
		return summary, nil
	case config.PhaseInspector:
		var out schema.InspectorOutput
		if err := json.Unmarshal(output, &out); err != nil {
			return nil, fmt.Errorf("decode inspector output: %w", err)
		}
		if out.ValidationResults == nil {
			return map[string]any{}, nil
		}
		return out.ValidationResults, nil
	}
	return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownPhase, phase)
}
