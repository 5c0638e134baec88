package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ajrichter/my-agents-cc/internal/actor"
	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/loop"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/schema"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

var (
	// ErrTargetNotFound is returned when the target directory does not exist.
	ErrTargetNotFound = errors.New("target does not exist")
	// ErrInputRequired is returned when discovery has no input document.
	ErrInputRequired = errors.New("an input document is required for discovery")
)

// Actions reported in a Result.
const (
	ActionCompleted        = "completed"
	ActionPaused           = "paused"
	ActionAlreadyCompleted = "already_completed"
)

// Orchestrator composes the state machine, the phase executor and the loop
// controller into the run-agent and run-pipeline flows.
type Orchestrator struct {
	cfg       *config.Config
	machine   *pipeline.Machine
	exec      *actor.Executor
	validator *schema.Validator
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg *config.Config, exec *actor.Executor, validator *schema.Validator) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		machine:   exec.Machine(),
		exec:      exec,
		validator: validator,
	}
}

// Machine returns the state machine.
func (o *Orchestrator) Machine() *pipeline.Machine {
	return o.machine
}

// RunOpts configures a run.
type RunOpts struct {
	Target    string
	Phase     string // run-agent only
	InputFile string
	MaxLoops  int // run-pipeline only; 0 uses the configured cap
}

// Result describes what a run did.
type Result struct {
	Target          string                   `json:"target"`
	Action          string                   `json:"action"`
	Phase           string                   `json:"phase,omitempty"`
	Loops           int                      `json:"loops,omitempty"`
	CapReached      bool                     `json:"capReached,omitempty"`
	PromptFile      string                   `json:"promptFile,omitempty"`
	ConfidenceScore *float64                 `json:"confidenceScore,omitempty"`
	Status          *pipeline.PipelineStatus `json:"status,omitempty"`
}

// RunAgent runs a single phase against a target.
func (o *Orchestrator) RunAgent(ctx context.Context, opts RunOpts) (*Result, error) {
	target, err := resolveTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	if _, err := o.machine.Phase(opts.Phase); err != nil {
		return nil, err
	}
	inputRef, input, err := o.prepareInput(target, opts.InputFile, opts.Phase == config.PhaseDiscoverer)
	if err != nil {
		return nil, err
	}

	if _, err := o.machine.Initialize(ctx, target, inputRef); err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}
	if err := o.copyInput(target, input); err != nil {
		return nil, err
	}

	slog.Info("running phase", "target", target, "phase", opts.Phase)
	return o.runPhase(ctx, target, opts.Phase)
}

// RunPipeline runs discovery and then the bounded build/inspect loop. It
// stops at the first phase whose output is not available yet; running it
// again resumes from there.
func (o *Orchestrator) RunPipeline(ctx context.Context, opts RunOpts) (*Result, error) {
	target, err := resolveTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	maxLoops := opts.MaxLoops
	if maxLoops <= 0 {
		maxLoops = o.cfg.MaxLoops
	}
	inputRef, input, err := o.prepareInput(target, opts.InputFile, true)
	if err != nil {
		return nil, err
	}

	ps, err := o.machine.Initialize(ctx, target, inputRef)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}
	if ps.Completed() && !o.resumable(target, ps) {
		slog.Info("pipeline already completed", "target", target, "pipeline", ps.PipelineID)
		return &Result{Target: target, Action: ActionAlreadyCompleted, Status: ps}, nil
	}
	if err := o.copyInput(target, input); err != nil {
		return nil, err
	}

	disc := ps.Phases[config.PhaseDiscoverer]
	if disc == nil || disc.Status != pipeline.StatusCompleted || disc.Awaiting() {
		res, err := o.runPhase(ctx, target, config.PhaseDiscoverer)
		if err != nil || res.Action == ActionPaused {
			return res, err
		}
	} else {
		slog.Debug("discovery already completed", "target", target)
	}

	lr, err := loop.New(o.exec, maxLoops).Run(ctx, target)
	if err != nil {
		return nil, err
	}
	res := &Result{Target: target, Loops: lr.Loops, CapReached: lr.CapReached, Status: lr.Pipeline}
	switch lr.Status {
	case loop.Paused:
		res.Action = ActionPaused
		res.Phase = lr.PausedPhase
		res.PromptFile = lr.PromptFile
	default:
		res.Action = ActionCompleted
		if lr.Inspector != nil {
			res.ConfidenceScore = lr.Inspector.ConfidenceScore
		}
	}
	return res, nil
}

// resumable reports whether a pipeline whose phases all read completed
// still has work left: a phase paused for its external output, an
// inspector loop request, or pending loop instructions.
func (o *Orchestrator) resumable(target string, ps *pipeline.PipelineStatus) bool {
	return ps.Outstanding() || o.machine.Store().Exists(target, tracking.LoopInstructionsFile)
}

// runPhase executes one phase and completes it with its output summary.
func (o *Orchestrator) runPhase(ctx context.Context, target, phase string) (*Result, error) {
	oc, err := o.exec.Execute(ctx, target, phase, 0, o.cfg.MaxLoops)
	if err != nil {
		return nil, err
	}
	if oc.Kind == actor.Pending {
		return &Result{Target: target, Action: ActionPaused, Phase: phase, PromptFile: oc.PromptFile, Status: oc.Status}, nil
	}
	summary, err := actor.OutputSummary(phase, oc.Output, 0)
	if err != nil {
		return nil, err
	}
	ps, err := o.machine.Complete(ctx, target, phase, summary)
	if err != nil {
		return nil, err
	}
	return &Result{Target: target, Action: ActionCompleted, Phase: phase, Status: ps}, nil
}

// prepareInput validates the input document, if any. When required and no
// file is given, a copy already in the tracking directory is accepted.
func (o *Orchestrator) prepareInput(target, inputFile string, required bool) (string, []byte, error) {
	if inputFile == "" {
		if required && !o.machine.Store().Exists(target, tracking.InputFile(config.PhaseDiscoverer)) {
			return "", nil, ErrInputRequired
		}
		return "", nil, nil
	}
	abs, err := filepath.Abs(inputFile)
	if err != nil {
		return "", nil, err
	}
	_, plain, err := o.validator.LoadInput(abs)
	if err != nil {
		return "", nil, err
	}
	return abs, plain, nil
}

func (o *Orchestrator) copyInput(target string, input []byte) error {
	if input == nil {
		return nil
	}
	if _, err := o.machine.Store().WriteRaw(target, tracking.InputFile(config.PhaseDiscoverer), input); err != nil {
		return fmt.Errorf("copy input: %w", err)
	}
	return nil
}

func resolveTarget(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: no target given", ErrTargetNotFound)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrTargetNotFound, abs)
	}
	return abs, nil
}
