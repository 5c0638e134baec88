package actor

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/events"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/prompt"
	"github.com/ajrichter/my-agents-cc/internal/schema"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

const validBuilderOutput = `{"generatedFiles": [], "testResults": {"total": 4, "passed": 3, "failed": 1}, "modifiedFiles": []}`

type fixture struct {
	store   *tracking.Store
	machine *pipeline.Machine
	runner  *ManualRunner
	exec    *Executor
	out     *bytes.Buffer
	target  string
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := tracking.NewStore(".agent-tracking")
	m := pipeline.NewMachine(store, config.DefaultPhases())
	m.SetClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	m.SetIDGenerator(pipeline.NewFixedGenerator("pipeline-test"))
	v, err := schema.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	var out bytes.Buffer
	runner := NewManualRunner(store, prompt.NewBuilder(store, nil, ""), &out)
	f := &fixture{
		store:   store,
		machine: m,
		runner:  runner,
		exec:    NewExecutor(m, runner, v),
		out:     &out,
		target:  t.TempDir(),
		ctx:     context.Background(),
	}
	if _, err := m.Initialize(f.ctx, f.target, ""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return f
}

func (f *fixture) writeOutput(t *testing.T, phase, body string) {
	t.Helper()
	if _, err := f.store.WriteRaw(f.target, tracking.OutputFile(phase), []byte(body)); err != nil {
		t.Fatalf("write %s output: %v", phase, err)
	}
}

func (f *fixture) phase(t *testing.T, name string) config.Phase {
	t.Helper()
	p, err := f.machine.Phase(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestManualRunnerPending(t *testing.T) {
	f := newFixture(t)

	res, err := f.runner.Run(f.ctx, Request{Target: f.target, Phase: f.phase(t, config.PhaseBuilder), Loop: 2, MaxLoops: 3})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Kind != Pending {
		t.Errorf("Kind = %v, want pending", res.Kind)
	}
	if want := f.store.Path(f.target, "builder-prompt.md"); res.PromptFile != want {
		t.Errorf("PromptFile = %q, want %q", res.PromptFile, want)
	}
	if !f.store.Exists(f.target, "builder-prompt.md") {
		t.Error("prompt file not written")
	}

	printed := f.out.String()
	for _, want := range []string{"Run the Build agent (builder), loop 2/3", f.store.Path(f.target, "builder-output.json")} {
		if !strings.Contains(printed, want) {
			t.Errorf("instructions missing %q:\n%s", want, printed)
		}
	}
}

func TestManualRunnerOutputAndFailure(t *testing.T) {
	f := newFixture(t)
	p := f.phase(t, config.PhaseBuilder)

	f.writeOutput(t, config.PhaseBuilder, validBuilderOutput)
	res, err := f.runner.Run(f.ctx, Request{Target: f.target, Phase: p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Output || string(res.Output) != validBuilderOutput {
		t.Errorf("result = %v %s, want the builder output", res.Kind, res.Output)
	}

	f.writeOutput(t, config.PhaseBuilder, `{"error": "could not install dependencies"}`)
	res, err = f.runner.Run(f.ctx, Request{Target: f.target, Phase: p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Failure || res.Message != "could not install dependencies" {
		t.Errorf("result = %v %q, want failure", res.Kind, res.Message)
	}

	// An empty error string is not a failure report.
	f.writeOutput(t, config.PhaseBuilder, `{"error": "", "generatedFiles": [], "testResults": {}, "modifiedFiles": []}`)
	res, err = f.runner.Run(f.ctx, Request{Target: f.target, Phase: p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Output {
		t.Errorf("Kind = %v, want output", res.Kind)
	}
}

func TestExecutePendingRecordsAwaiting(t *testing.T) {
	f := newFixture(t)

	oc, err := f.exec.Execute(f.ctx, f.target, config.PhaseDiscoverer, 0, 3)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if oc.Kind != Pending {
		t.Fatalf("Kind = %v, want pending", oc.Kind)
	}

	rec := oc.Status.Phases[config.PhaseDiscoverer]
	if rec.Status != pipeline.StatusCompleted {
		t.Errorf("Status = %q, want completed", rec.Status)
	}
	if rec.Summary["status"] != events.AwaitingExternalStep || rec.Summary["promptFile"] != oc.PromptFile {
		t.Errorf("Summary = %v", rec.Summary)
	}
	if oc.Status.OverallStatus != "discoverer_completed" {
		t.Errorf("OverallStatus = %q, want discoverer_completed", oc.Status.OverallStatus)
	}
}

func TestExecuteActorFailure(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, config.PhaseInspector, `{"error": "repository does not build"}`)

	_, err := f.exec.Execute(f.ctx, f.target, config.PhaseInspector, 1, 3)
	var pf *PhaseFailedError
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want *PhaseFailedError", err)
	}
	if pf.Phase != config.PhaseInspector {
		t.Errorf("Phase = %q", pf.Phase)
	}

	ps, err := f.machine.Load(f.target)
	if err != nil {
		t.Fatal(err)
	}
	rec := ps.Phases[config.PhaseInspector]
	if rec.Status != pipeline.StatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}
	if len(rec.Errors) != 1 || rec.Errors[0].Message != "repository does not build" {
		t.Errorf("Errors = %+v", rec.Errors)
	}
	if ps.OverallStatus != "inspector_failed" {
		t.Errorf("OverallStatus = %q, want inspector_failed", ps.OverallStatus)
	}
}

func TestExecuteInvalidOutputFailsPhase(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, config.PhaseBuilder, `{"generatedFiles": []}`)

	_, err := f.exec.Execute(f.ctx, f.target, config.PhaseBuilder, 1, 3)
	if !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("err = %v, want a schema violation", err)
	}

	ps, err := f.machine.Load(f.target)
	if err != nil {
		t.Fatal(err)
	}
	if got := ps.Phases[config.PhaseBuilder].Status; got != pipeline.StatusFailed {
		t.Errorf("Status = %q, want failed", got)
	}
}

func TestExecuteOutputLeavesCompletionToCaller(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, config.PhaseBuilder, validBuilderOutput)

	oc, err := f.exec.Execute(f.ctx, f.target, config.PhaseBuilder, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if oc.Kind != Output {
		t.Errorf("Kind = %v, want output", oc.Kind)
	}
	if got := oc.Status.Phases[config.PhaseBuilder].Status; got != pipeline.StatusInProgress {
		t.Errorf("Status = %q, want in_progress", got)
	}
}

func TestExecuteUnknownPhase(t *testing.T) {
	f := newFixture(t)
	_, err := f.exec.Execute(f.ctx, f.target, "deployer", 0, 3)
	if !errors.Is(err, pipeline.ErrUnknownPhase) {
		t.Errorf("err = %v, want ErrUnknownPhase", err)
	}
}

func TestOutputSummary(t *testing.T) {
	tests := []struct {
		phase  string
		output string
		loop   int
		want   map[string]any
	}{
		{config.PhaseDiscoverer, `{"occurrences": [{}, {}, {}]}`, 0, map[string]any{"occurrences": 3}},
		{config.PhaseBuilder, validBuilderOutput, 2, map[string]any{"loop": 2, "total": float64(4), "passed": float64(3), "failed": float64(1)}},
		{config.PhaseInspector, `{"validationResults": {"passed": true}, "requiresBuilderLoop": false}`, 0, map[string]any{"passed": true}},
	}
	for _, tt := range tests {
		got, err := OutputSummary(tt.phase, []byte(tt.output), tt.loop)
		if err != nil {
			t.Fatalf("OutputSummary(%s) error: %v", tt.phase, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("OutputSummary(%s) = %v, want %v", tt.phase, got, tt.want)
		}
	}

	if _, err := OutputSummary("deployer", nil, 0); !errors.Is(err, pipeline.ErrUnknownPhase) {
		t.Errorf("err = %v, want ErrUnknownPhase", err)
	}
}
