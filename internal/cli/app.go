package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/actor"
	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/events"
	"github.com/ajrichter/my-agents-cc/internal/manifest"
	"github.com/ajrichter/my-agents-cc/internal/multi"
	"github.com/ajrichter/my-agents-cc/internal/orchestrator"
	"github.com/ajrichter/my-agents-cc/internal/pipeline"
	"github.com/ajrichter/my-agents-cc/internal/prompt"
	"github.com/ajrichter/my-agents-cc/internal/schema"
	"github.com/ajrichter/my-agents-cc/internal/tracking"
)

// app is the set of components one command works with.
type app struct {
	cfg       *config.Config
	store     *tracking.Store
	machine   *pipeline.Machine
	validator *schema.Validator
	events    events.Log
	manifest  *manifest.Recorder
	orch      *orchestrator.Orchestrator
	coord     *multi.Coordinator
}

// newApp wires the components from the resolved configuration. Actor
// instructions are printed to the command's stdout.
func newApp(cmd *cobra.Command) (*app, func(), error) {
	conf := cfg
	if conf == nil {
		conf = config.Default()
	}
	if errs := config.Validate(conf); len(errs) > 0 {
		return nil, nil, WrapExitError(ExitFailure, "invalid configuration (see agents config validate)", errs[0])
	}

	store := tracking.NewStore(conf.TrackingDir)
	machine := pipeline.NewMachine(store, conf.Phases)

	log, err := events.Open(cmd.Context(), conf.Events, store)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	machine.SetRecorder(log)

	validator, err := schema.NewValidator()
	if err != nil {
		log.Close()
		return nil, nil, err
	}

	prompts := prompt.NewBuilder(store, &prompt.ExecGit{}, conf.PromptDir)
	runner := actor.NewManualRunner(store, prompts, cmd.OutOrStdout())
	exec := actor.NewExecutor(machine, runner, validator)

	a := &app{
		cfg:       conf,
		store:     store,
		machine:   machine,
		validator: validator,
		events:    log,
		manifest:  manifest.NewRecorder(store),
		orch:      orchestrator.NewOrchestrator(conf, exec, validator),
		coord:     multi.New(machine, conf),
	}
	cleanup := func() {
		if err := log.Close(); err != nil {
			slog.Warn("close event log", "err", err)
		}
	}
	return a, cleanup, nil
}
