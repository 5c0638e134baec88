package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/orchestrator"
	"github.com/ajrichter/my-agents-cc/internal/report"
)

var runAgentCmd = &cobra.Command{
	Use:   "run-agent <phase>",
	Short: "Run a single phase against a target",
	Long: `Runs one phase (discoverer, builder or inspector). When the phase output is
not available yet the phase prompt is written and instructions are printed;
run the command again once the agent has written its output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		input, _ := cmd.Flags().GetString("input")

		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		w := cmd.OutOrStdout()
		if !jsonOutput() {
			fmt.Fprintf(w, "=== Running agent: %s ===\n", args[0])
			fmt.Fprintf(w, "Target: %s\n", target)
			if input != "" {
				fmt.Fprintf(w, "Input: %s\n", input)
			}
			fmt.Fprintln(w)
		}

		res, err := a.orch.RunAgent(cmd.Context(), orchestrator.RunOpts{Target: target, Phase: args[0], InputFile: input})
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(w, res)
		}
		switch res.Action {
		case orchestrator.ActionPaused:
			fmt.Fprintf(w, "\nWaiting for the %s output.\n", res.Phase)
		default:
			fmt.Fprintf(w, "Phase %s completed.\n\n", res.Phase)
			report.NewPrinter(w).Status(report.FromStatus(res.Status))
		}
		return nil
	},
}

var runPipelineCmd = &cobra.Command{
	Use:   "run-pipeline",
	Short: "Run discovery and the build/inspect loop against a target",
	Long: `Runs the discoverer, then the builder and inspector until the inspector is
satisfied or --max-loops builds have run. The run stops at the first phase
whose output is not available yet; run the command again to resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		input, _ := cmd.Flags().GetString("input")
		maxLoops, _ := cmd.Flags().GetInt("max-loops")

		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if maxLoops <= 0 {
			maxLoops = a.cfg.MaxLoops
		}
		w := cmd.OutOrStdout()
		if !jsonOutput() {
			fmt.Fprintln(w, "=== Starting Pipeline ===")
			fmt.Fprintf(w, "Target: %s\n", target)
			if input != "" {
				fmt.Fprintf(w, "Input: %s\n", input)
			}
			fmt.Fprintf(w, "Max builder loops: %d\n\n", maxLoops)
		}

		res, err := a.orch.RunPipeline(cmd.Context(), orchestrator.RunOpts{Target: target, InputFile: input, MaxLoops: maxLoops})
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(w, res)
		}
		printPipelineResult(w, res, maxLoops)
		return nil
	},
}

func init() {
	runAgentCmd.Flags().String("target", "", "path to the target repository")
	runAgentCmd.Flags().String("input", "", "input document (JSON or JSONC); required for the discoverer")
	runAgentCmd.MarkFlagRequired("target")

	runPipelineCmd.Flags().String("target", "", "path to the target repository")
	runPipelineCmd.Flags().String("input", "", "input document (JSON or JSONC)")
	runPipelineCmd.Flags().Int("max-loops", 0, "maximum builder runs (default from config)")
	runPipelineCmd.MarkFlagRequired("target")
}

func printPipelineResult(w io.Writer, res *orchestrator.Result, maxLoops int) {
	p := report.NewPrinter(w)
	switch res.Action {
	case orchestrator.ActionAlreadyCompleted:
		fmt.Fprintln(w, "Pipeline already completed.")
		p.Status(report.FromStatus(res.Status))
	case orchestrator.ActionPaused:
		fmt.Fprintln(w)
		p.Status(report.FromStatus(res.Status))
		fmt.Fprintf(w, "\n%s output not yet available. Re-run this command once the agent has finished.\n", res.Phase)
	default:
		fmt.Fprintln(w, "=== Pipeline Complete ===")
		p.Status(report.FromStatus(res.Status))
		if res.ConfidenceScore != nil {
			fmt.Fprintf(w, "\nConfidence Score: %g/100\n", *res.ConfidenceScore)
		}
		if res.CapReached {
			fmt.Fprintf(w, "\nWARNING: Max loops (%d) reached. Manual review required.\n", maxLoops)
		}
	}
}

// existingDir resolves path and checks that it is a directory.
func existingDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", NewExitError(ExitFailure, "a path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", NewExitError(ExitFailure, fmt.Sprintf("path does not exist: %s", abs))
	}
	return abs, nil
}
