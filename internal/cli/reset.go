package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/pipeline"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a target's pipeline, wholly or from a phase onwards",
	Long: `Without --phase the whole tracking directory is deleted. With --phase the
named phase and every later phase go back to pending and their outputs are
removed; earlier phases are untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		phase, _ := cmd.Flags().GetString("phase")

		abs, err := existingDir(target)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if phase != "" {
			if _, err := a.machine.Phase(phase); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("valid phases are %s", strings.Join(a.cfg.PhaseNames(), ", ")), err)
			}
		}

		w := cmd.OutOrStdout()
		res, err := a.machine.Reset(cmd.Context(), abs, phase)
		if errors.Is(err, pipeline.ErrNotInitialized) || (err == nil && res.Full && len(res.Removed) == 0) {
			if jsonOutput() {
				return printJSON(w, map[string]any{"target": abs, "reset": false})
			}
			fmt.Fprintln(w, "No pipeline to reset.")
			return nil
		}
		if err != nil {
			return err
		}

		if jsonOutput() {
			out := map[string]any{"target": abs, "reset": true, "full": res.Full, "removed": res.Removed}
			if res.Status != nil {
				out["overallStatus"] = res.Status.OverallStatus
			}
			return printJSON(w, out)
		}
		if res.Full {
			fmt.Fprintf(w, "Pipeline reset: removed %s\n", res.Removed[0])
			return nil
		}
		fmt.Fprintf(w, "Reset from %s. Overall status: %s\n", phase, res.Status.OverallStatus)
		for _, name := range res.Removed {
			fmt.Fprintf(w, "  removed %s\n", name)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().String("target", "", "path to the target repository")
	resetCmd.Flags().String("phase", "", "reset from this phase onwards (default: everything)")
	resetCmd.MarkFlagRequired("target")
}
