package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/report"
)

var runMultiCmd = &cobra.Command{
	Use:   "run-multi",
	Short: "Initialize every repository under a folder and report their status",
	Long: `Scans the immediate children of --folder for repositories (directories with
.git, package.json, pom.xml or build.gradle), initializes a pipeline in each
and copies the input document into it. Prints how to run each pipeline and
writes a combined status document at the folder root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		input, _ := cmd.Flags().GetString("input")
		maxLoops, _ := cmd.Flags().GetInt("max-loops")

		abs, err := existingDir(folder)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		inputPath, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		_, plain, err := a.validator.LoadInput(inputPath)
		if err != nil {
			return err
		}

		targets, err := a.coord.Discover(abs)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("No repositories found in folder: %s", abs))
		}

		failures := a.coord.InitializeAll(cmd.Context(), targets, inputPath, plain)
		combined, path, err := a.coord.Aggregate(abs, targets, failures)
		if err != nil {
			return err
		}

		if maxLoops <= 0 {
			maxLoops = a.cfg.MaxLoops
		}
		w := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(w, combined)
		}

		fmt.Fprintln(w, "=== Multi-Repo Pipeline ===")
		fmt.Fprintf(w, "Folder: %s\n", abs)
		fmt.Fprintf(w, "Input: %s\n\n", inputPath)
		fmt.Fprintf(w, "Found %d repositories:\n", len(targets))
		for _, t := range combined.Repos {
			fmt.Fprintf(w, "  - %s\n", t.Name)
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "=== Instructions ===")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run each repository's pipeline independently. They can run in parallel.")
		fmt.Fprintln(w)
		for _, t := range combined.Repos {
			if t.Error != "" {
				continue
			}
			fmt.Fprintf(w, "  agents run-pipeline --target %q --max-loops %d\n", t.Path, maxLoops)
		}
		fmt.Fprintln(w)

		report.NewPrinter(w).Combined(combined)
		fmt.Fprintf(w, "\nCombined status written to: %s\n", path)
		return nil
	},
}

func init() {
	runMultiCmd.Flags().String("folder", "", "folder containing the target repositories")
	runMultiCmd.Flags().String("input", "", "input document (JSON or JSONC)")
	runMultiCmd.Flags().Int("max-loops", 0, "maximum builder runs per target (default from config)")
	runMultiCmd.MarkFlagRequired("folder")
	runMultiCmd.MarkFlagRequired("input")
}
