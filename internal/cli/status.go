package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/manifest"
	"github.com/ajrichter/my-agents-cc/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a target's phase table and change manifest",
	Long: `Shows the phase table and change manifest of --target (default: the current
directory). Always exits 0: a missing pipeline or an unreadable document is
reported, not treated as an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")

		w := cmd.OutOrStdout()
		abs, err := filepath.Abs(target)
		if err != nil {
			fmt.Fprintf(w, "Could not resolve target: %v\n", err)
			return nil
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := report.Summarize(a.machine, abs)
		if err != nil {
			// A broken document is reported, not fatal.
			fmt.Fprintf(w, "Could not read pipeline status: %v\n", err)
			return nil
		}
		m, _, err := a.manifest.Load(abs)
		if err != nil {
			fmt.Fprintf(w, "Could not read change manifest: %v\n", err)
			m = nil
		}

		if jsonOutput() {
			return printJSON(w, struct {
				*report.Summary
				Manifest *manifest.Manifest `json:"manifest,omitempty"`
			}{summary, m})
		}
		p := report.NewPrinter(w)
		p.Status(summary)
		p.Manifest(m)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("target", ".", "path to the target repository")
}
