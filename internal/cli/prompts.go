package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage the phase prompt templates",
}

var promptsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the built-in phase prompts to a directory for editing",
	Long: `Writes discoverer.md, builder.md and inspector.md. Point prompt_dir in the
configuration at the directory to use the edited copies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if dir == "" {
			dir = cfg.PromptDir
		}
		if dir == "" {
			return NewExitError(ExitFailure, "--dir is required when prompt_dir is not configured")
		}
		written, err := prompt.Export(dir, overwrite)
		if err != nil {
			return err
		}
		if len(written) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "All prompts already exist (use --overwrite to replace them).")
			return nil
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	promptsExportCmd.Flags().String("dir", "", "destination directory (default: prompt_dir from config)")
	promptsExportCmd.Flags().Bool("overwrite", false, "replace existing files")
	promptsCmd.AddCommand(promptsExportCmd)
}
