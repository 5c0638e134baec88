package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Record changes and scan coverage in a target's change manifest",
	Long: `Called by the external agents while they work: record-change appends a file
change, record-scan replaces the scan coverage.`,
}

var manifestRecordChangeCmd = &cobra.Command{
	Use:   "record-change",
	Short: "Append a file change to the change manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		agent, _ := cmd.Flags().GetString("agent")
		file, _ := cmd.Flags().GetString("file")
		changeType, _ := cmd.Flags().GetString("type")
		description, _ := cmd.Flags().GetString("description")

		abs, err := existingDir(target)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		m, err := a.manifest.RecordChange(abs, agent, file, changeType, description)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), m.Changes[len(m.Changes)-1])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s (%d changes tracked)\n", changeType, file, len(m.Changes))
		return nil
	},
}

var manifestRecordScanCmd = &cobra.Command{
	Use:   "record-scan",
	Short: "Record the coverage of the latest scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		paths, _ := cmd.Flags().GetStringArray("path")
		total, _ := cmd.Flags().GetInt("total")
		complete, _ := cmd.Flags().GetBool("complete")

		abs, err := existingDir(target)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		m, err := a.manifest.RecordScanCoverage(abs, paths, total, complete)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), m.ScanCoverage)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded scan coverage: %d files (complete: %t)\n", total, complete)
		return nil
	},
}

func init() {
	manifestRecordChangeCmd.Flags().String("target", "", "path to the target repository")
	manifestRecordChangeCmd.Flags().String("agent", "", "agent making the change")
	manifestRecordChangeCmd.Flags().String("file", "", "changed file, relative to the target")
	manifestRecordChangeCmd.Flags().String("type", "", "created, modified or deleted")
	manifestRecordChangeCmd.Flags().String("description", "", "what changed")
	for _, f := range []string{"target", "agent", "file", "type"} {
		manifestRecordChangeCmd.MarkFlagRequired(f)
	}

	manifestRecordScanCmd.Flags().String("target", "", "path to the target repository")
	manifestRecordScanCmd.Flags().StringArray("path", nil, "scanned path (repeatable)")
	manifestRecordScanCmd.Flags().Int("total", 0, "number of files scanned")
	manifestRecordScanCmd.Flags().Bool("complete", true, "whether the scan covered everything")
	manifestRecordScanCmd.MarkFlagRequired("target")
	manifestRecordScanCmd.MarkFlagRequired("total")

	manifestCmd.AddCommand(manifestRecordChangeCmd)
	manifestCmd.AddCommand(manifestRecordScanCmd)
}
