package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a target's recorded phase transitions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		limit, _ := cmd.Flags().GetInt("limit")

		abs, err := filepath.Abs(target)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		evs, err := a.events.History(cmd.Context(), abs, limit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(w, evs)
		}
		if len(evs) == 0 {
			fmt.Fprintln(w, "No events recorded.")
			return nil
		}

		fmt.Fprintf(w, "%-20s %-12s %-24s %s\n", "TIME", "PHASE", "EVENT", "DETAIL")
		fmt.Fprintf(w, "%-20s %-12s %-24s %s\n",
			strings.Repeat("-", 20),
			strings.Repeat("-", 12),
			strings.Repeat("-", 24),
			strings.Repeat("-", 6))
		for _, e := range evs {
			phase := e.Phase
			if phase == "" {
				phase = "-"
			}
			detail := e.Detail
			if len(detail) > 60 {
				detail = detail[:57] + "..."
			}
			fmt.Fprintf(w, "%-20s %-12s %-24s %s\n", e.Timestamp.UTC().Format(time.RFC3339), phase, e.Event, detail)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("target", "", "path to the target repository")
	historyCmd.Flags().Int("limit", 20, "maximum number of events to show")
	historyCmd.MarkFlagRequired("target")
}
