package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajrichter/my-agents-cc/internal/config"
	"github.com/ajrichter/my-agents-cc/internal/logging"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// Global flags, and the configuration they resolve to before any command
// runs.
var (
	configFile   string
	logLevel     string
	outputFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agents",
	Short: "agents - drive the discover, build and inspect pipeline",
	Long: `agents coordinates a three-phase workflow (discover, build, inspect) over one
or many target repositories. Each phase is carried out by an external agent;
progress is kept in the target's .agent-tracking/ directory so a run can be
paused, resumed, reset and retried.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !isValidFormat(outputFormat) {
			return NewExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", outputFormat, ValidFormats))
		}
		loaded, err := loadConfig()
		if err != nil {
			return WrapExitError(ExitFailure, "load config", err)
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if err := logging.Configure(cmd.ErrOrStderr(), loaded.LogLevel); err != nil {
			return WrapExitError(ExitFailure, "configure logging", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: ./agents.yaml, ~/.agents/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format (json|text)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(runAgentCmd)
	rootCmd.AddCommand(runPipelineCmd)
	rootCmd.AddCommand(runMultiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(promptsCmd)
}

// jsonOutput reports whether machine-readable output was requested.
func jsonOutput() bool {
	return outputFormat == "json"
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
