// Package cli provides the command-line interface for retail-lineage.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/correlator-io/retail-lineage/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "retail-lineage",
		Short: "Emit OpenLineage events for a simulated retail ETL pipeline",
		Long: `retail-lineage simulates a three-step retail ETL pipeline (load_source,
build_dims, build_facts) and emits START, RUNNING and COMPLETE OpenLineage events
for each job to the configured lineage backend.

The backend is configured the way OpenLineage clients are: OPENLINEAGE_URL,
OPENLINEAGE_CONFIG or an openlineage.yml file. Run "retail-lineage collector"
to start a local collector that accepts the events.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.AddCommand(NewEmitCommand())
	rootCmd.AddCommand(NewCollectorCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command. A failure is logged to stderr before it is returned.
func Execute() error {
	return runRoot(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

func runRoot(rootCmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		newLogger(stderr).Error("Command failed",
			slog.String("command", rootCmd.Name()),
			slog.String("error", err.Error()))

		return err
	}

	return nil
}

// newLogger builds the JSON logger used by the commands, at the level named by
// RETAIL_LINEAGE_LOG_LEVEL.
func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("RETAIL_LINEAGE_LOG_LEVEL", slog.LevelInfo),
	}))
}
