package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/correlator-io/retail-lineage/internal/client"
	"github.com/correlator-io/retail-lineage/internal/retail"
)

// NewEmitCommand creates the emit command.
func NewEmitCommand() *cobra.Command {
	var (
		jobName string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Run the pipeline and emit its lineage events",
		Long: `Run load_source, build_dims and build_facts in order. Each job emits START,
RUNNING and COMPLETE with a fresh run id. The first emission error stops the run.`,
		Example: `  # Send events to a collector
  OPENLINEAGE_URL=http://localhost:5000 retail-lineage emit

  # Print the events of one job instead of sending them
  retail-lineage emit --job build_dims --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr())

			pipeline := retail.NewPipeline(func() (retail.EmitCloser, error) {
				if dryRun {
					return client.New(client.NewConsoleTransport(cmd.OutOrStdout()), client.WithLogger(logger)), nil
				}

				c, err := client.FromEnvironment(client.WithLogger(logger))
				if err != nil {
					return nil, err
				}

				return c, nil
			})
			pipeline.Logger = logger

			if jobName == "" {
				return pipeline.Run(cmd.Context())
			}

			runID, err := pipeline.RunNamed(cmd.Context(), jobName)
			if err != nil {
				return err
			}

			logger.Debug("Job run finished", slog.String("job", jobName), slog.String("run_id", runID.String()))

			return nil
		},
	}

	cmd.Flags().StringVar(&jobName, "job", "", "run a single job (load_source, build_dims or build_facts)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print events to stdout instead of sending them")

	_ = cmd.RegisterFlagCompletionFunc("job", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(retail.Jobs()))
		for _, job := range retail.Jobs() {
			names = append(names, job.Name)
		}

		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
