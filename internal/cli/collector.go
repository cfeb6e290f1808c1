package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/correlator-io/retail-lineage/internal/aliasing"
	"github.com/correlator-io/retail-lineage/internal/collector"
	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
)

// NewCollectorCommand creates the collector command.
func NewCollectorCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Run a local OpenLineage collector",
		Long: `Run an HTTP server that accepts OpenLineage events on /api/v1/lineage,
validates them and keeps them in memory. Tracked runs are listed on
/api/v1/lineage/runs and datasets on /api/v1/lineage/datasets.

Configuration is read from COLLECTOR_* environment variables. Setting
COLLECTOR_API_KEY (comma-separated, each "secret" or "client:secret")
enables API key authentication. Dataset alias patterns are read from
COLLECTOR_ALIASES_PATH (default .retail-lineage.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := collector.LoadServerConfig()
			cfg.Version = Version

			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logger := newLogger(cmd.ErrOrStderr())

			var keyStore middleware.KeyStore

			if len(cfg.APIKeys) > 0 {
				keys, err := middleware.NewHashedKeyStore(cfg.APIKeys)
				if err != nil {
					return fmt.Errorf("invalid COLLECTOR_API_KEY: %w", err)
				}

				keyStore = keys

				logger.Info("API keys loaded", slog.Int("count", keys.Len()))
			}

			limiterConfig := middleware.LoadConfig()
			rateLimiter := middleware.NewInMemoryRateLimiter(limiterConfig)

			logger.Info("Rate limiter initialized",
				slog.Int("global_rps", limiterConfig.GlobalRPS),
				slog.Int("client_rps", limiterConfig.ClientRPS),
				slog.Int("unauth_rps", limiterConfig.UnAuthRPS),
			)

			aliasConfig, err := aliasing.LoadConfigFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load dataset aliases: %w", err)
			}

			resolver := aliasing.NewResolver(aliasConfig)
			if resolver.PatternCount() > 0 {
				logger.Info("Dataset aliases loaded", slog.Int("patterns", resolver.PatternCount()))
			}

			store := collector.NewMemoryStore(collector.WithURNResolver(resolver))
			server := collector.NewServer(cfg, store, keyStore, rateLimiter)

			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides COLLECTOR_SERVER_PORT)")

	return cmd
}
