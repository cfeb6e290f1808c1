package middleware

import (
	"time"

	"github.com/correlator-io/retail-lineage/internal/config"
)

// Config holds rate limiter configuration.
//
// Limits are requests per second for three tiers:
//   - Global: every request
//   - Client: each authenticated client separately
//   - Unauthenticated: requests without a client, as one bucket
//
// A zero burst is computed as 2 × rate.
type Config struct {
	GlobalRPS int // Default: 100
	ClientRPS int // Default: 50
	UnAuthRPS int // Default: 10

	GlobalBurst int
	ClientBurst int
	UnAuthBurst int

	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxClients      int           // Default: 100
}

// LoadConfig loads rate limiter config from COLLECTOR_* environment variables.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("COLLECTOR_GLOBAL_RPS", defaultGlobalRPS),
		ClientRPS: config.GetEnvInt("COLLECTOR_CLIENT_RPS", defaultClientRPS),
		UnAuthRPS: config.GetEnvInt("COLLECTOR_UNAUTH_RPS", defaultUnAuthRPS),

		GlobalBurst: config.GetEnvInt("COLLECTOR_GLOBAL_BURST", 0),
		ClientBurst: config.GetEnvInt("COLLECTOR_CLIENT_BURST", 0),
		UnAuthBurst: config.GetEnvInt("COLLECTOR_UNAUTH_BURST", 0),

		CleanupInterval: config.GetEnvDuration("COLLECTOR_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval),
		IdleTimeout:     config.GetEnvDuration("COLLECTOR_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxClients:      config.GetEnvInt("COLLECTOR_RATE_LIMIT_MAX_CLIENTS", maxClients),
	}
}
