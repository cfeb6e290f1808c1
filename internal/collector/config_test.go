package collector

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := LoadServerConfig()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "0.0.0.0:5000", cfg.Address())
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, int64(1048576), cfg.MaxRequestSize)
	assert.Empty(t, cfg.APIKeys)
	require.NoError(t, cfg.Validate())
}

func TestLoadServerConfig_FromEnvironment(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	t.Setenv("COLLECTOR_SERVER_HOST", "127.0.0.1")
	t.Setenv("COLLECTOR_SERVER_PORT", "5050")
	t.Setenv("COLLECTOR_SERVER_WRITE_TIMEOUT", "10s")
	t.Setenv("COLLECTOR_LOG_LEVEL", "debug")
	t.Setenv("COLLECTOR_MAX_REQUEST_SIZE", "2048")
	t.Setenv("COLLECTOR_API_KEY", "etl:first, second ,")

	cfg := LoadServerConfig()

	assert.Equal(t, "127.0.0.1:5050", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, int64(2048), cfg.MaxRequestSize)
	assert.Equal(t, []string{"etl:first", "second"}, cfg.APIKeys)
}

func TestServerConfig_Validate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name    string
		modify  func(*ServerConfig)
		wantErr error
	}{
		{"port zero", func(c *ServerConfig) { c.Port = 0 }, ErrInvalidPort},
		{"port too large", func(c *ServerConfig) { c.Port = 70000 }, ErrInvalidPort},
		{"empty host", func(c *ServerConfig) { c.Host = "" }, ErrEmptyHost},
		{"read timeout", func(c *ServerConfig) { c.ReadTimeout = 0 }, ErrInvalidReadTimeout},
		{"write timeout", func(c *ServerConfig) { c.WriteTimeout = -time.Second }, ErrInvalidWriteTimeout},
		{"shutdown timeout", func(c *ServerConfig) { c.ShutdownTimeout = 0 }, ErrInvalidShutdownTimeout},
		{"max request size", func(c *ServerConfig) { c.MaxRequestSize = 0 }, ErrInvalidMaxRequestSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			tt.modify(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
