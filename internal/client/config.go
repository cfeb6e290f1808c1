package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/retail-lineage/internal/config"
)

// Environment variables read by LoadConfig.
const (
	EnvURL      = "OPENLINEAGE_URL"
	EnvEndpoint = "OPENLINEAGE_ENDPOINT"
	EnvAPIKey   = "OPENLINEAGE_API_KEY" //nolint:gosec // variable name, not a credential
	EnvTimeout  = "OPENLINEAGE_TIMEOUT"
	EnvConfig   = "OPENLINEAGE_CONFIG"
	EnvDisabled = "OPENLINEAGE_DISABLED"
)

const (
	// DefaultConfigFile is looked up in the working directory, then in ~/.openlineage.
	DefaultConfigFile = "openlineage.yml"

	// DefaultEndpoint is the OpenLineage lineage endpoint path.
	DefaultEndpoint = "api/v1/lineage"

	defaultTimeout   = 5 * time.Second
	authTypeAPIKey   = "api_key"
	bootstrapServers = "bootstrap.servers"
)

// TransportType names a transport implementation.
type TransportType string

// Supported transport types.
const (
	TransportHTTP    TransportType = "http"
	TransportKafka   TransportType = "kafka"
	TransportConsole TransportType = "console"
	TransportNoop    TransportType = "noop"
)

// Sentinel errors for client configuration.
var (
	ErrConfigNotFound      = errors.New("openlineage config file not found")
	ErrInvalidConfigFile   = errors.New("invalid openlineage config file")
	ErrUnknownTransport    = errors.New("unknown transport type")
	ErrMissingURL          = errors.New("http transport requires a url")
	ErrInvalidURL          = errors.New("http transport url must be an absolute http(s) url")
	ErrMissingTopic        = errors.New("kafka transport requires a topic")
	ErrMissingBrokers      = errors.New("kafka transport requires at least one broker")
	ErrInvalidTimeout      = errors.New("transport timeout cannot be negative")
	ErrUnsupportedAuthType = errors.New("unsupported auth type")
)

type (
	// Config is the lineage client configuration, in the layout of openlineage.yml.
	//
	// Example openlineage.yml:
	//
	//	transport:
	//	  type: http
	//	  url: http://localhost:5000
	//	  endpoint: api/v1/lineage
	//	  timeout: 5
	//	  auth:
	//	    type: api_key
	//	    apiKey: secret
	Config struct {
		Transport TransportConfig `yaml:"transport"`

		// SkipValidation disables validating events before they are handed to the transport.
		SkipValidation bool `yaml:"skipValidation"`
	}

	// TransportConfig selects and configures one transport.
	TransportConfig struct {
		Type TransportType `yaml:"type"`

		// http
		URL      string     `yaml:"url"`
		Endpoint string     `yaml:"endpoint"`
		Auth     AuthConfig `yaml:"auth"`

		// Timeout in seconds; applies to http requests and kafka writes.
		Timeout float64 `yaml:"timeout"`

		// kafka
		Topic      string            `yaml:"topic"`
		Brokers    []string          `yaml:"brokers"`
		MessageKey string            `yaml:"messageKey"`
		Properties map[string]string `yaml:"config"`
	}

	// AuthConfig configures http authentication. Only api_key is supported.
	AuthConfig struct {
		Type   string `yaml:"type"`
		APIKey string `yaml:"apiKey"`
	}
)

// LoadConfig resolves the client configuration from the process environment.
//
// Resolution order:
//  1. OPENLINEAGE_DISABLED=true selects the noop transport; nothing else is read
//  2. openlineage.yml from OPENLINEAGE_CONFIG, ./openlineage.yml, or ~/.openlineage/openlineage.yml
//  3. OPENLINEAGE_URL (with OPENLINEAGE_ENDPOINT, OPENLINEAGE_API_KEY, OPENLINEAGE_TIMEOUT)
//     selects the http transport, overriding the file's transport type
//  4. with nothing configured, events are printed by the console transport
//
// A config file that is missing from the default locations is not an error.
// A file named by OPENLINEAGE_CONFIG must exist, and any file found must parse.
func LoadConfig() (*Config, error) {
	if config.GetEnvBool(EnvDisabled, false) {
		return &Config{Transport: TransportConfig{Type: TransportNoop}}, nil
	}

	cfg := &Config{}

	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.Transport.Type == "" {
		slog.Warn("No OpenLineage transport configured, printing events to stdout",
			slog.String("hint", "set "+EnvURL+" or provide "+DefaultConfigFile))

		cfg.Transport.Type = TransportConsole
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "" if none does.
func findConfigFile() (string, error) {
	if explicit := config.GetEnvStr(EnvConfig, ""); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrConfigNotFound, explicit, err)
		}

		return explicit, nil
	}

	candidates := []string{DefaultConfigFile}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".openlineage", DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's environment
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
	}

	slog.Debug("Loaded OpenLineage config file", slog.String("path", path))

	return nil
}

func (c *Config) applyEnv() {
	rawURL := config.GetEnvStr(EnvURL, "")
	if rawURL == "" {
		return
	}

	c.Transport.Type = TransportHTTP
	c.Transport.URL = rawURL
	c.Transport.Endpoint = config.GetEnvStr(EnvEndpoint, c.Transport.Endpoint)

	if apiKey := config.GetEnvStr(EnvAPIKey, ""); apiKey != "" {
		c.Transport.Auth = AuthConfig{Type: authTypeAPIKey, APIKey: apiKey}
	}

	if timeout := config.GetEnvDuration(EnvTimeout, 0); timeout > 0 {
		c.Transport.Timeout = timeout.Seconds()
	}
}

func (c *Config) applyDefaults() {
	t := &c.Transport

	if t.Type == TransportHTTP && t.Endpoint == "" {
		t.Endpoint = DefaultEndpoint
	}

	if t.Timeout == 0 {
		t.Timeout = defaultTimeout.Seconds()
	}

	if t.Type == TransportKafka && len(t.Brokers) == 0 {
		t.Brokers = config.ParseCommaSeparatedList(t.Properties[bootstrapServers])
	}

	if t.Auth.APIKey != "" && t.Auth.Type == "" {
		t.Auth.Type = authTypeAPIKey
	}
}

// Validate checks that the selected transport has everything it needs.
func (c *Config) Validate() error {
	t := c.Transport

	if t.Timeout < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, t.Timeout)
	}

	switch t.Type {
	case TransportHTTP:
		if t.URL == "" {
			return ErrMissingURL
		}

		parsed, err := url.Parse(t.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidURL, t.URL)
		}

		if t.Auth.Type != "" && t.Auth.Type != authTypeAPIKey {
			return fmt.Errorf("%w: %q", ErrUnsupportedAuthType, t.Auth.Type)
		}
	case TransportKafka:
		if t.Topic == "" {
			return ErrMissingTopic
		}

		if len(t.Brokers) == 0 {
			return ErrMissingBrokers
		}
	case TransportConsole, TransportNoop:
	default:
		return fmt.Errorf("%w: %q (valid: http, kafka, console, noop)", ErrUnknownTransport, t.Type)
	}

	return nil
}

// TimeoutDuration returns the configured timeout as a time.Duration.
func (t TransportConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout * float64(time.Second))
}
