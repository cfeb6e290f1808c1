// Package client is a small OpenLineage client: it validates RunEvents and hands them
// to a configured transport. There is no retry; the first failure is returned to the caller.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// Client emits RunEvents through a Transport.
type Client struct {
	transport Transport
	validator *openlineage.Validator
	validate  bool
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-event debug logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithoutValidation hands events to the transport without validating them first.
func WithoutValidation() Option {
	return func(c *Client) {
		c.validate = false
	}
}

// New creates a Client around transport.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		validator: openlineage.NewValidator(),
		validate:  true,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FromEnvironment builds a Client from LoadConfig.
func FromEnvironment(opts ...Option) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	transport, err := NewTransport(cfg.Transport)
	if err != nil {
		return nil, err
	}

	if cfg.SkipValidation {
		opts = append([]Option{WithoutValidation()}, opts...)
	}

	return New(transport, opts...), nil
}

// Emit validates event and hands it to the transport.
// A nil event is rejected even when validation is disabled.
func (c *Client) Emit(ctx context.Context, event *openlineage.RunEvent) error {
	if event == nil {
		return fmt.Errorf("invalid run event: %w", openlineage.ErrNilEvent)
	}

	if c.validate {
		if err := c.validator.ValidateRunEvent(event); err != nil {
			return fmt.Errorf("invalid run event: %w", err)
		}
	}

	if err := c.transport.Emit(ctx, event); err != nil {
		return err
	}

	c.logger.Debug("Emitted lineage event",
		slog.String("event_type", string(event.EventType)),
		slog.String("job_namespace", event.Job.Namespace),
		slog.String("job_name", event.Job.Name),
		slog.String("run_id", event.Run.ID.String()),
		slog.Int("inputs", len(event.Inputs)),
		slog.Int("outputs", len(event.Outputs)),
	)

	return nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
