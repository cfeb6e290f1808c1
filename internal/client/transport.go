package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// Transport delivers serialized RunEvents somewhere. Implementations make exactly one
// delivery attempt per Emit call.
type Transport interface {
	Emit(ctx context.Context, event *openlineage.RunEvent) error
	Close() error
}

// NewTransport builds the transport selected by cfg.Type.
// cfg is expected to have passed Config.Validate.
func NewTransport(cfg TransportConfig) (Transport, error) {
	switch cfg.Type {
	case TransportHTTP:
		return NewHTTPTransport(cfg), nil
	case TransportKafka:
		return NewKafkaTransport(cfg), nil
	case TransportConsole:
		return NewConsoleTransport(os.Stdout), nil
	case TransportNoop:
		return NoopTransport{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Type)
	}
}

// ConsoleTransport writes each event as one JSON line.
type ConsoleTransport struct {
	w io.Writer
}

// NewConsoleTransport creates a ConsoleTransport writing to w.
func NewConsoleTransport(w io.Writer) *ConsoleTransport {
	return &ConsoleTransport{w: w}
}

// Emit writes the event followed by a newline.
func (t *ConsoleTransport) Emit(_ context.Context, event *openlineage.RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	data = append(data, '\n')

	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Close is a no-op; the writer belongs to the caller.
func (t *ConsoleTransport) Close() error {
	return nil
}

// NoopTransport discards every event. Selected by OPENLINEAGE_DISABLED=true.
type NoopTransport struct{}

// Emit discards the event.
func (NoopTransport) Emit(context.Context, *openlineage.RunEvent) error { return nil }

// Close does nothing.
func (NoopTransport) Close() error { return nil }
