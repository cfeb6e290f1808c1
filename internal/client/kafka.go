package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// messageWriter is the subset of *kafka.Writer the transport needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport publishes each event as one message on a topic.
type KafkaTransport struct {
	writer     messageWriter
	messageKey string
}

// NewKafkaTransport creates a KafkaTransport from a validated kafka TransportConfig.
// Messages are partitioned by key, so every event of one job lands on the same partition.
func NewKafkaTransport(cfg TransportConfig) *KafkaTransport {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           cfg.TimeoutDuration(),
	}

	return newKafkaTransport(writer, cfg.MessageKey)
}

func newKafkaTransport(writer messageWriter, messageKey string) *KafkaTransport {
	return &KafkaTransport{writer: writer, messageKey: messageKey}
}

// Emit writes one message and waits for the broker acknowledgement.
func (t *KafkaTransport) Emit(ctx context.Context, event *openlineage.RunEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(t.keyFor(event)),
		Value: value,
	}

	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// keyFor returns the configured message key, or run:{job namespace}/{job name}.
func (t *KafkaTransport) keyFor(event *openlineage.RunEvent) string {
	if t.messageKey != "" {
		return t.messageKey
	}

	return "run:" + event.Job.Namespace + "/" + event.Job.Name
}

// Close flushes pending writes and closes the writer.
func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
