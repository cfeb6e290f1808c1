// Package config provides configuration and shared test utilities for the retail-lineage application.
package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	kafkaImage     = "confluentinc/confluent-local:7.5.0"
	kafkaClusterID = "retail-lineage-test"
	startUpTimeOut = 120 * time.Second
)

// TestKafka encapsulates a throwaway Kafka broker for integration tests.
type TestKafka struct {
	Container *tckafka.KafkaContainer
	Brokers   []string
}

// SetupTestKafka starts a single-node Kafka container and returns its broker addresses.
//
// Usage:
//
//	func TestKafkaTransport(t *testing.T) {
//		if testing.Short() {
//			t.Skip("skipping integration test in short mode")
//		}
//		ctx := context.Background()
//		testKafka := config.SetupTestKafka(ctx, t)
//		// ... your test code
//	}
//
// The container is terminated through t.Cleanup.
func SetupTestKafka(ctx context.Context, t *testing.T) *TestKafka {
	t.Helper()

	startCtx, cancel := context.WithTimeout(ctx, startUpTimeOut)
	defer cancel()

	kafkaContainer, err := tckafka.Run(startCtx, kafkaImage, tckafka.WithClusterID(kafkaClusterID))
	require.NoError(t, err, "Failed to start kafka container")
	require.NotNil(t, kafkaContainer, "kafka container is nil")

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(kafkaContainer)
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "Failed to get kafka brokers")
	require.NotEmpty(t, brokers, "kafka container reported no brokers")

	return &TestKafka{
		Container: kafkaContainer,
		Brokers:   brokers,
	}
}
