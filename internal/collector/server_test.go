package collector

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/retail-lineage/internal/client"
	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
	"github.com/correlator-io/retail-lineage/internal/retail"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	limiter := middleware.NewInMemoryRateLimiter(&middleware.Config{GlobalRPS: 100, ClientRPS: 50, UnAuthRPS: 50})
	server := newServer(testServerConfig(), NewMemoryStore(), nil, limiter, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- server.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/ping"

	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url) //nolint:noctx
	assert.Error(t, err)
}

func TestServer_StartRejectsInvalidConfig(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cfg := testServerConfig()
	cfg.Port = 0

	err := newServer(cfg, NewMemoryStore(), nil, nil, slog.New(slog.DiscardHandler)).Start(context.Background())
	require.ErrorIs(t, err, ErrInvalidPort)
}

// ==============================================================================
// End-to-end: retail pipeline -> HTTP transport -> collector
// ==============================================================================

func TestRetailPipelineThroughCollector(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	keys, err := middleware.NewHashedKeyStore([]string{"etl:retail-demo-key"})
	require.NoError(t, err)

	server := newTestServer(t, nil, keys)

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	pipeline := retail.NewPipeline(func() (retail.EmitCloser, error) {
		transport := client.NewHTTPTransport(client.TransportConfig{
			Type:     client.TransportHTTP,
			URL:      httpServer.URL,
			Endpoint: "api/v1/lineage",
			Timeout:  5,
			Auth:     client.AuthConfig{Type: "api_key", APIKey: "etl:retail-demo-key"},
		})

		return client.New(transport), nil
	})
	pipeline.Logger = slog.New(slog.DiscardHandler)

	require.NoError(t, pipeline.Run(context.Background()))

	store := server.Store()
	assert.Equal(t, 9, store.EventCount())

	runs := store.Runs()
	require.Len(t, runs, 3)

	for i, job := range retail.Jobs() {
		assert.Equal(t, retail.JobNamespace, runs[i].JobNamespace)
		assert.Equal(t, job.Name, runs[i].JobName)
		assert.Equal(t, "COMPLETE", runs[i].State)
		assert.Equal(t, 3, runs[i].EventCount)
		assert.Equal(t, retail.StartTime, runs[i].FirstEventTime)
		assert.Equal(t, retail.CompleteTime, runs[i].LastEventTime)
	}

	expected := make(map[string]openlineage.Dataset)
	for _, d := range retail.Datasets() {
		expected[d.URN()] = d
	}

	datasets := store.Datasets()
	require.Len(t, datasets, len(expected))

	for _, dataset := range datasets {
		want, ok := expected[dataset.URN]
		require.True(t, ok, dataset.URN)

		schema, hasSchema := want.Schema()
		if hasSchema {
			assert.Equal(t, schema.FieldNames(), dataset.Fields, dataset.URN)
		}

		// Facets arrive keyed by name, so their order is not preserved.
		assert.ElementsMatch(t, want.FacetKeys(), dataset.Facets, dataset.URN)
	}

	// A second run of the same job gets a new run id.
	runID, err := pipeline.RunNamed(context.Background(), retail.JobBuildFacts)
	require.NoError(t, err)

	run, ok := store.Run(runID)
	require.True(t, ok)
	assert.Equal(t, "COMPLETE", run.State)
	assert.Len(t, store.Runs(), 4)
}
