package collector

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

func TestPing(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/ping")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, "test", rec.Header().Get("X-Collector-Version"))
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderCorrelationID))
}

func TestHealth(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, nil, nil)
	post(t, server.Handler(), "/api/v1/lineage", marshalEvent(t, runEvent(openlineage.EventTypeStart, 0, uuid.New())))

	rec := get(t, server.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "retail-lineage-collector", health.ServiceName)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, 1, health.Runs)
	assert.Equal(t, 1, health.Events)
}

func TestNotFound(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, nil, nil)

	rec := get(t, server.Handler(), "/api/v1/unknown")
	require.Equal(t, http.StatusNotFound, rec.Code)

	problem := decodeProblem(t, rec)
	assert.Equal(t, "https://retail-lineage.dev/problems/404", problem.Type)
	assert.Equal(t, "Not Found", problem.Title)
	assert.Equal(t, "/api/v1/unknown", problem.Instance)
}

func TestListRuns(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, nil, nil)
	first, second := uuid.New(), uuid.New()

	post(t, server.Handler(), "/api/v1/lineage", marshalEvents(t,
		runEvent(openlineage.EventTypeStart, 0, first),
		runEvent(openlineage.EventTypeStart, time.Second, second),
		runEvent(openlineage.EventTypeComplete, 2*time.Second, first),
	))

	rec := get(t, server.Handler(), "/api/v1/lineage/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs RunListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))

	require.Equal(t, 2, runs.Total)
	assert.Equal(t, first.String(), runs.Runs[0].RunID)
	assert.Equal(t, "COMPLETE", runs.Runs[0].State)
	assert.Equal(t, 2, runs.Runs[0].EventCount)
	assert.Equal(t, "retail", runs.Runs[0].JobNamespace)
	assert.Equal(t, "load_source", runs.Runs[0].JobName)
	assert.Equal(t, second.String(), runs.Runs[1].RunID)
	assert.Equal(t, "START", runs.Runs[1].State)
}

func TestListDatasets(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(t, nil, nil)

	event := runEvent(openlineage.EventTypeComplete, 0, uuid.New()).WithDatasets(
		[]openlineage.Dataset{{Namespace: "retail_source", Name: "brands"}},
		[]openlineage.Dataset{{
			Namespace: "retail_staged",
			Name:      "brands",
			Facets: []openlineage.DatasetFacet{openlineage.SchemaFacet{Fields: []openlineage.SchemaField{
				{Name: "id", Type: "bigint"},
				{Name: "name", Type: "varchar"},
			}}},
		}},
	)

	rec := post(t, server.Handler(), "/api/v1/lineage", marshalEvent(t, event))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = get(t, server.Handler(), "/api/v1/lineage/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	var datasets DatasetListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &datasets))

	require.Equal(t, 2, datasets.Total)
	assert.Equal(t, "retail_source/brands", datasets.Datasets[0].URN)
	assert.Empty(t, datasets.Datasets[0].Fields)
	assert.Equal(t, "retail_staged/brands", datasets.Datasets[1].URN)
	assert.Equal(t, []string{"id", "name"}, datasets.Datasets[1].Fields)
	assert.Equal(t, []string{"schema"}, datasets.Datasets[1].Facets)
}

// ==============================================================================
// Unit Tests: Authentication
// ==============================================================================

func TestServer_Authentication(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	keys, err := middleware.NewHashedKeyStore([]string{"etl:collector-test-key"})
	require.NoError(t, err)

	server := newTestServer(t, nil, keys)
	body := marshalEvent(t, runEvent(openlineage.EventTypeStart, 0, uuid.New()))

	t.Run("public endpoints need no key", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, server.Handler(), "/ping").Code)
		assert.Equal(t, http.StatusOK, get(t, server.Handler(), "/health").Code)
	})

	t.Run("ingestion requires a key", func(t *testing.T) {
		rec := post(t, server.Handler(), "/api/v1/lineage", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "https://retail-lineage.dev/problems/401", decodeProblem(t, rec).Type)
	})

	t.Run("runs listing requires a key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(t, server.Handler(), "/api/v1/lineage/runs").Code)
	})

	t.Run("bearer key is accepted", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, "/api/v1/lineage", body)
		req.Header.Set("Authorization", "Bearer etl:collector-test-key")

		rec := serve(server, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}
