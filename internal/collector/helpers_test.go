package collector

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

const testProducer = "https://github.com/correlator-io/retail-lineage/test"

var baseTime = time.Date(2021, 11, 3, 10, 53, 52, 427000000, time.UTC)

func testServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            5000,
		Host:            "localhost",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        slog.LevelInfo,
		MaxRequestSize:  1 << 20,
		Version:         "test",
	}
}

func newTestServer(t *testing.T, cfg *ServerConfig, keyStore middleware.KeyStore) *Server {
	t.Helper()

	if cfg == nil {
		cfg = testServerConfig()
	}

	return newServer(cfg, NewMemoryStore(), keyStore, nil, slog.New(slog.DiscardHandler))
}

func runEvent(eventType openlineage.EventType, offset time.Duration, runID uuid.UUID) *openlineage.RunEvent {
	return openlineage.NewRunEvent(
		eventType,
		baseTime.Add(offset),
		runID,
		openlineage.Job{Namespace: "retail", Name: "load_source"},
		testProducer,
	)
}

func marshalEvents(t *testing.T, events ...*openlineage.RunEvent) string {
	t.Helper()

	data, err := json.Marshal(events)
	require.NoError(t, err)

	return string(data)
}

func marshalEvent(t *testing.T, event *openlineage.RunEvent) string {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	return string(data)
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func decodeLineageResponse(t *testing.T, rec *httptest.ResponseRecorder) LineageResponse {
	t.Helper()

	var response LineageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response), rec.Body.String())

	return response
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()

	require.Equal(t, middleware.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), rec.Body.String())

	return problem
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}
