package collector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
)

const expectedURLParts = 2

// setupRoutes registers all collector routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	s.registerPublicRoutes(
		mux,
		Route{"GET /ping", s.handlePing},
		Route{"GET /health", s.handleHealth},
		Route{"/", s.handleNotFound},
	)

	mux.HandleFunc("POST /api/v1/lineage", s.handleLineage)
	mux.HandleFunc("POST /api/v1/lineage/events", s.handleLineageEvents)
	mux.HandleFunc("GET /api/v1/lineage/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/lineage/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/lineage/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/lineage/datasets", s.handleListDatasets)
}

// registerPublicRoutes registers routes that bypass authentication.
// Only health endpoints belong here.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// "GET /ping" is matched against r.URL.Path, which has no method prefix.
		path := route.Path
		if parts := strings.Fields(path); len(parts) == expectedURLParts {
			path = parts[1]
		}

		s.publicEndpoints.Register(path)
	}
}

// handlePing responds to ping requests for basic liveness checks.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Collector-Version", s.config.Version)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("Failed to write ping response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handleHealth returns service status, uptime and store counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "healthy",
		ServiceName: "retail-lineage-collector",
		Version:     s.config.Version,
		Uptime:      uptime,
		Runs:        len(s.store.Runs()),
		Events:      s.store.EventCount(),
	}

	w.Header().Set("X-Collector-Version", s.config.Version)

	_ = s.writeJSON(w, r, http.StatusOK, health)
}

// handleListRuns returns every tracked run in first-seen order.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.store.Runs()

	_ = s.writeJSON(w, r, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

// handleGetRun returns one run with the events stored for it.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Run id must be a UUID"))

		return
	}

	run, ok := s.store.Run(id)
	if !ok {
		WriteErrorResponse(w, r, s.logger, NotFound(fmt.Sprintf("Run %s not found", id)))

		return
	}

	events, _ := s.store.RunEvents(id)

	_ = s.writeJSON(w, r, http.StatusOK, RunDetailResponse{Run: run, Events: events})
}

// handleListJobs returns every job in first-seen order.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.store.Jobs()

	_ = s.writeJSON(w, r, http.StatusOK, JobListResponse{Jobs: jobs, Total: len(jobs)})
}

// handleListDatasets returns every dataset seen as an input or output, sorted by URN.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets := s.store.Datasets()

	_ = s.writeJSON(w, r, http.StatusOK, DatasetListResponse{Datasets: datasets, Total: len(datasets)})
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// writeJSON marshals body before writing any header, so an encoding failure can
// still be reported as a 500 problem.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) error {
	correlationID := middleware.GetCorrelationID(r.Context())

	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// hasJSONContentType checks if Content-Type starts with "application/json",
// allowing parameters such as charset.
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}
