package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/correlator-io/retail-lineage/internal/collector/middleware"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

const (
	statusSuccess        = "success"
	statusPartialSuccess = "partial_success"
	statusError          = "error"
)

// batchEvent is one event of a request together with its position in the request.
type batchEvent struct {
	index int
	event *openlineage.RunEvent
}

// handleLineage handles POST /api/v1/lineage, the path OpenLineage clients post to.
// The body is a single event object or an array of events.
func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	s.ingest(w, r, true)
}

// handleLineageEvents handles POST /api/v1/lineage/events. The body must be an array.
func (s *Server) handleLineageEvents(w http.ResponseWriter, r *http.Request) {
	s.ingest(w, r, false)
}

// ingest runs the ingestion pipeline for one request.
//
// Request errors (RFC 7807):
//   - 415 Unsupported Media Type: Content-Type is not application/json
//   - 413 Payload Too Large: body exceeds MaxRequestSize
//   - 400 Bad Request: empty body, invalid JSON, or empty event array
//   - 422 Unprocessable Entity: a single-run batch has an invalid state sequence
//
// Otherwise the OpenLineage batch response is returned with 200 (all succeeded),
// 207 (some failed) or 422 (all failed).
func (s *Server) ingest(w http.ResponseWriter, r *http.Request, allowSingle bool) {
	startTime := time.Now()
	correlationID := middleware.GetCorrelationID(r.Context())

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	raw, problem := s.parseLineageRequest(w, r, allowSingle)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	events, eventErrors := s.decodeEvents(raw)

	if problem := validateSequence(events); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	for _, be := range events {
		if err := s.validator.ValidateRunEvent(be.event); err != nil {
			eventErrors[be.index] = err
		}
	}

	if err := s.storeValidEvents(r.Context(), events, eventErrors); err != nil {
		s.logger.Error("Failed to store events",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to store events"))

		return
	}

	response := s.buildLineageResponse(correlationID, eventErrors)
	statusCode := s.sendLineageResponse(w, r, response)

	s.logger.Info("Lineage events processed",
		slog.String("correlation_id", response.CorrelationID),
		slog.String("status", response.Status),
		slog.Int("received", response.Summary.Received),
		slog.Int("successful", response.Summary.Successful),
		slog.Int("failed", response.Summary.Failed),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", time.Since(startTime)),
	)
}

// parseLineageRequest reads the body and splits it into raw events.
func (s *Server) parseLineageRequest(
	w http.ResponseWriter,
	r *http.Request,
	allowSingle bool,
) ([]json.RawMessage, *ProblemDetail) {
	tooLarge := PayloadTooLarge(fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.config.MaxRequestSize))

	// Fail fast for known oversized requests.
	if r.ContentLength > s.config.MaxRequestSize {
		return nil, tooLarge
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, tooLarge
		}

		return nil, BadRequest("Failed to read request body")
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, BadRequest("Request body cannot be empty")
	}

	if body[0] == '{' {
		if !allowSingle {
			return nil, BadRequest("Request body must be an array of events")
		}

		if !json.Valid(body) {
			return nil, BadRequest("Invalid JSON")
		}

		return []json.RawMessage{body}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, BadRequest("Invalid JSON: " + err.Error())
	}

	if len(raw) == 0 {
		return nil, BadRequest("Event array cannot be empty")
	}

	return raw, nil
}

// decodeEvents decodes each raw event on its own so that one malformed event
// fails alone. The returned error slice is indexed like raw.
func (s *Server) decodeEvents(raw []json.RawMessage) ([]batchEvent, []error) {
	events := make([]batchEvent, 0, len(raw))
	eventErrors := make([]error, len(raw))

	for i, msg := range raw {
		event := &openlineage.RunEvent{}
		if err := json.Unmarshal(msg, event); err != nil {
			eventErrors[i] = err

			continue
		}

		events = append(events, batchEvent{index: i, event: event})
	}

	return events, eventErrors
}

// validateSequence checks run state transitions when every event of a batch belongs
// to one run. Multi-run batches are checked event by event by the store.
func validateSequence(events []batchEvent) *ProblemDetail {
	if len(events) < 2 || !isSingleRunBatch(events) {
		return nil
	}

	runEvents := make([]openlineage.RunEvent, len(events))
	for i, be := range events {
		runEvents[i] = *be.event
	}

	if _, _, err := openlineage.ValidateEventSequence(runEvents); err != nil {
		return UnprocessableEntity("Invalid event sequence: " + err.Error())
	}

	return nil
}

func isSingleRunBatch(events []batchEvent) bool {
	if len(events) == 0 {
		return false
	}

	firstRunID := events[0].event.Run.ID
	for _, be := range events[1:] {
		if be.event.Run.ID != firstRunID {
			return false
		}
	}

	return true
}

// storeValidEvents stores events without a decode or validation error, oldest first,
// and records per-event storage errors in eventErrors.
func (s *Server) storeValidEvents(ctx context.Context, events []batchEvent, eventErrors []error) error {
	valid := make([]batchEvent, 0, len(events))

	for _, be := range events {
		if eventErrors[be.index] == nil {
			valid = append(valid, be)
		}
	}

	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].event.EventTime.Before(valid[j].event.EventTime)
	})

	toStore := make([]*openlineage.RunEvent, len(valid))
	for i, be := range valid {
		toStore[i] = be.event
	}

	results, err := s.store.StoreEvents(ctx, toStore)
	if err != nil {
		return err
	}

	for i, result := range results {
		if result.Error != nil {
			eventErrors[valid[i].index] = result.Error
		}
	}

	return nil
}

// buildLineageResponse builds the batch response from per-event errors.
// Every failure is non-retriable: the same event would fail again.
func (s *Server) buildLineageResponse(correlationID string, eventErrors []error) *LineageResponse {
	failedEvents := make([]FailedEvent, 0)
	successful, failed := 0, 0

	for i, err := range eventErrors {
		if err == nil {
			successful++

			continue
		}

		failedEvents = append(failedEvents, FailedEvent{Index: i, Reason: err.Error()})
		failed++

		s.logger.Warn("Event rejected",
			slog.String("correlation_id", correlationID),
			slog.Int("event_index", i),
			slog.String("reason", err.Error()),
		)
	}

	status := statusSuccess
	if failed > 0 && successful == 0 {
		status = statusError
	}

	return &LineageResponse{
		Status: status,
		Summary: ResponseSummary{
			Received:     len(eventErrors),
			Successful:   successful,
			Failed:       failed,
			NonRetriable: failed,
		},
		FailedEvents:  failedEvents,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// determineStatusCode returns 200 when nothing failed, 207 on partial success
// (setting status to partial_success) and 422 when everything failed.
func determineStatusCode(response *LineageResponse) int {
	if response.Summary.Failed == 0 {
		return http.StatusOK
	} else if response.Summary.Successful > 0 {
		response.Status = statusPartialSuccess

		return http.StatusMultiStatus
	}

	return http.StatusUnprocessableEntity
}

// sendLineageResponse writes response and returns the status code used.
func (s *Server) sendLineageResponse(w http.ResponseWriter, r *http.Request, response *LineageResponse) int {
	statusCode := determineStatusCode(response)

	if err := s.writeJSON(w, r, statusCode, response); err != nil {
		return http.StatusInternalServerError
	}

	return statusCode
}
