package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ContentTypeProblemJSON is the RFC 7807 media type.
const ContentTypeProblemJSON = "application/problem+json"

// ProblemTypeBase prefixes the type URI of every problem response.
const ProblemTypeBase = "https://retail-lineage.dev/problems/"

// writeProblem writes an RFC 7807 response. It mirrors the collector's ProblemDetail
// without importing the collector package.
func writeProblem(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, detail string) {
	correlationID := GetCorrelationID(r.Context())

	problem := struct {
		Type          string `json:"type"`
		Title         string `json:"title"`
		Status        int    `json:"status"`
		Detail        string `json:"detail,omitempty"`
		Instance      string `json:"instance,omitempty"`
		CorrelationID string `json:"correlationId,omitempty"`
	}{
		Type:          fmt.Sprintf("%s%d", ProblemTypeBase, status),
		Title:         http.StatusText(status),
		Status:        status,
		Detail:        detail,
		Instance:      r.URL.Path,
		CorrelationID: correlationID,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		logger.Error("Failed to encode problem response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
}
