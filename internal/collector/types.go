package collector

import (
	"net/http"
	"time"

	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

type (
	// LineageResponse is the OpenLineage batch response.
	// Spec: https://openlineage.io/apidocs/openapi/#tag/OpenLineage/operation/postEventBatch
	//
	// Only failed events are listed. correlation_id and timestamp are collector extensions.
	LineageResponse struct {
		Status        string          `json:"status"` // "success", "partial_success" or "error"
		Summary       ResponseSummary `json:"summary"`
		FailedEvents  []FailedEvent   `json:"failed_events"`  //nolint: tagliatelle
		CorrelationID string          `json:"correlation_id"` //nolint: tagliatelle
		Timestamp     string          `json:"timestamp"`
	}

	// ResponseSummary provides aggregate counts for batch processing.
	ResponseSummary struct {
		Received     int `json:"received"`
		Successful   int `json:"successful"` // Stored + duplicates
		Failed       int `json:"failed"`
		Retriable    int `json:"retriable"`
		NonRetriable int `json:"non_retriable"` //nolint: tagliatelle
	}

	// FailedEvent describes a single failed event in the batch.
	FailedEvent struct {
		Index     int    `json:"index"` // Position in the request, 0-based
		Reason    string `json:"reason"`
		Retriable bool   `json:"retriable"`
	}

	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
		Runs        int    `json:"runs"`
		Events      int    `json:"events"`
	}

	// RunSummary is the collector's view of one run.
	RunSummary struct {
		RunID          string    `json:"run_id"`           //nolint:tagliatelle
		JobNamespace   string    `json:"job_namespace"`    //nolint:tagliatelle
		JobName        string    `json:"job_name"`         //nolint:tagliatelle
		State          string    `json:"state"`
		EventCount     int       `json:"event_count"`      //nolint:tagliatelle
		FirstEventTime time.Time `json:"first_event_time"` //nolint:tagliatelle
		LastEventTime  time.Time `json:"last_event_time"`  //nolint:tagliatelle

		// OpenLineageVersion is read from the schemaURL of the run's first event, e.g. "2.0.2".
		OpenLineageVersion string `json:"openlineage_version,omitempty"` //nolint:tagliatelle
	}

	// RunDetailResponse is the response for GET /api/v1/lineage/runs/{id}.
	// Events are listed in the order they were stored.
	RunDetailResponse struct {
		Run    RunSummary              `json:"run"`
		Events []*openlineage.RunEvent `json:"events"`
	}

	// JobSummary is the collector's view of one job across its runs.
	// LatestRunID is the run of the most recently stored event. Inputs and Outputs are
	// the dataset URNs of the most recently stored event that declared any.
	JobSummary struct {
		Namespace     string    `json:"namespace"`
		Name          string    `json:"name"`
		RunCount      int       `json:"run_count"`       //nolint:tagliatelle
		LatestRunID   string    `json:"latest_run_id"`   //nolint:tagliatelle
		LatestState   string    `json:"latest_state"`    //nolint:tagliatelle
		LastEventTime time.Time `json:"last_event_time"` //nolint:tagliatelle
		Inputs        []string  `json:"inputs,omitempty"`
		Outputs       []string  `json:"outputs,omitempty"`
	}

	// JobListResponse is the response for GET /api/v1/lineage/jobs.
	JobListResponse struct {
		Jobs  []JobSummary `json:"jobs"`
		Total int          `json:"total"`
	}

	// RunListResponse is the response for GET /api/v1/lineage/runs.
	RunListResponse struct {
		Runs  []RunSummary `json:"runs"`
		Total int          `json:"total"`
	}

	// DatasetSummary is the latest known definition of a dataset.
	DatasetSummary struct {
		URN       string    `json:"urn"`
		Namespace string    `json:"namespace"`
		Name      string    `json:"name"`
		Fields    []string  `json:"fields,omitempty"`
		Facets    []string  `json:"facets,omitempty"`
		Aliases   []string  `json:"aliases,omitempty"` // Reported URNs that resolved to URN
		LastSeen  time.Time `json:"last_seen"`         //nolint:tagliatelle

		// ColumnLineage has one entry per (output column, input column) pair, in schema order.
		ColumnLineage []FieldLineage          `json:"column_lineage,omitempty"` //nolint:tagliatelle
		Owners        []openlineage.Owner     `json:"owners,omitempty"`
		Assertions    []openlineage.Assertion `json:"assertions,omitempty"`
	}

	// FieldLineage links one output column to one upstream column it was derived from.
	FieldLineage struct {
		OutputField               string `json:"output_field"`                         //nolint:tagliatelle
		InputNamespace            string `json:"input_namespace"`                      //nolint:tagliatelle
		InputName                 string `json:"input_name"`                           //nolint:tagliatelle
		InputField                string `json:"input_field"`                          //nolint:tagliatelle
		TransformationType        string `json:"transformation_type,omitempty"`        //nolint:tagliatelle
		TransformationDescription string `json:"transformation_description,omitempty"` //nolint:tagliatelle
	}

	// DatasetListResponse is the response for GET /api/v1/lineage/datasets.
	DatasetListResponse struct {
		Datasets []DatasetSummary `json:"datasets"`
		Total    int              `json:"total"`
	}

	// Route represents an HTTP route with its pattern and handler.
	Route struct {
		Path    string
		Handler http.HandlerFunc
	}
)
