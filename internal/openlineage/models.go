// Package openlineage provides the OpenLineage event model used by both the lineage
// client and the development collector.
// Spec: https://openlineage.io/docs/spec/object-model
package openlineage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/correlator-io/retail-lineage/internal/canonicalization"
)

// RunEventSchemaURL is the schemaURL written on every RunEvent built by NewRunEvent.
const RunEventSchemaURL = "https://openlineage.io/spec/2-0-2/OpenLineage.json#/$defs/RunEvent"

type (
	// RunEvent represents an OpenLineage RunEvent (runtime lineage).
	// RunEvents describe the execution of a job and are emitted at runtime when jobs
	// start, run, or complete. Each RunEvent can include details about the Job, the Run,
	// and the input and output Datasets involved in the run.
	//
	// Spec: https://openlineage.io/docs/spec/object-model#job-run-state-update
	RunEvent struct {
		// EventTime is when the state change happened, not when it was sent.
		EventTime time.Time

		// EventType is the run state: START, RUNNING, COMPLETE, FAIL, ABORT, or OTHER.
		EventType EventType

		// Producer identifies the tool that generated this event.
		// It is also written as the _producer of every facet in the event.
		Producer string

		// SchemaURL is the OpenLineage spec version URL.
		SchemaURL string

		Run Run
		Job Job

		// Inputs are datasets consumed by this run (optional).
		Inputs []Dataset

		// Outputs are datasets produced by this run (optional).
		Outputs []Dataset
	}

	// EventType represents OpenLineage run states.
	// Spec: https://openlineage.io/docs/spec/run-cycle#run-states
	EventType string

	// Run represents a single execution instance of a Job.
	// The client is responsible for keeping the same ID across the run's state updates.
	Run struct {
		ID uuid.UUID

		// Facets are run facets kept as raw JSON keyed by facet name.
		Facets map[string]json.RawMessage
	}

	// Job is a recurring unit of work identified by (Namespace, Name).
	Job struct {
		Namespace string
		Name      string

		// Facets are job facets kept as raw JSON keyed by facet name.
		Facets map[string]json.RawMessage
	}

	// Dataset is a table, file, or topic identified by (Namespace, Name).
	//
	// Facets are stored as ordered slices of closed facet types. Each facet's map key is
	// derived from its type, so a dataset can never carry a facet under the wrong key.
	Dataset struct {
		Namespace string
		Name      string

		Facets []DatasetFacet

		// InputFacets are only meaningful when the dataset is a run input.
		InputFacets []InputDatasetFacet

		// OutputFacets are only meaningful when the dataset is a run output.
		OutputFacets []OutputDatasetFacet
	}
)

const (
	// EventTypeStart indicates the beginning of a job execution.
	EventTypeStart EventType = "START"

	// EventTypeRunning provides additional information about a running job.
	EventTypeRunning EventType = "RUNNING"

	// EventTypeComplete signifies that execution of the job has concluded successfully.
	EventTypeComplete EventType = "COMPLETE"

	// EventTypeFail signifies that the job has failed.
	EventTypeFail EventType = "FAIL"

	// EventTypeAbort signifies that the job has been stopped abnormally.
	EventTypeAbort EventType = "ABORT"

	// EventTypeOther carries metadata outside the standard run cycle.
	EventTypeOther EventType = "OTHER"
)

// ValidEventTypes returns all valid OpenLineage event types.
func ValidEventTypes() []EventType {
	return []EventType{
		EventTypeStart,
		EventTypeRunning,
		EventTypeComplete,
		EventTypeFail,
		EventTypeAbort,
		EventTypeOther,
	}
}

// IsValid checks if the EventType is a valid OpenLineage run state.
func (et EventType) IsValid() bool {
	for _, valid := range ValidEventTypes() {
		if et == valid {
			return true
		}
	}

	return false
}

// IsTerminal returns true for COMPLETE, FAIL and ABORT.
func (et EventType) IsTerminal() bool {
	return et == EventTypeComplete || et == EventTypeFail || et == EventTypeAbort
}

// NewRunEvent builds a RunEvent with the default RunEvent schema URL and no datasets.
//
// Example:
//
//	event := NewRunEvent(EventTypeStart, startedAt, runID, Job{Namespace: "retail", Name: "load_source"}, producer)
func NewRunEvent(eventType EventType, eventTime time.Time, runID uuid.UUID, job Job, producer string) *RunEvent {
	return &RunEvent{
		EventTime: eventTime,
		EventType: eventType,
		Producer:  producer,
		SchemaURL: RunEventSchemaURL,
		Run:       Run{ID: runID},
		Job:       job,
	}
}

// WithDatasets returns a shallow copy of the event carrying the given inputs and outputs.
// The receiver is left untouched.
func (e *RunEvent) WithDatasets(inputs, outputs []Dataset) *RunEvent {
	clone := *e
	clone.Inputs = inputs
	clone.Outputs = outputs

	return &clone
}

// IdempotencyKey returns the idempotency key for this event.
//
// Formula: SHA256(producer + job.namespace + job.name + run.runId + eventTime + eventType)
//
// Returns: 64-character lowercase hex string (SHA256 output).
func (e *RunEvent) IdempotencyKey() string {
	return canonicalization.GenerateIdempotencyKey(
		e.Producer,
		e.Job.Namespace,
		e.Job.Name,
		e.Run.ID.String(),
		e.EventTime.Format(time.RFC3339Nano),
		string(e.EventType),
	)
}

// URN returns the canonical URN for this dataset.
//
// Example:
//
//	dataset := Dataset{Namespace: "retail_staged", Name: "brands"}
//	dataset.URN()  // "retail_staged/brands"
func (d *Dataset) URN() string {
	return canonicalization.GenerateDatasetURN(d.Namespace, d.Name)
}

// Schema returns the dataset's schema facet, if any.
func (d *Dataset) Schema() (SchemaFacet, bool) {
	return FindFacet[SchemaFacet](d.Facets)
}

// ColumnLineage returns the dataset's column lineage facet, if any.
func (d *Dataset) ColumnLineage() (ColumnLineageFacet, bool) {
	return FindFacet[ColumnLineageFacet](d.Facets)
}

// FacetKeys returns the keys of the dataset's general facets in declaration order.
func (d *Dataset) FacetKeys() []string {
	keys := make([]string, 0, len(d.Facets))
	for _, f := range d.Facets {
		keys = append(keys, f.FacetKey())
	}

	return keys
}
