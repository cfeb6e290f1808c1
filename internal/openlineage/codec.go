package openlineage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for decoding failures.
var (
	ErrMalformedEvent = errors.New("malformed OpenLineage event")
	ErrInvalidRunID   = errors.New("run.runId must be a UUID")
	ErrInvalidTime    = errors.New("eventTime must be an RFC3339 timestamp")
)

const eventTimeMillisLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	wireRunEvent struct {
		EventType EventType     `json:"eventType"`
		EventTime string        `json:"eventTime"`
		Run       wireRun       `json:"run"`
		Job       wireJob       `json:"job"`
		Inputs    []wireDataset `json:"inputs,omitempty"`
		Outputs   []wireDataset `json:"outputs,omitempty"`
		Producer  string        `json:"producer"`
		SchemaURL string        `json:"schemaURL"`
	}

	wireRun struct {
		RunID  string                     `json:"runId"`
		Facets map[string]json.RawMessage `json:"facets,omitempty"`
	}

	wireJob struct {
		Namespace string                     `json:"namespace"`
		Name      string                     `json:"name"`
		Facets    map[string]json.RawMessage `json:"facets,omitempty"`
	}

	wireDataset struct {
		Namespace    string                     `json:"namespace"`
		Name         string                     `json:"name"`
		Facets       map[string]json.RawMessage `json:"facets,omitempty"`
		InputFacets  map[string]json.RawMessage `json:"inputFacets,omitempty"`
		OutputFacets map[string]json.RawMessage `json:"outputFacets,omitempty"`
	}

	facetHeader struct {
		Producer  string `json:"_producer"`
		SchemaURL string `json:"_schemaURL"`
	}
)

// MarshalJSON writes the event in OpenLineage wire format.
// Every facet is prefixed with _producer (the event producer) and _schemaURL.
func (e RunEvent) MarshalJSON() ([]byte, error) {
	inputs, err := encodeDatasets(e.Producer, e.Inputs)
	if err != nil {
		return nil, err
	}

	outputs, err := encodeDatasets(e.Producer, e.Outputs)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireRunEvent{
		EventType: e.EventType,
		EventTime: formatEventTime(e.EventTime),
		Run:       wireRun{RunID: e.Run.ID.String(), Facets: e.Run.Facets},
		Job:       wireJob{Namespace: e.Job.Namespace, Name: e.Job.Name, Facets: e.Job.Facets},
		Inputs:    inputs,
		Outputs:   outputs,
		Producer:  e.Producer,
		SchemaURL: e.SchemaURL,
	})
}

// UnmarshalJSON reads an event in OpenLineage wire format.
// Facets with unknown keys, or with known keys but an unexpected shape, are kept as RawFacet.
// An empty runId decodes to uuid.Nil and is left for the Validator to reject.
func (e *RunEvent) UnmarshalJSON(data []byte) error {
	var wire wireRunEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	var eventTime time.Time

	if wire.EventTime != "" {
		parsed, err := time.Parse(time.RFC3339Nano, wire.EventTime)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTime, wire.EventTime)
		}

		eventTime = parsed
	}

	var runID uuid.UUID

	if wire.Run.RunID != "" {
		parsed, err := uuid.Parse(wire.Run.RunID)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRunID, wire.Run.RunID)
		}

		runID = parsed
	}

	*e = RunEvent{
		EventTime: eventTime,
		EventType: wire.EventType,
		Producer:  wire.Producer,
		SchemaURL: wire.SchemaURL,
		Run:       Run{ID: runID, Facets: wire.Run.Facets},
		Job:       Job{Namespace: wire.Job.Namespace, Name: wire.Job.Name, Facets: wire.Job.Facets},
		Inputs:    decodeDatasets(wire.Inputs),
		Outputs:   decodeDatasets(wire.Outputs),
	}

	return nil
}

func formatEventTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	if t.Nanosecond()%int(time.Millisecond) == 0 {
		return t.Format(eventTimeMillisLayout)
	}

	return t.Format(time.RFC3339Nano)
}

func encodeDatasets(producer string, datasets []Dataset) ([]wireDataset, error) {
	if len(datasets) == 0 {
		return nil, nil
	}

	encoded := make([]wireDataset, 0, len(datasets))

	for _, dataset := range datasets {
		facets, err := encodeFacets(producer, dataset.Facets)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset.URN(), err)
		}

		inputFacets, err := encodeFacets(producer, dataset.InputFacets)
		if err != nil {
			return nil, fmt.Errorf("dataset %s input facets: %w", dataset.URN(), err)
		}

		outputFacets, err := encodeFacets(producer, dataset.OutputFacets)
		if err != nil {
			return nil, fmt.Errorf("dataset %s output facets: %w", dataset.URN(), err)
		}

		encoded = append(encoded, wireDataset{
			Namespace:    dataset.Namespace,
			Name:         dataset.Name,
			Facets:       facets,
			InputFacets:  inputFacets,
			OutputFacets: outputFacets,
		})
	}

	return encoded, nil
}

func encodeFacets[F facet](producer string, facets []F) (map[string]json.RawMessage, error) {
	if len(facets) == 0 {
		return nil, nil
	}

	encoded := make(map[string]json.RawMessage, len(facets))

	for _, f := range facets {
		raw, err := encodeFacet(producer, f)
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", f.FacetKey(), err)
		}

		encoded[f.FacetKey()] = raw
	}

	return encoded, nil
}

// encodeFacet splices the _producer/_schemaURL header in front of the facet's own fields.
func encodeFacet(producer string, f facet) (json.RawMessage, error) {
	if raw, ok := f.(RawFacet); ok {
		if len(raw.Payload) == 0 {
			return json.RawMessage("{}"), nil
		}

		return raw.Payload, nil
	}

	header, err := json.Marshal(facetHeader{Producer: producer, SchemaURL: f.FacetSchemaURL()})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	if bytes.Equal(body, []byte("{}")) {
		return header, nil
	}

	spliced := make([]byte, 0, len(header)+len(body))
	spliced = append(spliced, header[:len(header)-1]...)
	spliced = append(spliced, ',')
	spliced = append(spliced, body[1:]...)

	return spliced, nil
}

func decodeDatasets(wire []wireDataset) []Dataset {
	if len(wire) == 0 {
		return nil
	}

	datasets := make([]Dataset, 0, len(wire))

	for _, w := range wire {
		dataset := Dataset{Namespace: w.Namespace, Name: w.Name}

		for _, key := range sortedKeys(w.Facets) {
			dataset.Facets = append(dataset.Facets, decodeDatasetFacet(key, w.Facets[key]))
		}

		for _, key := range sortedKeys(w.InputFacets) {
			dataset.InputFacets = append(dataset.InputFacets, decodeInputFacet(key, w.InputFacets[key]))
		}

		for _, key := range sortedKeys(w.OutputFacets) {
			dataset.OutputFacets = append(dataset.OutputFacets, decodeOutputFacet(key, w.OutputFacets[key]))
		}

		datasets = append(datasets, dataset)
	}

	return datasets
}

func decodeDatasetFacet(key string, raw json.RawMessage) DatasetFacet {
	switch key {
	case FacetSchema:
		return decodeAs[DatasetFacet, SchemaFacet](key, raw)
	case FacetDataSource:
		return decodeAs[DatasetFacet, DataSourceFacet](key, raw)
	case FacetStorage:
		return decodeAs[DatasetFacet, StorageFacet](key, raw)
	case FacetSymlinks:
		return decodeAs[DatasetFacet, SymlinksFacet](key, raw)
	case FacetOwnership:
		return decodeAs[DatasetFacet, OwnershipFacet](key, raw)
	case FacetDataQualityAssertions:
		return decodeAs[DatasetFacet, DataQualityAssertionsFacet](key, raw)
	case FacetColumnLineage:
		return decodeAs[DatasetFacet, ColumnLineageFacet](key, raw)
	default:
		return RawFacet{Key: key, Payload: raw}
	}
}

func decodeInputFacet(key string, raw json.RawMessage) InputDatasetFacet {
	if key == FacetDataQualityMetrics {
		return decodeAs[InputDatasetFacet, DataQualityMetricsFacet](key, raw)
	}

	return RawFacet{Key: key, Payload: raw}
}

func decodeOutputFacet(key string, raw json.RawMessage) OutputDatasetFacet {
	if key == FacetOutputStatistics {
		return decodeAs[OutputDatasetFacet, OutputStatisticsFacet](key, raw)
	}

	return RawFacet{Key: key, Payload: raw}
}

// decodeAs decodes raw into T, falling back to a RawFacet when the payload has the wrong shape.
func decodeAs[R facet, T facet](key string, raw json.RawMessage) R {
	var typed T
	if err := json.Unmarshal(raw, &typed); err != nil {
		return any(RawFacet{Key: key, Payload: raw}).(R)
	}

	return any(typed).(R)
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
