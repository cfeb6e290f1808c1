package collector

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/correlator-io/retail-lineage/internal/canonicalization"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

type (
	// EventStoreResult is the storage outcome of a single event.
	EventStoreResult struct {
		Event *openlineage.RunEvent

		// Stored is true when the event was new and recorded.
		Stored bool

		// Duplicate is true when an event with the same idempotency key was already recorded.
		// A duplicate is a success.
		Duplicate bool

		// Error is set when the event was rejected, e.g. by an invalid run state transition.
		Error error
	}

	// MemoryStore keeps ingested events in memory: idempotency keys, per-run state and
	// events, per-job summaries and the latest definition of every dataset seen as an
	// input or output.
	MemoryStore struct {
		mu       sync.RWMutex
		seen     map[string]struct{}
		runs     map[uuid.UUID]*RunSummary
		runOrder []uuid.UUID

		// runEvents holds each run's stored events in storage order.
		runEvents map[uuid.UUID][]*openlineage.RunEvent

		jobs     map[string]*JobSummary
		jobOrder []string
		datasets map[string]*DatasetSummary
		events   int
		resolver URNResolver
	}

	// URNResolver maps a reported dataset URN to the URN it is indexed under.
	// *aliasing.Resolver satisfies it.
	URNResolver interface {
		Resolve(urn string) string
	}

	// StoreOption configures a MemoryStore.
	StoreOption func(*MemoryStore)
)

// WithURNResolver indexes datasets under resolver's canonical URNs.
func WithURNResolver(resolver URNResolver) StoreOption {
	return func(s *MemoryStore) {
		s.resolver = resolver
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		seen:      make(map[string]struct{}),
		runs:      make(map[uuid.UUID]*RunSummary),
		runEvents: make(map[uuid.UUID][]*openlineage.RunEvent),
		jobs:      make(map[string]*JobSummary),
		datasets:  make(map[string]*DatasetSummary),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StoreEvents records events in order and returns one result per event.
//
// Each event succeeds or fails on its own. The returned error is non-nil only when
// ctx is done, in which case no further events are processed.
func (s *MemoryStore) StoreEvents(ctx context.Context, events []*openlineage.RunEvent) ([]*EventStoreResult, error) {
	results := make([]*EventStoreResult, 0, len(events))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results = append(results, s.storeEvent(event))
	}

	return results, nil
}

func (s *MemoryStore) storeEvent(event *openlineage.RunEvent) *EventStoreResult {
	result := &EventStoreResult{Event: event}

	key := event.IdempotencyKey()
	if _, ok := s.seen[key]; ok {
		result.Duplicate = true

		return result
	}

	run, exists := s.runs[event.Run.ID]
	if exists && run.State != "" {
		if err := openlineage.ValidateStateTransition(openlineage.EventType(run.State), event.EventType); err != nil {
			result.Error = err

			return result
		}
	}

	if !exists {
		run = &RunSummary{
			RunID:              event.Run.ID.String(),
			JobNamespace:       event.Job.Namespace,
			JobName:            event.Job.Name,
			FirstEventTime:     event.EventTime,
			LastEventTime:      event.EventTime,
			OpenLineageVersion: openlineage.ExtractOpenLineageVersion(event.SchemaURL),
		}
		s.runs[event.Run.ID] = run
		s.runOrder = append(s.runOrder, event.Run.ID)
	}

	// OTHER carries metadata without changing run state.
	if event.EventType != openlineage.EventTypeOther {
		run.State = string(event.EventType)
	}

	run.EventCount++

	if event.EventTime.Before(run.FirstEventTime) {
		run.FirstEventTime = event.EventTime
	}

	if event.EventTime.After(run.LastEventTime) {
		run.LastEventTime = event.EventTime
	}

	inputs := s.indexDatasets(event.EventTime, event.Inputs)
	outputs := s.indexDatasets(event.EventTime, event.Outputs)

	s.updateJob(event, run, !exists, inputs, outputs)

	s.runEvents[event.Run.ID] = append(s.runEvents[event.Run.ID], event)
	s.seen[key] = struct{}{}
	s.events++
	result.Stored = true

	return result
}

func (s *MemoryStore) updateJob(event *openlineage.RunEvent, run *RunSummary, newRun bool, inputs, outputs []string) {
	key := canonicalization.GenerateDatasetURN(event.Job.Namespace, event.Job.Name)

	job, ok := s.jobs[key]
	if !ok {
		job = &JobSummary{Namespace: event.Job.Namespace, Name: event.Job.Name}
		s.jobs[key] = job
		s.jobOrder = append(s.jobOrder, key)
	}

	if newRun {
		job.RunCount++
	}

	if event.EventTime.After(job.LastEventTime) {
		job.LastEventTime = event.EventTime
	}

	job.LatestRunID = run.RunID
	job.LatestState = run.State

	if len(inputs) > 0 || len(outputs) > 0 {
		job.Inputs = inputs
		job.Outputs = outputs
	}
}

// indexDatasets records the datasets of an event and returns the URNs they were
// indexed under, in event order.
func (s *MemoryStore) indexDatasets(seenAt time.Time, datasets []openlineage.Dataset) []string {
	if len(datasets) == 0 {
		return nil
	}

	urns := make([]string, 0, len(datasets))

	for i := range datasets {
		dataset := &datasets[i]

		reported := dataset.URN()
		urn := s.resolve(reported)

		summary := &DatasetSummary{
			URN:       urn,
			Namespace: dataset.Namespace,
			Name:      dataset.Name,
			Facets:    dataset.FacetKeys(),
			LastSeen:  seenAt,
		}

		if urn != reported {
			if namespace, name, err := canonicalization.ParseDatasetURN(urn); err == nil {
				summary.Namespace, summary.Name = namespace, name
			}
		}

		if schema, ok := dataset.Schema(); ok {
			summary.Fields = schema.FieldNames()
		}

		summary.ColumnLineage = fieldLineages(dataset)

		if ownership, ok := openlineage.FindFacet[openlineage.OwnershipFacet](dataset.Facets); ok {
			summary.Owners = slices.Clone(ownership.Owners)
		}

		if quality, ok := openlineage.FindFacet[openlineage.DataQualityAssertionsFacet](dataset.Facets); ok {
			summary.Assertions = slices.Clone(quality.Assertions)
		}

		urns = append(urns, urn)

		prev, exists := s.datasets[urn]
		if exists {
			summary.Aliases = prev.Aliases
		}

		if urn != reported && !slices.Contains(summary.Aliases, reported) {
			summary.Aliases = append(slices.Clone(summary.Aliases), reported)
		}

		// Keep a richer earlier definition when a later event only names the dataset.
		if exists && len(summary.Facets) == 0 {
			prev.LastSeen = seenAt
			prev.Aliases = summary.Aliases

			continue
		}

		s.datasets[urn] = summary
	}

	return urns
}

// resolve maps a reported URN through the resolver. A canonical URN that does not
// parse is discarded in favor of the reported one.
func (s *MemoryStore) resolve(reported string) string {
	if s.resolver == nil {
		return reported
	}

	resolved := s.resolver.Resolve(reported)
	if resolved == reported {
		return reported
	}

	normalized, err := canonicalization.NormalizeDatasetURN(resolved)
	if err != nil {
		return reported
	}

	return normalized
}

// fieldLineages flattens the column lineage facet: schema columns first, in schema
// order, then lineage-only columns sorted by name.
func fieldLineages(dataset *openlineage.Dataset) []FieldLineage {
	lineage, ok := dataset.ColumnLineage()
	if !ok || len(lineage.Fields) == 0 {
		return nil
	}

	var columns []string

	if schema, ok := dataset.Schema(); ok {
		columns = schema.FieldNames()
	}

	extra := make([]string, 0, len(lineage.Fields))

	for column := range lineage.Fields {
		if !slices.Contains(columns, column) {
			extra = append(extra, column)
		}
	}

	sort.Strings(extra)

	var out []FieldLineage

	for _, column := range append(columns, extra...) {
		field, ok := lineage.Column(column)
		if !ok {
			continue
		}

		for _, input := range field.InputFields {
			out = append(out, FieldLineage{
				OutputField:               column,
				InputNamespace:            input.Namespace,
				InputName:                 input.Name,
				InputField:                input.Field,
				TransformationType:        field.TransformationType,
				TransformationDescription: field.TransformationDescription,
			})
		}
	}

	return out
}

// Runs returns summaries of all runs in the order they were first seen.
func (s *MemoryStore) Runs() []RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunSummary, 0, len(s.runOrder))
	for _, id := range s.runOrder {
		runs = append(runs, *s.runs[id])
	}

	return runs
}

// Run returns the summary of one run.
func (s *MemoryStore) Run(id uuid.UUID) (RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return RunSummary{}, false
	}

	return *run, true
}

// Datasets returns every known dataset sorted by URN.
func (s *MemoryStore) Datasets() []DatasetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	datasets := make([]DatasetSummary, 0, len(s.datasets))
	for _, dataset := range s.datasets {
		datasets = append(datasets, dataset.clone())
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].URN < datasets[j].URN
	})

	return datasets
}

// RunEvents returns the stored events of one run in storage order.
func (s *MemoryStore) RunEvents(id uuid.UUID) ([]*openlineage.RunEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.runEvents[id]
	if !ok {
		return nil, false
	}

	return slices.Clone(events), true
}

// Jobs returns summaries of all jobs in the order they were first seen.
func (s *MemoryStore) Jobs() []JobSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobSummary, 0, len(s.jobOrder))
	for _, key := range s.jobOrder {
		job := *s.jobs[key]
		job.Inputs = slices.Clone(job.Inputs)
		job.Outputs = slices.Clone(job.Outputs)
		jobs = append(jobs, job)
	}

	return jobs
}

func (d *DatasetSummary) clone() DatasetSummary {
	clone := *d
	clone.Fields = slices.Clone(d.Fields)
	clone.Facets = slices.Clone(d.Facets)
	clone.Aliases = slices.Clone(d.Aliases)
	clone.ColumnLineage = slices.Clone(d.ColumnLineage)
	clone.Owners = slices.Clone(d.Owners)
	clone.Assertions = slices.Clone(d.Assertions)

	return clone
}

// EventCount returns the number of stored (non-duplicate) events.
func (s *MemoryStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.events
}
