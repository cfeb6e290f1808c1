package collector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/retail-lineage/internal/aliasing"
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

func TestMemoryStore_StoreEvents(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := NewMemoryStore()
	runID := uuid.New()

	start := runEvent(openlineage.EventTypeStart, 0, runID)
	other := runEvent(openlineage.EventTypeOther, time.Second, runID)
	complete := runEvent(openlineage.EventTypeComplete, 2*time.Second, runID)
	backwards := runEvent(openlineage.EventTypeStart, 3*time.Second, runID)

	results, err := store.StoreEvents(context.Background(),
		[]*openlineage.RunEvent{start, other, complete, start, backwards})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.True(t, results[0].Stored)
	assert.True(t, results[1].Stored, "OTHER is accepted in any state")
	assert.True(t, results[2].Stored)

	assert.True(t, results[3].Duplicate)
	assert.False(t, results[3].Stored)
	require.NoError(t, results[3].Error)

	require.ErrorIs(t, results[4].Error, openlineage.ErrTerminalStateImmutable)
	assert.False(t, results[4].Stored)
	assert.Same(t, backwards, results[4].Event)

	run, ok := store.Run(runID)
	require.True(t, ok)
	assert.Equal(t, "COMPLETE", run.State)
	assert.Equal(t, 3, run.EventCount)
	assert.Equal(t, 3, store.EventCount())
}

func TestMemoryStore_OtherDoesNotSetState(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := NewMemoryStore()
	runID := uuid.New()

	_, err := store.StoreEvents(context.Background(), []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeOther, 0, runID),
		runEvent(openlineage.EventTypeStart, time.Second, runID),
	})
	require.NoError(t, err)

	run, _ := store.Run(runID)
	assert.Equal(t, "START", run.State)
}

func TestMemoryStore_KeepsRicherDatasetDefinition(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := NewMemoryStore()

	withSchema := openlineage.Dataset{
		Namespace: "retail_staged",
		Name:      "stores",
		Facets: []openlineage.DatasetFacet{openlineage.SchemaFacet{
			Fields: []openlineage.SchemaField{{Name: "id", Type: "bigint"}},
		}},
	}
	bare := openlineage.Dataset{Namespace: "retail_staged", Name: "stores"}

	_, err := store.StoreEvents(context.Background(), []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeComplete, 0, uuid.New()).WithDatasets(nil, []openlineage.Dataset{withSchema}),
		runEvent(openlineage.EventTypeComplete, time.Minute, uuid.New()).WithDatasets([]openlineage.Dataset{bare}, nil),
	})
	require.NoError(t, err)

	datasets := store.Datasets()
	require.Len(t, datasets, 1)
	assert.Equal(t, []string{"id"}, datasets[0].Fields)
	assert.Equal(t, baseTime.Add(time.Minute), datasets[0].LastSeen)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().StoreEvents(ctx, []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeStart, 0, uuid.New()),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_UnknownRun(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, ok := NewMemoryStore().Run(uuid.New())
	assert.False(t, ok)
}

func TestMemoryStore_ResolvesDatasetAliases(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := aliasing.NewResolver(&aliasing.Config{DatasetPatterns: []aliasing.DatasetPattern{
		{Pattern: "postgresql://lake/retail.{name}", Canonical: "retail_staged/{name}"},
	}})
	store := NewMemoryStore(WithURNResolver(resolver))

	staged := openlineage.Dataset{
		Namespace: "retail_staged",
		Name:      "brands",
		Facets: []openlineage.DatasetFacet{openlineage.SchemaFacet{
			Fields: []openlineage.SchemaField{{Name: "id", Type: "bigint"}},
		}},
	}
	// postgres:// with the default port normalizes to postgresql://lake.
	fromOtherTool := openlineage.Dataset{Namespace: "postgres://lake:5432", Name: "retail.brands"}

	_, err := store.StoreEvents(context.Background(), []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeComplete, 0, uuid.New()).WithDatasets(nil, []openlineage.Dataset{staged}),
		runEvent(openlineage.EventTypeComplete, time.Minute, uuid.New()).WithDatasets([]openlineage.Dataset{fromOtherTool}, nil),
	})
	require.NoError(t, err)

	datasets := store.Datasets()
	require.Len(t, datasets, 1)
	assert.Equal(t, "retail_staged/brands", datasets[0].URN)
	assert.Equal(t, []string{"id"}, datasets[0].Fields)
	assert.Equal(t, []string{"postgresql://lake/retail.brands"}, datasets[0].Aliases)
}

type staticResolver map[string]string

func (r staticResolver) Resolve(urn string) string {
	if resolved, ok := r[urn]; ok {
		return resolved
	}

	return urn
}

func TestMemoryStore_NormalizesResolvedURNs(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := NewMemoryStore(WithURNResolver(staticResolver{
		"lake/brands":  "  retail_staged/brands ",
		"lake/missing": "no-delimiter",
	}))

	_, err := store.StoreEvents(context.Background(), []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeComplete, 0, uuid.New()).WithDatasets([]openlineage.Dataset{
			{Namespace: "lake", Name: "brands"},
			{Namespace: "lake", Name: "missing"},
		}, nil),
	})
	require.NoError(t, err)

	datasets := store.Datasets()
	require.Len(t, datasets, 2)

	assert.Equal(t, "lake/missing", datasets[0].URN, "an unparseable canonical URN is ignored")
	assert.Empty(t, datasets[0].Aliases)

	assert.Equal(t, "retail_staged/brands", datasets[1].URN)
	assert.Equal(t, "retail_staged", datasets[1].Namespace)
	assert.Equal(t, "brands", datasets[1].Name)
	assert.Equal(t, []string{"lake/brands"}, datasets[1].Aliases)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := NewMemoryStore()
	runID := uuid.New()

	_, err := store.StoreEvents(context.Background(), []*openlineage.RunEvent{
		runEvent(openlineage.EventTypeComplete, 0, runID).WithDatasets(nil, []openlineage.Dataset{{
			Namespace: "retail_staged",
			Name:      "brands",
			Facets: []openlineage.DatasetFacet{openlineage.SchemaFacet{
				Fields: []openlineage.SchemaField{{Name: "id"}},
			}},
		}}),
	})
	require.NoError(t, err)

	store.Datasets()[0].Fields[0] = "changed"
	assert.Equal(t, []string{"id"}, store.Datasets()[0].Fields)

	store.Jobs()[0].Outputs[0] = "changed"
	assert.Equal(t, []string{"retail_staged/brands"}, store.Jobs()[0].Outputs)

	events, ok := store.RunEvents(runID)
	require.True(t, ok)
	events[0] = nil

	events, _ = store.RunEvents(runID)
	assert.NotNil(t, events[0])
}
