package openlineage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProducer = "https://github.com/OpenLineage/OpenLineage/tree/0.0.1/client/python"

var testRunID = uuid.MustParse("6d3c5f0e-8c1b-4f2a-9e57-0a1b2c3d4e5f")

func stagedBrands() Dataset {
	return Dataset{
		Namespace: "retail_staged",
		Name:      "brands",
		Facets: []DatasetFacet{
			SchemaFacet{Fields: []SchemaField{
				{Name: "id", Type: "bigint", Description: "Brand identifier"},
				{Name: "name", Type: "varchar", Description: "Name of brand"},
			}},
			StorageFacet{StorageLayer: "staged", FileFormat: "parquet"},
			ColumnLineageFacet{Fields: map[string]ColumnLineageField{
				"id": {InputFields: []InputField{{Namespace: "retail_source", Name: "brands", Field: "id"}}},
			}},
		},
	}
}

func sourceBrands() Dataset {
	return Dataset{
		Namespace: "retail_source",
		Name:      "brands",
		Facets: []DatasetFacet{
			DataSourceFacet{Name: "Retail RDS database", URI: "postgresql://dataops@rds/retail"},
		},
		InputFacets: []InputDatasetFacet{
			DataQualityMetricsFacet{
				RowCount:      Int64(1310),
				Bytes:         Int64(28929201),
				ColumnMetrics: map[string]ColumnMetric{"id": {DistinctCount: Int64(1210)}},
			},
		},
	}
}

func decodeToMap(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

// ==============================================================================
// Unit Tests: Encoding
// ==============================================================================

func TestRunEvent_MarshalJSON_StartEventHasNoDatasets(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	startedAt := time.Date(2021, 11, 3, 10, 53, 52, 427_000_000, time.UTC)
	event := NewRunEvent(EventTypeStart, startedAt, testRunID, Job{Namespace: "retail", Name: "load_source"}, testProducer)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	out := decodeToMap(t, data)

	assert.Equal(t, "START", out["eventType"])
	assert.Equal(t, "2021-11-03T10:53:52.427Z", out["eventTime"])
	assert.Equal(t, testProducer, out["producer"])
	assert.Equal(t, RunEventSchemaURL, out["schemaURL"])
	assert.Equal(t, map[string]interface{}{"runId": testRunID.String()}, out["run"])
	assert.Equal(t, map[string]interface{}{"namespace": "retail", "name": "load_source"}, out["job"])
	assert.NotContains(t, out, "inputs")
	assert.NotContains(t, out, "outputs")
}

func TestRunEvent_MarshalJSON_FacetsCarryProducerAndSchemaURL(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	event := NewRunEvent(EventTypeComplete, time.Date(2021, 11, 3, 10, 53, 53, 427_000_000, time.UTC),
		testRunID, Job{Namespace: "retail", Name: "load_source"}, testProducer).
		WithDatasets([]Dataset{sourceBrands()}, []Dataset{stagedBrands()})

	data, err := json.Marshal(event)
	require.NoError(t, err)

	out := decodeToMap(t, data)

	outputs := out["outputs"].([]interface{})
	require.Len(t, outputs, 1)

	facets := outputs[0].(map[string]interface{})["facets"].(map[string]interface{})
	assert.ElementsMatch(t, []string{"schema", "storage", "columnLineage"}, keysOf(facets))

	schema := facets["schema"].(map[string]interface{})
	assert.Equal(t, testProducer, schema["_producer"])
	assert.Equal(t, SchemaFacet{}.FacetSchemaURL(), schema["_schemaURL"])
	assert.Len(t, schema["fields"], 2)

	lineage := facets["columnLineage"].(map[string]interface{})["fields"].(map[string]interface{})
	id := lineage["id"].(map[string]interface{})
	assert.Equal(t, "", id["transformationType"], "empty transformation type is still written")
	assert.Equal(t, "", id["transformationDescription"])

	inputs := out["inputs"].([]interface{})
	inputFacets := inputs[0].(map[string]interface{})["inputFacets"].(map[string]interface{})
	metrics := inputFacets["dataQualityMetrics"].(map[string]interface{})
	assert.Equal(t, float64(1310), metrics["rowCount"])
	assert.Equal(t, float64(28929201), metrics["bytes"])
	assert.Equal(t, map[string]interface{}{"distinctCount": float64(1210)},
		metrics["columnMetrics"].(map[string]interface{})["id"])
}

func TestRunEvent_MarshalJSON_HeaderPrecedesFacetFields(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	raw, err := encodeFacet(testProducer, StorageFacet{StorageLayer: "staged", FileFormat: "parquet"})
	require.NoError(t, err)

	want := `{"_producer":"` + testProducer + `","_schemaURL":"` + StorageFacet{}.FacetSchemaURL() +
		`","storageLayer":"staged","fileFormat":"parquet"}`
	assert.Equal(t, want, string(raw))
}

func TestRunEvent_MarshalJSON_ProducerFollowsEvent(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	dataset := stagedBrands()

	first, err := encodeFacet("https://example.com/a", dataset.Facets[0])
	require.NoError(t, err)

	second, err := encodeFacet("https://example.com/b", dataset.Facets[0])
	require.NoError(t, err)

	assert.Contains(t, string(first), `"_producer":"https://example.com/a"`)
	assert.Contains(t, string(second), `"_producer":"https://example.com/b"`)
}

func TestEncodeFacet_RawFacetIsVerbatim(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	payload := json.RawMessage(`{"_producer":"x","_schemaURL":"y","custom":1}`)

	raw, err := encodeFacet(testProducer, RawFacet{Key: "custom", Payload: payload})
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(raw))

	empty, err := encodeFacet(testProducer, RawFacet{Key: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestFormatEventTime(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	assert.Equal(t, "", formatEventTime(time.Time{}))
	assert.Equal(t, "2021-11-03T10:53:53.000Z", formatEventTime(time.Date(2021, 11, 3, 10, 53, 53, 0, time.UTC)))
	assert.Equal(t, "2025-10-21T10:05:00.123456Z", formatEventTime(time.Date(2025, 10, 21, 10, 5, 0, 123_456_000, time.UTC)))
}

// ==============================================================================
// Unit Tests: Decoding
// ==============================================================================

func TestRunEvent_UnmarshalJSON_SparkExample(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	data, err := os.ReadFile(filepath.Join("testdata", "spark_complete_event.json"))
	require.NoError(t, err)

	var event RunEvent
	require.NoError(t, json.Unmarshal(data, &event))

	assert.Equal(t, EventTypeComplete, event.EventType)
	assert.Equal(t, time.Date(2025, 10, 21, 10, 5, 0, 123_456_000, time.UTC), event.EventTime.UTC())
	assert.Equal(t, uuid.MustParse("0192f4a1-7b3c-7e21-9c4d-5a6b7c8d9e0f"), event.Run.ID)
	assert.Contains(t, event.Run.Facets, "spark_version")
	assert.Equal(t, "spark://cluster", event.Job.Namespace)

	require.Len(t, event.Inputs, 1)
	input := event.Inputs[0]
	assert.Equal(t, []string{"lifecycleStateChange", "schema"}, input.FacetKeys())

	_, isRaw := input.Facets[0].(RawFacet)
	assert.True(t, isRaw, "unknown facet keys decode to RawFacet")

	schema, ok := input.Schema()
	require.True(t, ok)
	assert.Equal(t, []string{"id", "amount"}, schema.FieldNames())

	metrics, ok := FindFacet[DataQualityMetricsFacet](input.InputFacets)
	require.True(t, ok)
	require.NotNil(t, metrics.RowCount)
	assert.Equal(t, int64(5000), *metrics.RowCount)
	assert.Nil(t, metrics.Bytes)
	require.NotNil(t, metrics.ColumnMetrics["id"].NullCount)
	assert.Equal(t, int64(0), *metrics.ColumnMetrics["id"].NullCount)

	require.Len(t, event.Outputs, 1)
	output := event.Outputs[0]

	storage, isRaw := output.Facets[0].(RawFacet)
	require.True(t, isRaw, "known key with the wrong shape decodes to RawFacet")
	assert.Equal(t, FacetStorage, storage.FacetKey())

	stats, ok := FindFacet[OutputStatisticsFacet](output.OutputFacets)
	require.True(t, ok)
	assert.Equal(t, int64(1048576), *stats.Size)
}

func TestRunEvent_EncodingIsStableAcrossRoundTrips(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	data, err := os.ReadFile(filepath.Join("testdata", "spark_complete_event.json"))
	require.NoError(t, err)

	var decoded RunEvent
	require.NoError(t, json.Unmarshal(data, &decoded))

	first, err := json.Marshal(decoded)
	require.NoError(t, err)

	var again RunEvent
	require.NoError(t, json.Unmarshal(first, &again))

	second, err := json.Marshal(again)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestRunEvent_UnmarshalJSON_Errors(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"malformed json", `{"eventType":`, ErrMalformedEvent},
		{"wrong field type", `{"eventType": 42}`, ErrMalformedEvent},
		{"run id not a uuid", `{"eventType":"START","run":{"runId":"airflow-run-1"}}`, ErrInvalidRunID},
		{"event time not rfc3339", `{"eventType":"START","eventTime":"yesterday"}`, ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event RunEvent

			err := event.UnmarshalJSON([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunEvent_UnmarshalJSON_EmptyRunIDIsNil(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	var event RunEvent
	require.NoError(t, json.Unmarshal([]byte(`{"eventType":"START","run":{"runId":""}}`), &event))

	assert.Equal(t, uuid.Nil, event.Run.ID)
	assert.ErrorIs(t, NewValidator().ValidateRunEvent(&event), ErrMissingEventTime)
}

func keysOf(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return keys
}

func TestFacetSchemaURLs_AreOpenLineageFacetURLs(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	facets := []facet{
		SchemaFacet{}, DataSourceFacet{}, StorageFacet{}, SymlinksFacet{}, OwnershipFacet{},
		DataQualityAssertionsFacet{}, ColumnLineageFacet{}, DataQualityMetricsFacet{}, OutputStatisticsFacet{},
	}

	seen := make(map[string]bool)

	for _, f := range facets {
		url := f.FacetSchemaURL()
		assert.True(t, strings.HasPrefix(url, facetSpecBase), url)
		assert.Contains(t, url, "#/$defs/")
		assert.False(t, seen[f.FacetKey()], "duplicate facet key %s", f.FacetKey())
		seen[f.FacetKey()] = true
	}
}
