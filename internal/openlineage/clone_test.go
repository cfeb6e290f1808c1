package openlineage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func richDataset() Dataset {
	return Dataset{
		Namespace: "retail_staged",
		Name:      "brands",
		Facets: []DatasetFacet{
			SchemaFacet{Fields: []SchemaField{{Name: "id", Type: "bigint"}}},
			SymlinksFacet{Identifiers: []SymlinkIdentifier{{Namespace: "retail", Name: "brands", Type: "table"}}},
			OwnershipFacet{Owners: []Owner{{Name: "chris@hyper.com", Type: "data analyst"}}},
			DataQualityAssertionsFacet{Assertions: []Assertion{{Assertion: "not_null", Success: true, Column: "id"}}},
			ColumnLineageFacet{Fields: map[string]ColumnLineageField{
				"id": {InputFields: []InputField{{Namespace: "retail_source", Name: "brands", Field: "id"}}},
			}},
			RawFacet{Key: "custom", Payload: json.RawMessage(`{"a":1}`)},
		},
		InputFacets: []InputDatasetFacet{
			DataQualityMetricsFacet{
				RowCount:      Int64(1310),
				ColumnMetrics: map[string]ColumnMetric{"id": {DistinctCount: Int64(1210)}},
			},
		},
		OutputFacets: []OutputDatasetFacet{OutputStatisticsFacet{RowCount: Int64(10)}},
	}
}

func TestDataset_CloneIsDeep(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	original := richDataset()
	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Facets[0].(SchemaFacet).Fields[0].Name = "renamed"
	clone.Facets[1].(SymlinksFacet).Identifiers[0].Name = "renamed"
	clone.Facets[2].(OwnershipFacet).Owners[0].Name = "renamed"
	clone.Facets[3].(DataQualityAssertionsFacet).Assertions[0].Success = false
	clone.Facets[4].(ColumnLineageFacet).Fields["id"].InputFields[0].Field = "renamed"
	clone.Facets[5].(RawFacet).Payload[0] = '['
	*clone.InputFacets[0].(DataQualityMetricsFacet).RowCount = 0
	*clone.InputFacets[0].(DataQualityMetricsFacet).ColumnMetrics["id"].DistinctCount = 0
	*clone.OutputFacets[0].(OutputStatisticsFacet).RowCount = 0
	clone.Facets[0] = SchemaFacet{}

	assert.Equal(t, richDataset(), original)
}

func TestCloneDatasets(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	assert.Nil(t, CloneDatasets(nil))

	originals := []Dataset{richDataset(), {Namespace: "retail_model", Name: "sales_facts"}}
	clones := CloneDatasets(originals)
	require.Equal(t, originals, clones)

	clones[1].Name = "renamed"
	assert.Equal(t, "sales_facts", originals[1].Name)
}
