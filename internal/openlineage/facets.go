package openlineage

import "encoding/json"

// Facet keys as they appear in the OpenLineage facet maps.
// Spec: https://openlineage.io/docs/spec/facets/dataset-facets
const (
	FacetSchema                = "schema"
	FacetDataSource            = "dataSource"
	FacetStorage               = "storage"
	FacetSymlinks              = "symlinks"
	FacetOwnership             = "ownership"
	FacetDataQualityAssertions = "dataQualityAssertions"
	FacetColumnLineage         = "columnLineage"
	FacetDataQualityMetrics    = "dataQualityMetrics"
	FacetOutputStatistics      = "outputStatistics"
)

const facetSpecBase = "https://openlineage.io/spec/facets/"

type (
	// DatasetFacet is metadata attached to a dataset regardless of its role in a run.
	// The set of implementations is closed: the known facet kinds below plus RawFacet,
	// which the decoder uses to carry facets it does not recognize.
	DatasetFacet interface {
		facet
		datasetFacet()
	}

	// InputDatasetFacet is metadata only meaningful when the dataset is a run input.
	InputDatasetFacet interface {
		facet
		inputDatasetFacet()
	}

	// OutputDatasetFacet is metadata only meaningful when the dataset is a run output.
	OutputDatasetFacet interface {
		facet
		outputDatasetFacet()
	}

	facet interface {
		// FacetKey is the key under which the facet is written in its facet map.
		FacetKey() string
		// FacetSchemaURL is written as the facet's _schemaURL.
		FacetSchemaURL() string
	}
)

type (
	// SchemaFacet describes the ordered columns of a dataset.
	SchemaFacet struct {
		Fields []SchemaField `json:"fields"`
	}

	// SchemaField is a single column of a SchemaFacet.
	SchemaField struct {
		Name        string `json:"name"`
		Type        string `json:"type,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// DataSourceFacet names the system a dataset lives in.
	DataSourceFacet struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}

	// StorageFacet records the storage layer and file format of a dataset.
	StorageFacet struct {
		StorageLayer string `json:"storageLayer"`
		FileFormat   string `json:"fileFormat"`
	}

	// SymlinksFacet lists alternative identifiers of the same dataset.
	SymlinksFacet struct {
		Identifiers []SymlinkIdentifier `json:"identifiers"`
	}

	// SymlinkIdentifier is one alternative name of a dataset.
	SymlinkIdentifier struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
		Type      string `json:"type"`
	}

	// OwnershipFacet lists the owners of a dataset.
	OwnershipFacet struct {
		Owners []Owner `json:"owners"`
	}

	// Owner is a single dataset owner. Type is free text, e.g. "data analyst".
	Owner struct {
		Name string `json:"name"`
		Type string `json:"type,omitempty"`
	}

	// DataQualityAssertionsFacet records the outcome of data quality checks.
	DataQualityAssertionsFacet struct {
		Assertions []Assertion `json:"assertions"`
	}

	// Assertion is a single data quality check. Column is empty for table-level checks.
	Assertion struct {
		Assertion string `json:"assertion"`
		Success   bool   `json:"success"`
		Column    string `json:"column,omitempty"`
	}

	// ColumnLineageFacet maps each output column to the upstream columns it was derived from.
	ColumnLineageFacet struct {
		Fields map[string]ColumnLineageField `json:"fields"`
	}

	// ColumnLineageField is the lineage of a single output column.
	// The transformation fields are always written, even when empty.
	ColumnLineageField struct {
		InputFields               []InputField `json:"inputFields"`
		TransformationDescription string       `json:"transformationDescription"`
		TransformationType        string       `json:"transformationType"`
	}

	// InputField references a column of an upstream dataset.
	InputField struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
		Field     string `json:"field"`
	}

	// DataQualityMetricsFacet carries profiling metrics of an input dataset.
	DataQualityMetricsFacet struct {
		RowCount      *int64                  `json:"rowCount,omitempty"`
		Bytes         *int64                  `json:"bytes,omitempty"`
		ColumnMetrics map[string]ColumnMetric `json:"columnMetrics"`
	}

	// ColumnMetric holds per-column profiling metrics. Unset metrics are omitted.
	ColumnMetric struct {
		NullCount     *int64             `json:"nullCount,omitempty"`
		DistinctCount *int64             `json:"distinctCount,omitempty"`
		Sum           *float64           `json:"sum,omitempty"`
		Count         *float64           `json:"count,omitempty"`
		Min           *float64           `json:"min,omitempty"`
		Max           *float64           `json:"max,omitempty"`
		Quantiles     map[string]float64 `json:"quantiles,omitempty"`
	}

	// OutputStatisticsFacet carries the size of an output dataset written by a run.
	OutputStatisticsFacet struct {
		RowCount *int64 `json:"rowCount,omitempty"`
		Size     *int64 `json:"size,omitempty"`
	}

	// RawFacet preserves a facet whose key is not one of the known kinds.
	// Payload is the complete JSON object as received, including _producer and _schemaURL.
	RawFacet struct {
		Key     string
		Payload json.RawMessage
	}
)

// FacetKey implements DatasetFacet.
func (SchemaFacet) FacetKey() string { return FacetSchema }

// FacetSchemaURL implements DatasetFacet.
func (SchemaFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-1-1/SchemaDatasetFacet.json#/$defs/SchemaDatasetFacet"
}

func (SchemaFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (DataSourceFacet) FacetKey() string { return FacetDataSource }

// FacetSchemaURL implements DatasetFacet.
func (DataSourceFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-1/DatasourceDatasetFacet.json#/$defs/DatasourceDatasetFacet"
}

func (DataSourceFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (StorageFacet) FacetKey() string { return FacetStorage }

// FacetSchemaURL implements DatasetFacet.
func (StorageFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-1/StorageDatasetFacet.json#/$defs/StorageDatasetFacet"
}

func (StorageFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (SymlinksFacet) FacetKey() string { return FacetSymlinks }

// FacetSchemaURL implements DatasetFacet.
func (SymlinksFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-1/SymlinksDatasetFacet.json#/$defs/SymlinksDatasetFacet"
}

func (SymlinksFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (OwnershipFacet) FacetKey() string { return FacetOwnership }

// FacetSchemaURL implements DatasetFacet.
func (OwnershipFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-1/OwnershipDatasetFacet.json#/$defs/OwnershipDatasetFacet"
}

func (OwnershipFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (DataQualityAssertionsFacet) FacetKey() string { return FacetDataQualityAssertions }

// FacetSchemaURL implements DatasetFacet.
func (DataQualityAssertionsFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-1/DataQualityAssertionsDatasetFacet.json#/$defs/DataQualityAssertionsDatasetFacet"
}

func (DataQualityAssertionsFacet) datasetFacet() {}

// FacetKey implements DatasetFacet.
func (ColumnLineageFacet) FacetKey() string { return FacetColumnLineage }

// FacetSchemaURL implements DatasetFacet.
func (ColumnLineageFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-2-0/ColumnLineageDatasetFacet.json#/$defs/ColumnLineageDatasetFacet"
}

func (ColumnLineageFacet) datasetFacet() {}

// FacetKey implements InputDatasetFacet.
func (DataQualityMetricsFacet) FacetKey() string { return FacetDataQualityMetrics }

// FacetSchemaURL implements InputDatasetFacet.
func (DataQualityMetricsFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-2/DataQualityMetricsInputDatasetFacet.json#/$defs/DataQualityMetricsInputDatasetFacet"
}

func (DataQualityMetricsFacet) inputDatasetFacet() {}

// FacetKey implements OutputDatasetFacet.
func (OutputStatisticsFacet) FacetKey() string { return FacetOutputStatistics }

// FacetSchemaURL implements OutputDatasetFacet.
func (OutputStatisticsFacet) FacetSchemaURL() string {
	return facetSpecBase + "1-0-2/OutputStatisticsOutputDatasetFacet.json#/$defs/OutputStatisticsOutputDatasetFacet"
}

func (OutputStatisticsFacet) outputDatasetFacet() {}

// FacetKey returns the key the facet was received under.
func (f RawFacet) FacetKey() string { return f.Key }

// FacetSchemaURL is unknown for raw facets; the payload carries its own.
func (RawFacet) FacetSchemaURL() string { return "" }

func (RawFacet) datasetFacet()       {}
func (RawFacet) inputDatasetFacet()  {}
func (RawFacet) outputDatasetFacet() {}

// Column returns the lineage recorded for an output column.
func (f ColumnLineageFacet) Column(name string) (ColumnLineageField, bool) {
	field, ok := f.Fields[name]

	return field, ok
}

// FieldNames returns the column names in schema order.
func (f SchemaFacet) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		names = append(names, field.Name)
	}

	return names
}

// FindFacet returns the first facet of type T in facets.
//
// Example:
//
//	schema, ok := FindFacet[SchemaFacet](dataset.Facets)
func FindFacet[T facet, F facet](facets []F) (T, bool) {
	for _, f := range facets {
		if typed, ok := any(f).(T); ok {
			return typed, true
		}
	}

	var zero T

	return zero, false
}

// Int64 returns a pointer to v, for the optional numeric fields of metric facets.
func Int64(v int64) *int64 {
	return &v
}
