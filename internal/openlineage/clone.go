package openlineage

import (
	"bytes"
	"maps"
	"slices"
)

// Clone returns a deep copy of the dataset. Facet values, their slices, maps and metric
// pointers are all copied, so writes to the clone never reach d.
func (d *Dataset) Clone() Dataset {
	clone := Dataset{Namespace: d.Namespace, Name: d.Name}

	if d.Facets != nil {
		clone.Facets = make([]DatasetFacet, 0, len(d.Facets))
		for _, f := range d.Facets {
			clone.Facets = append(clone.Facets, cloneDatasetFacet(f))
		}
	}

	if d.InputFacets != nil {
		clone.InputFacets = make([]InputDatasetFacet, 0, len(d.InputFacets))
		for _, f := range d.InputFacets {
			clone.InputFacets = append(clone.InputFacets, cloneInputFacet(f))
		}
	}

	if d.OutputFacets != nil {
		clone.OutputFacets = make([]OutputDatasetFacet, 0, len(d.OutputFacets))
		for _, f := range d.OutputFacets {
			clone.OutputFacets = append(clone.OutputFacets, cloneOutputFacet(f))
		}
	}

	return clone
}

// CloneDatasets deep-copies every dataset of datasets.
func CloneDatasets(datasets []Dataset) []Dataset {
	if datasets == nil {
		return nil
	}

	clones := make([]Dataset, 0, len(datasets))
	for i := range datasets {
		clones = append(clones, datasets[i].Clone())
	}

	return clones
}

func cloneDatasetFacet(f DatasetFacet) DatasetFacet {
	switch v := f.(type) {
	case SchemaFacet:
		v.Fields = slices.Clone(v.Fields)

		return v
	case SymlinksFacet:
		v.Identifiers = slices.Clone(v.Identifiers)

		return v
	case OwnershipFacet:
		v.Owners = slices.Clone(v.Owners)

		return v
	case DataQualityAssertionsFacet:
		v.Assertions = slices.Clone(v.Assertions)

		return v
	case ColumnLineageFacet:
		if v.Fields != nil {
			fields := make(map[string]ColumnLineageField, len(v.Fields))
			for column, field := range v.Fields {
				field.InputFields = slices.Clone(field.InputFields)
				fields[column] = field
			}

			v.Fields = fields
		}

		return v
	case RawFacet:
		v.Payload = bytes.Clone(v.Payload)

		return v
	default:
		// DataSourceFacet and StorageFacet hold only strings.
		return f
	}
}

func cloneInputFacet(f InputDatasetFacet) InputDatasetFacet {
	switch v := f.(type) {
	case DataQualityMetricsFacet:
		v.RowCount = clonePtr(v.RowCount)
		v.Bytes = clonePtr(v.Bytes)

		if v.ColumnMetrics != nil {
			metrics := make(map[string]ColumnMetric, len(v.ColumnMetrics))
			for column, m := range v.ColumnMetrics {
				metrics[column] = ColumnMetric{
					NullCount:     clonePtr(m.NullCount),
					DistinctCount: clonePtr(m.DistinctCount),
					Sum:           clonePtr(m.Sum),
					Count:         clonePtr(m.Count),
					Min:           clonePtr(m.Min),
					Max:           clonePtr(m.Max),
					Quantiles:     maps.Clone(m.Quantiles),
				}
			}

			v.ColumnMetrics = metrics
		}

		return v
	case RawFacet:
		v.Payload = bytes.Clone(v.Payload)

		return v
	default:
		return f
	}
}

func cloneOutputFacet(f OutputDatasetFacet) OutputDatasetFacet {
	switch v := f.(type) {
	case OutputStatisticsFacet:
		v.RowCount = clonePtr(v.RowCount)
		v.Size = clonePtr(v.Size)

		return v
	case RawFacet:
		v.Payload = bytes.Clone(v.Payload)

		return v
	default:
		return f
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
