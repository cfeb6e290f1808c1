package retail

import (
	"github.com/correlator-io/retail-lineage/internal/openlineage"
)

// Dataset namespaces of the three pipeline layers.
const (
	NamespaceSource = "retail_source"
	NamespaceStaged = "retail_staged"
	NamespaceModel  = "retail_model"
)

func field(name, typ, description string) openlineage.SchemaField {
	return openlineage.SchemaField{Name: name, Type: typ, Description: description}
}

func schema(fields ...openlineage.SchemaField) openlineage.SchemaFacet {
	return openlineage.SchemaFacet{Fields: fields}
}

// from is a direct, untransformed column dependency.
func from(namespace, name, column string) openlineage.ColumnLineageField {
	return openlineage.ColumnLineageField{
		InputFields: []openlineage.InputField{{Namespace: namespace, Name: name, Field: column}},
	}
}

func lineage(fields map[string]openlineage.ColumnLineageField) openlineage.ColumnLineageFacet {
	return openlineage.ColumnLineageFacet{Fields: fields}
}

func dataset(namespace, name string, facets ...openlineage.DatasetFacet) openlineage.Dataset {
	return openlineage.Dataset{Namespace: namespace, Name: name, Facets: facets}
}

// Source layer: the operational RDS tables.
var (
	sourceBrands = openlineage.Dataset{
		Namespace: NamespaceSource,
		Name:      "brands",
		Facets: []openlineage.DatasetFacet{
			schema(
				field("id", "bigint", "Brand identifier"),
				field("name", "varchar", "Name of brand"),
				field("country", "varchar", "country code"),
			),
			openlineage.DataSourceFacet{Name: "Retail RDS database", URI: "postgresql://dataops@rds/retail"},
		},
		InputFacets: []openlineage.InputDatasetFacet{
			openlineage.DataQualityMetricsFacet{
				RowCount: openlineage.Int64(1310),
				Bytes:    openlineage.Int64(28929201),
				ColumnMetrics: map[string]openlineage.ColumnMetric{
					"id": {DistinctCount: openlineage.Int64(1210)},
				},
			},
		},
	}

	sourceProducts = dataset(NamespaceSource, "products",
		schema(
			field("id", "bigint", "Product identifier"),
			field("name", "varchar", "Name of product"),
			field("price", "bigdecimal", "Price of product"),
			field("brand_id", "varchar", "Brand identifier"),
		),
	)

	sourceSales = dataset(NamespaceSource, "sales",
		schema(
			field("id", "bigint", "Sale identifier"),
			field("product_id", "bigint", "Product identifier"),
			field("store_id", "bigint", "Store identifier"),
			field("quantity", "integer", "Quantity of product sold"),
			field("amount", "bigdecimal", "Amount of sale"),
		),
	)

	sourceManagers = dataset(NamespaceSource, "managers",
		schema(
			field("id", "bigint", "Manager identifier"),
			field("name", "varchar", "Name of manager"),
		),
	)

	sourceStores = dataset(NamespaceSource, "stores",
		schema(
			field("id", "bigint", "Store identifier"),
			field("name", "varchar", "Store name"),
			field("manager_id", "bigint", "Store manager"),
		),
	)
)

// Staged layer: copies of the source tables in the lake.
var (
	stagedBrands = dataset(NamespaceStaged, "brands",
		schema(
			field("id", "bigint", "Brand identifier"),
			field("name", "varchar", "Name of brand"),
		),
		openlineage.StorageFacet{StorageLayer: "staged", FileFormat: "parquet"},
		openlineage.SymlinksFacet{Identifiers: []openlineage.SymlinkIdentifier{
			{Namespace: "retail", Name: "brands", Type: "table"},
		}},
		openlineage.OwnershipFacet{Owners: []openlineage.Owner{
			{Name: "chris@hyper.com", Type: "data analyst"},
		}},
		openlineage.DataQualityAssertionsFacet{Assertions: []openlineage.Assertion{
			{Assertion: "not_null", Column: "id", Success: true},
		}},
		lineage(map[string]openlineage.ColumnLineageField{
			"id":   from(NamespaceSource, "brands", "id"),
			"name": from(NamespaceSource, "brands", "name"),
		}),
	)

	stagedProducts = dataset(NamespaceStaged, "products",
		schema(
			field("id", "bigint", "Product identifier"),
			field("name", "varchar", "Name of product"),
			field("price", "bigdecimal", "Price of product"),
			field("brand_id", "varchar", "Brand identifier"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"id":       from(NamespaceSource, "products", "id"),
			"name":     from(NamespaceSource, "products", "name"),
			"price":    from(NamespaceSource, "products", "price"),
			"brand_id": from(NamespaceSource, "products", "brand_id"),
		}),
	)

	stagedManagers = dataset(NamespaceStaged, "managers",
		schema(
			field("id", "bigint", "Manager identifier"),
			field("name", "varchar", "Name of manager"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"id":   from(NamespaceSource, "managers", "id"),
			"name": from(NamespaceSource, "managers", "name"),
		}),
	)

	// manager_id carries no column lineage.
	stagedStores = dataset(NamespaceStaged, "stores",
		schema(
			field("id", "bigint", "Store identifier"),
			field("name", "varchar", "Store name"),
			field("manager_id", "bigint", "Store manager"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"id":   from(NamespaceSource, "stores", "id"),
			"name": from(NamespaceSource, "stores", "name"),
		}),
	)

	stagedSales = dataset(NamespaceStaged, "sales",
		schema(
			field("id", "bigint", "Sale identifier"),
			field("product_id", "bigint", "Product identifier"),
			field("store_id", "bigint", "Store identifier"),
			field("quantity", "integer", "Quantity of product sold"),
			field("amount", "bigdecimal", "Amount of sale"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"id":         from(NamespaceSource, "sales", "id"),
			"product_id": from(NamespaceSource, "sales", "product_id"),
			"store_id":   from(NamespaceSource, "sales", "store_id"),
			"quantity":   from(NamespaceSource, "sales", "quantity"),
			"amount":     from(NamespaceSource, "sales", "amount"),
		}),
	)
)

// Model layer: the star schema. Surrogate keys are generated, so they have no upstream column.
var (
	modelStoresDim = dataset(NamespaceModel, "stores_dim",
		schema(
			field("sk", "bigint", "Store dimension surrogate key"),
			field("store_id", "bigint", "Store identifier"),
			field("store_name", "varchar", "Store name"),
			field("manager_id", "bigint", "Store manager id"),
			field("manager_name", "bigint", "Store manager name"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"store_id":     from(NamespaceStaged, "stores", "id"),
			"store_name":   from(NamespaceStaged, "stores", "name"),
			"manager_id":   from(NamespaceStaged, "managers", "id"),
			"manager_name": from(NamespaceStaged, "managers", "name"),
		}),
	)

	modelProductsDim = dataset(NamespaceModel, "products_dim",
		schema(
			field("sk", "bigint", "Products dimension surrogate key"),
			field("product_id", "bigint", "Product identifier"),
			field("product_name", "varchar", "Product name"),
			field("brand_id", "bigint", "Brand id"),
			field("brand_name", "bigint", "Brand name"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"product_id":   from(NamespaceStaged, "products", "id"),
			"product_name": from(NamespaceStaged, "products", "name"),
			"brand_id":     from(NamespaceStaged, "brands", "id"),
			"brand_name":   from(NamespaceStaged, "brands", "name"),
		}),
	)

	// sale_time has no upstream column either.
	modelSalesFacts = dataset(NamespaceModel, "sales_facts",
		schema(
			field("sk", "bigint", "Surrogate key"),
			field("sale_id", "bigint", "Sales id"),
			field("quantity", "int", "Quantity sold"),
			field("amount", "bigdecimal", "Amount sold"),
			field("sale_time", "datetime", "Time when sale was made (UTC)"),
			field("store_sk", "bigint", "Store dimension of the store where the sale happened"),
			field("product_sk", "bigint", "Product dimension of the product sold"),
		),
		lineage(map[string]openlineage.ColumnLineageField{
			"sale_id":    from(NamespaceStaged, "sales", "id"),
			"quantity":   from(NamespaceStaged, "sales", "quantity"),
			"amount":     from(NamespaceStaged, "sales", "amount"),
			"product_sk": from(NamespaceModel, "products_dim", "sk"),
			"store_sk":   from(NamespaceModel, "stores_dim", "sk"),
		}),
	)
)

// Datasets returns a deep copy of every dataset of the pipeline, ordered by layer.
// Callers may modify the result freely; the package tables never change.
func Datasets() []openlineage.Dataset {
	return openlineage.CloneDatasets([]openlineage.Dataset{
		sourceManagers, sourceStores, sourceBrands, sourceProducts, sourceSales,
		stagedManagers, stagedStores, stagedBrands, stagedProducts, stagedSales,
		modelStoresDim, modelProductsDim, modelSalesFacts,
	})
}
