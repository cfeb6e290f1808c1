// Package canonicalization builds the canonical identifiers the collector indexes by:
// dataset URNs and event idempotency keys.
//
// URN Format: {namespace}/{name}
//
// Examples:
//   - "retail_staged/brands" (plain namespace, passes through)
//   - "postgresql://rds/retail.brands" (normalized from postgres://rds:5432)
//   - "s3://bucket//path/to/file.parquet" (normalized from s3a://, double slash correct)
//
// Always build URNs through GenerateDatasetURN so that lookups and stored keys agree.
//
// Spec: https://openlineage.io/docs/spec/naming#dataset-naming
package canonicalization

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for URN operations.
var (
	ErrURNMissingDelimiter    = errors.New("invalid URN format: missing '/' delimiter")
	ErrURNEmptyNamespace      = errors.New("invalid URN format: empty namespace")
	ErrURNEmptyName           = errors.New("invalid URN format: empty name")
	ErrURNEmptyNameAfterDelim = errors.New("invalid URN format: empty name after delimiter")
)

const protocolSuffixLen = len("://")

// GenerateDatasetURN constructs a canonical URN from namespace and name components.
// The namespace is normalized first (see NormalizeNamespace).
//
// Examples:
//   - GenerateDatasetURN("retail_model", "sales_facts") → "retail_model/sales_facts"
//   - GenerateDatasetURN("postgres://rds:5432", "retail.brands") → "postgresql://rds/retail.brands"
//   - GenerateDatasetURN("s3a://bucket", "/file.csv") → "s3://bucket//file.csv"
func GenerateDatasetURN(namespace, name string) string {
	return NormalizeNamespace(namespace) + "/" + name
}

// ParseDatasetURN parses a URN string into namespace and name components.
//
// For URNs with a "://" scheme the delimiter is the first "/" after the scheme;
// otherwise it is the first "/".
//
// Examples:
//   - "retail_source/brands" → ("retail_source", "brands")
//   - "s3://bucket//path/to/file" → ("s3://bucket", "/path/to/file")
func ParseDatasetURN(urn string) (string, string, error) {
	var delimiterIdx int

	if protocolIdx := strings.Index(urn, "://"); protocolIdx != -1 {
		searchStart := protocolIdx + protocolSuffixLen

		relativeIdx := strings.Index(urn[searchStart:], "/")
		if relativeIdx == -1 {
			return "", "", ErrURNMissingDelimiter
		}

		delimiterIdx = searchStart + relativeIdx
	} else {
		delimiterIdx = strings.Index(urn, "/")
		if delimiterIdx == -1 {
			return "", "", ErrURNMissingDelimiter
		}
	}

	namespace := urn[:delimiterIdx]
	name := urn[delimiterIdx+1:]

	if namespace == "" {
		return "", "", ErrURNEmptyNamespace
	}

	if name == "" {
		return "", "", ErrURNEmptyName
	}

	// "namespace//" leaves a lone slash; "s3://bucket//file.csv" leaves "/file.csv", which is fine.
	if name == "/" {
		return "", "", ErrURNEmptyNameAfterDelim
	}

	return namespace, name, nil
}

// NormalizeDatasetURN trims whitespace from a URN and checks that it parses.
func NormalizeDatasetURN(urn string) (string, error) {
	normalized := strings.TrimSpace(urn)

	if _, _, err := ParseDatasetURN(normalized); err != nil {
		return "", fmt.Errorf("invalid URN format: %w", err)
	}

	return normalized, nil
}
