package canonicalization

import (
	"strings"
)

const twoNamespaceParts = 2

// defaultPorts are stripped from namespaces of the matching scheme.
var defaultPorts = map[string]string{
	"postgresql": ":5432",
	"mysql":      ":3306",
	"mongodb":    ":27017",
	"redis":      ":6379",
	"kafka":      ":9092",
}

// NormalizeNamespace normalizes namespace URIs so that the same data source written
// by different producers maps to one URN.
//
// Normalization rules:
//  1. Scheme standardization: postgres:// → postgresql://, s3a:// and s3n:// → s3://,
//     schemes are lowercased
//  2. Default port removal: postgresql://rds:5432 → postgresql://rds
//  3. Namespaces without "://" (retail_source, bigquery) pass through unchanged
//
// The URL is split by hand rather than through net/url so that user info and masked
// passwords are not re-encoded.
//
// Examples:
//   - NormalizeNamespace("postgres://dataops@rds:5432") → "postgresql://dataops@rds"
//   - NormalizeNamespace("s3a://bucket") → "s3://bucket"
//   - NormalizeNamespace("retail_staged") → "retail_staged"
func NormalizeNamespace(namespace string) string {
	if !strings.Contains(namespace, "://") {
		return namespace
	}

	parts := strings.SplitN(namespace, "://", twoNamespaceParts)
	if len(parts) != twoNamespaceParts {
		return namespace
	}

	scheme := normalizeScheme(parts[0])

	return scheme + "://" + removeDefaultPort(scheme, parts[1])
}

func normalizeScheme(scheme string) string {
	switch strings.ToLower(scheme) {
	case "postgres":
		return "postgresql"
	case "s3a", "s3n":
		return "s3"
	default:
		return strings.ToLower(scheme)
	}
}

// removeDefaultPort removes the scheme's default port from the authority.
//   - "rds:5432/retail" → "rds/retail"
//   - "rds:5433/retail" → "rds:5433/retail" (non-default, preserved)
//   - "dataops@rds:5432" → "dataops@rds"
func removeDefaultPort(scheme, remainder string) string {
	defaultPort, exists := defaultPorts[scheme]
	if !exists {
		return remainder
	}

	for _, terminator := range []string{"/", "?"} {
		if strings.Contains(remainder, defaultPort+terminator) {
			return strings.Replace(remainder, defaultPort+terminator, terminator, 1)
		}
	}

	return strings.TrimSuffix(remainder, defaultPort)
}
