package openlineage

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for validation failures.
var (
	ErrNilEvent                = errors.New("event cannot be nil")
	ErrInvalidEventType        = errors.New("invalid eventType")
	ErrMissingEventTime        = errors.New("eventTime is required")
	ErrMissingProducer         = errors.New("producer is required")
	ErrMissingSchemaURL        = errors.New("schemaURL is required")
	ErrInvalidSchemaURL        = errors.New("schemaURL must be an OpenLineage spec URL")
	ErrMissingRunID            = errors.New("run.runId is required")
	ErrMissingJobNamespace     = errors.New("job.namespace is required")
	ErrMissingJobName          = errors.New("job.name is required")
	ErrNilDataset              = errors.New("dataset cannot be nil")
	ErrDatasetMissingNamespace = errors.New("dataset.namespace is required")
	ErrDatasetMissingName      = errors.New("dataset.name is required")
)

// openLineageSchemaURLPattern matches https://openlineage.io/spec/X-Y-Z/OpenLineage.json
// once any JSON Schema fragment has been stripped.
var openLineageSchemaURLPattern = regexp.MustCompile(`^https://openlineage\.io/spec/\d+-\d+-\d+/OpenLineage\.json$`)

// Validator performs semantic validation of OpenLineage RunEvents:
// required fields and business rules, not full JSON schema validation.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBaseEvent validates the fields every OpenLineage event kind must carry:
// eventType, eventTime, producer and schemaURL.
func (v *Validator) ValidateBaseEvent(event *RunEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	if !event.EventType.IsValid() {
		return fmt.Errorf(
			"%w: %s (valid: START, RUNNING, COMPLETE, FAIL, ABORT, OTHER)",
			ErrInvalidEventType, event.EventType,
		)
	}

	if event.EventTime.IsZero() {
		return ErrMissingEventTime
	}

	if event.Producer == "" {
		return ErrMissingProducer
	}

	if event.SchemaURL == "" {
		return ErrMissingSchemaURL
	}

	// All OpenLineage spec versions are accepted.
	if !IsValidOpenLineageSchemaURL(event.SchemaURL) {
		return fmt.Errorf("%w, got: %s", ErrInvalidSchemaURL, event.SchemaURL)
	}

	return nil
}

// ValidateRunEvent validates that a RunEvent contains all required OpenLineage fields.
//
// Required fields (per OpenLineage v2 spec):
//   - eventTime, eventType, producer, schemaURL (see ValidateBaseEvent)
//   - run.runId: Must not be the nil UUID
//   - job.namespace, job.name: Must not be empty
//   - every input and output dataset: namespace and name must not be empty
//
// Facets are not validated; unknown facets are allowed.
func (v *Validator) ValidateRunEvent(event *RunEvent) error {
	if err := v.ValidateBaseEvent(event); err != nil {
		return err
	}

	if event.Run.ID == uuid.Nil {
		return ErrMissingRunID
	}

	if event.Job.Namespace == "" {
		return ErrMissingJobNamespace
	}

	if event.Job.Name == "" {
		return ErrMissingJobName
	}

	for i := range event.Inputs {
		if err := v.ValidateDataset(&event.Inputs[i]); err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}

	for i := range event.Outputs {
		if err := v.ValidateDataset(&event.Outputs[i]); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateDataset validates that a Dataset has a namespace and a name.
// URN format is not checked here; canonicalization owns that.
func (v *Validator) ValidateDataset(dataset *Dataset) error {
	if dataset == nil {
		return ErrNilDataset
	}

	if dataset.Namespace == "" {
		return ErrDatasetMissingNamespace
	}

	if dataset.Name == "" {
		return ErrDatasetMissingName
	}

	return nil
}

// ExtractOpenLineageVersion extracts the version string from an OpenLineage schemaURL.
// Returns empty string if the URL is not a valid OpenLineage spec URL.
//
// Example:
//
//	ExtractOpenLineageVersion("https://openlineage.io/spec/2-0-2/OpenLineage.json#/$defs/RunEvent")
//	// Returns: "2.0.2"
func ExtractOpenLineageVersion(schemaURL string) string {
	if !IsValidOpenLineageSchemaURL(schemaURL) {
		return ""
	}

	remainder := strings.TrimPrefix(stripFragment(schemaURL), "https://openlineage.io/spec/")
	versionWithHyphens := strings.TrimSuffix(remainder, "/OpenLineage.json")

	return strings.ReplaceAll(versionWithHyphens, "-", ".")
}

// IsValidOpenLineageSchemaURL reports whether url is an OpenLineage spec URL.
// JSON Schema fragments such as #/$defs/RunEvent are allowed.
//
// Examples:
//
//	IsValidOpenLineageSchemaURL("https://openlineage.io/spec/2-0-2/OpenLineage.json")                    // true
//	IsValidOpenLineageSchemaURL("https://openlineage.io/spec/2-0-2/OpenLineage.json#/$defs/RunEvent")    // true
//	IsValidOpenLineageSchemaURL("https://example.com/schema.json")                                       // false
func IsValidOpenLineageSchemaURL(url string) bool {
	return openLineageSchemaURLPattern.MatchString(stripFragment(url))
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}

	return url
}
