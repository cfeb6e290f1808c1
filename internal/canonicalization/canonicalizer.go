package canonicalization

import (
	"crypto/sha256"
	"encoding/hex"
)

// GenerateIdempotencyKey generates a unique key for idempotent event processing.
//
// Formula: SHA256(producer + namespace + name + runID + eventTime + eventType)
//
// Parameters (IN ORDER):
//   - producer: Event producer URI
//   - namespace: Job namespace
//   - name: Job name
//   - runID: Run identifier
//   - eventTime: Event timestamp in RFC3339Nano format
//   - eventType: Event type (START, RUNNING, COMPLETE, FAIL, ABORT, OTHER)
//
// The same event sent twice yields the same key. RUNNING and COMPLETE sharing an
// eventTime still differ by eventType.
//
// Returns: 64-character lowercase hex string (SHA256 output).
func GenerateIdempotencyKey(producer, namespace, name, runID, eventTime, eventType string) string {
	hash := sha256.Sum256([]byte(producer + namespace + name + runID + eventTime + eventType))

	return hex.EncodeToString(hash[:])
}
