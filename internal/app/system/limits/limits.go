// internal/app/system/limits/limits.go
package limits

// Payload size limits for stored records.
// These limits help prevent memory exhaustion from oversized documents.
const (
	// MaxRecordSize is the maximum size for a single stored record payload.
	// Record payloads are held in memory end to end, so this bounds both
	// request handling and backend writes.
	MaxRecordSize = 1 << 20 // 1 MB
)
