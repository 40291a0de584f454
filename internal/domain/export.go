package domain

import "time"

// Export statuses.
const (
	ExportCompleted = "COMPLETED"
	ExportFailed    = "FAILED"
)

// DataExport records one patient-initiated export of their medical records.
// The archive itself lives in object storage under ObjectKey.
type DataExport struct {
	ExportID  string    `json:"id" dynamodbav:"export_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	ObjectKey string    `json:"object_key" dynamodbav:"object_key"`
	Status    string    `json:"status" dynamodbav:"status"`
	SizeBytes int64     `json:"size_bytes" dynamodbav:"size_bytes"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
