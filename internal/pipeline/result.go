package pipeline

import (
	"time"

	"github.com/scouter-app/scouter/internal/extract"
	"github.com/scouter-app/scouter/internal/structure"
	"github.com/scouter-app/scouter/internal/upload"
)

// Metadata aggregates timing and every intermediate result of a run for
// auditability.
type Metadata struct {
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	FailedAt       *time.Time         `json:"failed_at,omitempty"`
	ProcessingTime float64            `json:"processing_time,omitempty"` // seconds
	Upload         *upload.Result     `json:"upload_info,omitempty"`
	Extraction     *extract.Result    `json:"document_info,omitempty"`
	Enhancement    *structure.Result  `json:"enhancement_info,omitempty"`
	Validation     *ValidationResult  `json:"validation_info,omitempty"`
	Steps          []Step             `json:"steps"`
}

// Result is the final outcome of one pipeline run. Exactly one of Receipt
// (on success) or Error (on failure) is populated.
type Result struct {
	ProcessingID string                 `json:"processing_id"`
	Success      bool                   `json:"success"`
	Receipt      *structure.ReceiptData `json:"receipt_data,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Metadata     Metadata               `json:"processing_metadata"`
}
