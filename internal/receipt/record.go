package receipt

import (
	"time"

	"github.com/scouter-app/scouter/internal/structure"
)

// Status is the review lifecycle state of a stored receipt record. It
// advances as the processing pipeline completes stages and ends in a
// review state chosen by the structuring confidence.
type Status string

const (
	// StatusUploaded means the image was received and processing started.
	StatusUploaded Status = "uploaded"
	// StatusOCRDone means document extraction completed.
	StatusOCRDone Status = "ocr_done"
	// StatusAIDone means AI structuring completed.
	StatusAIDone Status = "ai_done"
	// StatusAILowConfidence means processing finished but the structuring
	// confidence was too low to trust without manual re-entry.
	StatusAILowConfidence Status = "ai_low_confidence"
	// StatusAwaitingReview means processing finished with high confidence
	// and the record is ready for user confirmation.
	StatusAwaitingReview Status = "awaiting_user_review"
	// StatusVerified means a user confirmed the extracted data.
	StatusVerified Status = "verified"
)

// reviewThreshold is the structuring confidence (0-100) at or above which
// a record goes straight to user review instead of low-confidence triage.
const reviewThreshold = 80.0

// Record is a stored receipt: the uploaded image's location, the structured
// data the pipeline produced, and its review state. Records are scoped to
// the organization that uploaded them.
type Record struct {
	ID           string                 `json:"id"`
	OrgID        string                 `json:"org_id"`
	ProcessingID string                 `json:"processing_id,omitempty"`
	Status       Status                 `json:"status"`
	Filename     string                 `json:"filename"`
	ContentType  string                 `json:"content_type"`
	StorageURL   string                 `json:"storage_url,omitempty"`
	StorageKey   string                 `json:"storage_key,omitempty"`
	Receipt      *structure.ReceiptData `json:"receipt_data,omitempty"`
	Confidence   float64                `json:"confidence"`
	Score        int                    `json:"validation_score"`
	Issues       []string               `json:"validation_issues,omitempty"`
	Error        string                 `json:"error,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	VerifiedAt   *time.Time             `json:"verified_at,omitempty"`
}
