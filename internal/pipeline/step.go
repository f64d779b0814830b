package pipeline

import "time"

// StageID identifies one of the four fixed pipeline stages.
type StageID string

const (
	StageUpload       StageID = "upload"
	StageDocumentAI   StageID = "document_ai"
	StageAIProcessing StageID = "ai_processing"
	StageValidation   StageID = "validation"
)

// Status is the lifecycle state of a stage. A stage only ever moves
// pending -> processing -> completed|error, never backward.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Step tracks one stage's progress through a single pipeline run.
type Step struct {
	ID          StageID    `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"` // 0-100
	Message     string     `json:"message"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// newSteps builds a fresh step set for one pipeline run. Every run owns its
// own set; nothing is shared between concurrent invocations.
func newSteps() []*Step {
	return []*Step{
		{
			ID:      StageUpload,
			Name:    "Upload to Storage",
			Status:  StatusPending,
			Message: "Preparing to upload image...",
		},
		{
			ID:      StageDocumentAI,
			Name:    "Document Extraction",
			Status:  StatusPending,
			Message: "Waiting for upload to complete...",
		},
		{
			ID:      StageAIProcessing,
			Name:    "AI Enhancement",
			Status:  StatusPending,
			Message: "Waiting for document extraction...",
		},
		{
			ID:      StageValidation,
			Name:    "Data Validation",
			Status:  StatusPending,
			Message: "Waiting for AI processing...",
		},
	}
}

// snapshot returns value copies of all steps, safe to hand to observers and
// to embed in results.
func snapshot(steps []*Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = *s
	}
	return out
}
