package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/scouter-app/scouter/internal/extract"
	"github.com/scouter-app/scouter/internal/structure"
	"github.com/scouter-app/scouter/internal/upload"
)

// defaultCallbackTimeout bounds how long one observer invocation may block
// a stage transition.
const defaultCallbackTimeout = 5 * time.Second

// Processor sequences the four receipt processing stages: object storage
// upload, document extraction, AI structuring, and validation. A Processor
// is safe for concurrent use: all mutable state lives in a per-run
// structure, and the backend clients are read-only once constructed.
type Processor struct {
	uploader        upload.Uploader
	extractor       extract.Extractor
	structurer      structure.Structurer
	callbackTimeout time.Duration
}

// Option configures a Processor.
type Option func(*Processor)

// WithCallbackTimeout overrides the bound applied to each observer
// invocation.
func WithCallbackTimeout(d time.Duration) Option {
	return func(p *Processor) {
		p.callbackTimeout = d
	}
}

// New creates a Processor over the given backends.
func New(uploader upload.Uploader, extractor extract.Extractor, structurer structure.Structurer, opts ...Option) *Processor {
	p := &Processor{
		uploader:        uploader,
		extractor:       extractor,
		structurer:      structurer,
		callbackTimeout: defaultCallbackTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run holds the state owned by a single Process invocation.
type run struct {
	steps    []*Step
	observer Observer
	timeout  time.Duration
}

// update advances one step and publishes the transition to the observer
// with a full snapshot of all steps.
func (r *run) update(id StageID, status Status, progress int, message string) {
	for _, step := range r.steps {
		if step.ID != id {
			continue
		}

		step.Status = status
		step.Progress = progress
		step.Message = message

		now := time.Now()
		switch status {
		case StatusProcessing:
			if step.StartedAt == nil {
				step.StartedAt = &now
			}
		case StatusCompleted, StatusError:
			step.CompletedAt = &now
		}
		if status == StatusError {
			step.Error = message
		}
		break
	}

	r.notify(Update{
		StageID:  id,
		Status:   status,
		Progress: progress,
		Message:  message,
		Steps:    snapshot(r.steps),
	})
}

// notify invokes the observer synchronously, bounded by the callback
// timeout. A timed-out observer is abandoned, not waited for.
func (r *run) notify(update Update) {
	if r.observer == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.observer.StageChanged(update)
	}()

	select {
	case <-done:
	case <-time.After(r.timeout):
		slog.Warn("Progress observer timed out", "stage", update.StageID, "status", update.Status)
	}
}

// Process runs the full pipeline over one receipt image. Every invocation
// gets a fresh processing ID and its own step state. No stage failure
// escapes as a panic or error: failures come back as a Result with
// Success=false, the failing stage marked error, and unreached stages left
// pending.
func (p *Processor) Process(ctx context.Context, image []byte, observer Observer) *Result {
	processingID := uuid.New().String()
	startedAt := time.Now()

	r := &run{
		steps:    newSteps(),
		observer: observer,
		timeout:  p.callbackTimeout,
	}

	fail := func(stage StageID, message string) *Result {
		r.update(stage, StatusError, 0, message)
		failedAt := time.Now()
		slog.Error("Pipeline run failed", "processing_id", processingID, "stage", stage, "error", message)
		return &Result{
			ProcessingID: processingID,
			Success:      false,
			Error:        message,
			Metadata: Metadata{
				StartedAt: startedAt,
				FailedAt:  &failedAt,
				Steps:     snapshot(r.steps),
			},
		}
	}

	// Stage 1: upload to object storage
	r.update(StageUpload, StatusProcessing, 10, "Uploading image to object storage...")
	uploadResult := p.uploader.Upload(ctx, image, "")
	if !uploadResult.Success {
		return fail(StageUpload, fmt.Sprintf("Upload failed: %s", uploadResult.Error))
	}
	r.update(StageUpload, StatusCompleted, 100, fmt.Sprintf("Image uploaded successfully (%d bytes)", uploadResult.Size))

	// Stage 2: document extraction
	r.update(StageDocumentAI, StatusProcessing, 20, "Processing with document extraction backend...")
	extraction := p.extractor.Extract(ctx, image)
	if !extraction.Success {
		return fail(StageDocumentAI, fmt.Sprintf("Document extraction failed: %s", extraction.Error))
	}
	r.update(StageDocumentAI, StatusCompleted, 100, fmt.Sprintf("Document processed (%d words, %.1f%% confidence)", extraction.WordCount, extraction.Confidence))

	// Stage 3: AI structuring, reconciling the extractor's structured hints
	r.update(StageAIProcessing, StatusProcessing, 30, "Enhancing with AI model...")
	enhancement := p.structurer.Enhance(ctx, extraction.Text, extraction.Structured)
	if !enhancement.Success {
		return fail(StageAIProcessing, fmt.Sprintf("AI processing failed: %s", enhancement.Error))
	}
	r.update(StageAIProcessing, StatusCompleted, 100, fmt.Sprintf("Data structured (confidence: %.1f%%)", enhancement.Data.ConfidenceScore))

	// Stage 4: validation. Findings are reported, never fatal.
	r.update(StageValidation, StatusProcessing, 80, "Validating extracted data...")
	validation := Validate(enhancement.Data)
	r.update(StageValidation, StatusCompleted, 100, fmt.Sprintf("Validation complete (%d%% accuracy)", validation.Score))

	completedAt := time.Now()
	slog.Info("Pipeline run completed",
		"processing_id", processingID,
		"confidence", enhancement.Data.ConfidenceScore,
		"validation_score", validation.Score,
		"duration", completedAt.Sub(startedAt),
	)

	return &Result{
		ProcessingID: processingID,
		Success:      true,
		Receipt:      enhancement.Data,
		Metadata: Metadata{
			StartedAt:      startedAt,
			CompletedAt:    &completedAt,
			ProcessingTime: math.Round(completedAt.Sub(startedAt).Seconds()*100) / 100,
			Upload:         &uploadResult,
			Extraction:     &extraction,
			Enhancement:    &enhancement,
			Validation:     &validation,
			Steps:          snapshot(r.steps),
		},
	}
}
