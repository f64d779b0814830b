package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scouter-app/scouter/internal/pipeline"
	"github.com/scouter-app/scouter/internal/structure"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.New().String()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles record operations. Processing runs in the background;
// callers get the stored record back immediately and follow the run
// through Progress.
type Service struct {
	db          DB
	processor   *pipeline.Processor
	progress    *progressTracker
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, processor *pipeline.Processor) *Service {
	return NewServiceWithDeps(db, processor, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, processor *pipeline.Processor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		processor:   processor,
		progress:    newProgressTracker(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt stores a new record and starts the processing pipeline in
// the background. The returned record is in the uploaded state; follow the
// run through Progress and re-fetch the record when it completes.
func (s *Service) ProcessReceipt(ctx context.Context, orgID, filename string, data []byte, contentType string) (*Record, error) {
	if orgID == "" {
		return nil, fmt.Errorf("organization ID is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	now := s.timeSource.Now()
	record := &Record{
		ID:          s.idGenerator.Generate(),
		OrgID:       orgID,
		Status:      StatusUploaded,
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveRecord(record); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}

	s.progress.start(record.ID)

	// The run must outlive the HTTP request that triggered it.
	go s.runPipeline(context.WithoutCancel(ctx), record.ID, data)

	return record, nil
}

// runPipeline executes one background processing run and keeps the stored
// record and the progress tracker in sync with it.
func (s *Service) runPipeline(ctx context.Context, recordID string, data []byte) {
	observer := pipeline.ObserverFunc(func(update pipeline.Update) {
		s.progress.update(recordID, update.Steps)
		if update.Status == pipeline.StatusCompleted {
			s.advanceStatus(recordID, update.StageID)
		}
	})

	result := s.processor.Process(ctx, data, observer)

	record, err := s.db.GetRecord(recordID)
	if err != nil {
		// Deleted mid-run; nothing left to update.
		slog.Warn("Record vanished during processing", "record_id", recordID, "error", err)
		s.progress.finish(recordID, "")
		return
	}

	record.ProcessingID = result.ProcessingID
	record.UpdatedAt = s.timeSource.Now()

	if !result.Success {
		record.Error = result.Error
		if err := s.db.SaveRecord(record); err != nil {
			slog.Error("Failed to save failed record", "record_id", recordID, "error", err)
		}
		s.progress.finish(recordID, result.Error)
		return
	}

	record.Receipt = result.Receipt
	record.Confidence = result.Receipt.ConfidenceScore
	if upload := result.Metadata.Upload; upload != nil {
		record.StorageURL = upload.URL
		record.StorageKey = upload.Key
	}
	if validation := result.Metadata.Validation; validation != nil {
		record.Score = validation.Score
		record.Issues = validation.Issues
	}
	if record.Confidence >= reviewThreshold {
		record.Status = StatusAwaitingReview
	} else {
		record.Status = StatusAILowConfidence
	}

	if err := s.db.SaveRecord(record); err != nil {
		slog.Error("Failed to save processed record", "record_id", recordID, "error", err)
		s.progress.finish(recordID, fmt.Sprintf("saving record: %v", err))
		return
	}

	s.progress.finish(recordID, "")
}

// advanceStatus persists the intermediate status matching a completed
// pipeline stage. Terminal statuses are decided after the run finishes.
func (s *Service) advanceStatus(recordID string, stage pipeline.StageID) {
	var status Status
	switch stage {
	case pipeline.StageDocumentAI:
		status = StatusOCRDone
	case pipeline.StageAIProcessing:
		status = StatusAIDone
	default:
		return
	}

	record, err := s.db.GetRecord(recordID)
	if err != nil {
		return
	}
	record.Status = status
	record.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveRecord(record); err != nil {
		slog.Error("Failed to save status transition", "record_id", recordID, "status", status, "error", err)
	}
}

// GetRecord retrieves a record by ID, scoped to an organization
func (s *Service) GetRecord(orgID, id string) (*Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	if record.OrgID != orgID {
		return nil, fmt.Errorf("record not found: %s", id)
	}
	return record, nil
}

// ListRecords returns all records belonging to an organization
func (s *Service) ListRecords(orgID string) ([]*Record, error) {
	records, err := s.db.ListRecords(orgID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// DeleteRecord removes a record and its progress entry
func (s *Service) DeleteRecord(orgID, id string) error {
	if _, err := s.GetRecord(orgID, id); err != nil {
		return err
	}
	if err := s.db.DeleteRecord(id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	s.progress.drop(id)
	return nil
}

// Progress returns the live processing view for a record
func (s *Service) Progress(orgID, id string) (Progress, error) {
	if _, err := s.GetRecord(orgID, id); err != nil {
		return Progress{}, err
	}
	progress, ok := s.progress.get(id)
	if !ok {
		return Progress{}, fmt.Errorf("no processing run for record: %s", id)
	}
	return progress, nil
}

// VerifyRecord marks a processed record as user-verified, optionally
// replacing the extracted data with user corrections.
func (s *Service) VerifyRecord(orgID, id string, corrected *structure.ReceiptData) (*Record, error) {
	record, err := s.GetRecord(orgID, id)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case StatusAwaitingReview, StatusAILowConfidence:
	case StatusVerified:
		return nil, fmt.Errorf("record already verified: %s", id)
	default:
		return nil, fmt.Errorf("record still processing: %s", id)
	}

	if corrected != nil {
		record.Receipt = corrected
		validation := pipeline.Validate(corrected)
		record.Score = validation.Score
		record.Issues = validation.Issues
	}

	now := s.timeSource.Now()
	record.Status = StatusVerified
	record.VerifiedAt = &now
	record.UpdatedAt = now

	if err := s.db.SaveRecord(record); err != nil {
		return nil, fmt.Errorf("saving verified record: %w", err)
	}
	return record, nil
}
