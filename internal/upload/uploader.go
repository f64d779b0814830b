package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result describes the outcome of a single object upload. Failures are
// reported in-band: Success is false and Error carries a human-readable
// message. Uploaders never panic past this boundary.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	Key     string `json:"key,omitempty"`
	Size    int    `json:"size,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Uploader persists encoded image bytes to durable object storage and
// returns a retrievable locator.
type Uploader interface {
	// Upload writes one object. An empty filename means the uploader
	// generates one.
	Upload(ctx context.Context, data []byte, filename string) Result
	// Close releases any underlying client resources.
	Close() error
}

// metadataSource tags every uploaded object so downstream tooling can tell
// app uploads apart from bulk imports.
const metadataSource = "scouter_app"

// generateKey builds an object key combining a timestamp and a short random
// identifier, e.g. "receipts/20240115_143215_1a2b3c4d.jpg".
func generateKey(now time.Time) string {
	shortID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("receipts/%s_%s.jpg", now.Format("20060102_150405"), shortID)
}

// objectMetadata returns the standard metadata attached to every upload.
func objectMetadata(now time.Time) map[string]string {
	return map[string]string{
		"uploaded_at": now.Format(time.RFC3339),
		"source":      metadataSource,
	}
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}
