package upload

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS implements Uploader against Google Cloud Storage.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS uploader for the given bucket. Client options carry
// the credential source; with none supplied the client falls back to
// Application Default Credentials.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

// Upload writes one object to the bucket tagged with an upload timestamp and
// a source marker. Service failures are converted into an in-band Result.
func (g *GCS) Upload(ctx context.Context, data []byte, filename string) Result {
	if len(data) == 0 {
		return failure("no image data to upload")
	}

	now := time.Now()
	key := filename
	if key == "" {
		key = generateKey(now)
	}

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	w.Metadata = objectMetadata(now)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return failure("writing to gcs object %s: %v", key, err)
	}
	if err := w.Close(); err != nil {
		return failure("finalizing gcs write for %s: %v", key, err)
	}

	return Result{
		Success: true,
		URL:     fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key),
		Bucket:  g.bucket,
		Key:     key,
		Size:    len(data),
	}
}

// Close closes the underlying GCS client.
func (g *GCS) Close() error {
	return g.client.Close()
}
