package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore uploads receipts to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSStore creates a GCSStore. Without opts the client falls back to
// application default credentials.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, now: time.Now}, nil
}

// Name implements ReceiptStore.
func (s *GCSStore) Name() string { return "gcs" }

// Upload implements ReceiptStore.
func (s *GCSStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	objectName := ObjectName(s.now(), filename)

	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload receipt to gcs: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close gcs writer: %w", err)
	}

	return s.objectURL(objectName), nil
}

func (s *GCSStore) objectURL(objectName string) string {
	parts := strings.Split(objectName, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "https://storage.googleapis.com/" + s.bucket + "/" + strings.Join(parts, "/")
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
