package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"leavedesk/internal/logger"
)

const driveViewURL = "https://drive.google.com/uc?export=view&id="

// DriveStore uploads receipts to a Google Drive folder and shares them with
// anyone holding the link.
type DriveStore struct {
	svc      *drive.Service
	folderID string
	now      func() time.Time
}

// NewDriveStore creates a DriveStore. opts carry the credentials.
func NewDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	opts = append([]option.ClientOption{option.WithScopes(drive.DriveFileScope)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID, now: time.Now}, nil
}

// Name implements ReceiptStore.
func (s *DriveStore) Name() string { return "drive" }

// Upload implements ReceiptStore.
func (s *DriveStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	file := &drive.File{
		Name:     s.now().UTC().Format("20060102-150405") + "-" + SanitizeFilename(filename),
		MimeType: contentType,
	}
	if s.folderID != "" {
		file.Parents = []string{s.folderID}
	}

	created, err := s.svc.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload failed: %w", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := s.svc.Permissions.Create(created.Id, perm).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		s.remove(created.Id)
		return "", fmt.Errorf("drive share failed for %s: %w", created.Id, err)
	}

	return driveViewURL + created.Id, nil
}

// remove deletes an unshared upload. It runs on its own context because the
// request context may be what failed the share.
func (s *DriveStore) remove(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.svc.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		logger.Get().Warnw("failed to remove unshared drive receipt", "file_id", fileID, "error", err)
	}
}
