// Package storage uploads leave receipts to external blob storage and returns
// a URL users can open.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/uuid"
)

// ReceiptStore persists a receipt and returns its viewable URL.
type ReceiptStore interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Name() string
}

// ErrDisabled is returned by NoopStore.
var ErrDisabled = errors.New("receipt storage is not configured")

// NoopStore rejects every upload. It is used when RECEIPT_STORAGE=none.
type NoopStore struct{}

// Upload implements ReceiptStore.
func (NoopStore) Upload(context.Context, []byte, string, string) (string, error) {
	return "", ErrDisabled
}

// Name implements ReceiptStore.
func (NoopStore) Name() string { return "none" }

var allowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DetectContentType sniffs data and returns its MIME type, or
// ErrReceiptType when the type is not accepted as a receipt.
func DetectContentType(data []byte, filename string) (string, error) {
	mimeType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	// Office documents sniff as zip archives.
	if mimeType == "application/zip" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".docx":
			mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		case ".xlsx":
			mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
	}

	if !allowedContentTypes[mimeType] {
		return "", apperrors.WithMessage(apperrors.ErrReceiptType, "Unsupported receipt type: "+mimeType)
	}
	return mimeType, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeFilename strips directories and unsafe characters from a client
// supplied filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "receipt"
	}
	if r := []rune(name); len(r) > 100 {
		name = string(r[len(r)-100:])
	}
	return name
}

// ObjectName returns a unique, date-partitioned object name for a receipt.
func ObjectName(now time.Time, filename string) string {
	return "receipts/" + now.UTC().Format("2006/01") + "/" + uuid.New() + "-" + SanitizeFilename(filename)
}
