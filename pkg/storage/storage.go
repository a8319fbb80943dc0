package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket
var ErrObjectNotFound = errors.New("object not found")

// UploadResult contains the result of an upload operation
type UploadResult struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	Checksum   string    `json:"checksum,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PresignedURLResult contains a presigned URL for direct download
type PresignedURLResult struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Archive stores write-once evidence payloads
type Archive interface {
	// ArchiveEvidence writes data under key and tags it with the content hash
	ArchiveEvidence(ctx context.Context, key string, data []byte, contentHash string) (*UploadResult, error)

	// Download opens a stored object
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetPresignedDownloadURL generates a time-limited download link
	GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*PresignedURLResult, error)
}

// GenerateEvidenceKey builds the archive key for an evidence payload.
// Format: evidence/{yyyy}/{mm}/{dd}/{evidence_type}/{evidence_id}.bin
func GenerateEvidenceKey(evidenceID uuid.UUID, evidenceType string, collectedAt time.Time) string {
	return fmt.Sprintf("evidence/%s/%s/%s.bin",
		collectedAt.UTC().Format("2006/01/02"),
		strings.ToLower(evidenceType),
		evidenceID.String(),
	)
}
