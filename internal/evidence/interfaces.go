package evidence

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/storage"
)

// RepositoryInterface defines the persistence operations for evidence and custody
type RepositoryInterface interface {
	AlertExists(ctx context.Context, alertID uuid.UUID) (bool, error)
	// CreateWithCustody stores the evidence and its first custody entry atomically
	CreateWithCustody(ctx context.Context, e *Evidence, first *CustodyEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error)
	// AppendCustody inserts the entry and, when advanceTo is set, moves legal status forward only.
	// It returns the legal status stored once the entry is committed.
	AppendCustody(ctx context.Context, entry *CustodyEntry, advanceTo *LegalStatus) (LegalStatus, error)
	ListCustody(ctx context.Context, evidenceID uuid.UUID) ([]*CustodyEntry, error)
	ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*Evidence, error)
	RecordIntegrity(ctx context.Context, id uuid.UUID, result IntegrityResult, at time.Time) error
	SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error
}

// Archiver keeps an off-database copy of evidence payloads
type Archiver interface {
	ArchiveEvidence(ctx context.Context, key string, data []byte, contentHash string) (*storage.UploadResult, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*storage.PresignedURLResult, error)
}
