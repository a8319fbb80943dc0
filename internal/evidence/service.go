package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/models"
	"github.com/richxcame/cyber-patrol/pkg/storage"
	"go.uber.org/zap"
)

// Service is the evidence and custody manager
type Service struct {
	repo     RepositoryInterface
	archiver Archiver
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithArchiver copies every new payload to object storage
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// NewService creates a new evidence service
func NewService(repo RepositoryInterface, opts ...Option) *Service {
	s := &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CustodyResult is the evidence state after a custody action together with the new entry
type CustodyResult struct {
	Evidence *Evidence     `json:"evidence"`
	Entry    *CustodyEntry `json:"entry"`
	Advanced bool          `json:"legal_status_advanced"`
}

// CreateEvidence hashes the payload, stores the record as collected and opens its custody chain.
// Once hashing starts the write runs to completion even if the caller goes away.
func (s *Service) CreateEvidence(ctx context.Context, req *CreateEvidenceRequest) (*Evidence, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, req.Type)
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyPayload
	}
	if req.Officer == "" {
		return nil, ErrOfficerRequired
	}

	if req.AlertID != nil {
		exists, err := s.repo.AlertExists(ctx, *req.AlertID)
		if err != nil {
			return nil, fmt.Errorf("check alert: %w", err)
		}
		if !exists {
			return nil, ErrAlertNotFound
		}
	}

	ctx = context.WithoutCancel(ctx)

	data := make([]byte, len(req.Data))
	copy(data, req.Data)

	now := s.now()
	metadata := req.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}
	e := &Evidence{
		ID:          uuid.New(),
		AlertID:     req.AlertID,
		CaseNumber:  req.CaseNumber,
		Type:        req.Type,
		Data:        data,
		ContentHash: HashContent(data),
		CollectedBy: req.Officer,
		CollectedAt: now,
		LegalStatus: LegalCollected,
		Metadata:    metadata,
		UpdatedAt:   now,
	}
	first := &CustodyEntry{
		ID:         uuid.New(),
		EvidenceID: e.ID,
		Action:     ActionCollected,
		Officer:    req.Officer,
		CreatedAt:  now,
	}

	if err := s.repo.CreateWithCustody(ctx, e, first); err != nil {
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}

	evidenceCreatedTotal.WithLabelValues(string(e.Type)).Inc()
	logger.WithContext(ctx).Info("Evidence collected",
		zap.String("evidence_id", e.ID.String()),
		zap.String("evidence_type", string(e.Type)),
		zap.String("officer", e.CollectedBy),
		zap.String("content_hash", e.ContentHash),
	)

	s.archive(ctx, e)
	return e, nil
}

// archive copies the payload to object storage. A failed copy never fails creation.
func (s *Service) archive(ctx context.Context, e *Evidence) {
	if s.archiver == nil {
		return
	}

	key := storage.GenerateEvidenceKey(e.ID, string(e.Type), e.CollectedAt)
	if _, err := s.archiver.ArchiveEvidence(ctx, key, e.Data, e.ContentHash); err != nil {
		logger.WithContext(ctx).Warn("Failed to archive evidence payload",
			zap.String("evidence_id", e.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.repo.SetArchiveKey(ctx, e.ID, key); err != nil {
		logger.WithContext(ctx).Warn("Failed to record evidence archive key",
			zap.String("evidence_id", e.ID.String()),
			zap.Error(err),
		)
		return
	}
	e.ArchiveKey = key
}

// AppendCustody records a handling action. Legal status advances only on forward actions.
func (s *Service) AppendCustody(ctx context.Context, evidenceID uuid.UUID, req *AppendCustodyRequest) (*CustodyResult, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, req.Action)
	}
	if req.Officer == "" {
		return nil, ErrOfficerRequired
	}

	e, err := s.repo.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	var advanceTo *LegalStatus
	if target, ok := req.Action.LegalStatus(); ok && target.Rank() > e.LegalStatus.Rank() {
		advanceTo = &target
	}

	entry := &CustodyEntry{
		ID:         uuid.New(),
		EvidenceID: evidenceID,
		Action:     req.Action,
		Officer:    req.Officer,
		Notes:      req.Notes,
		CreatedAt:  s.now(),
	}
	stored, err := s.repo.AppendCustody(ctx, entry, advanceTo)
	if err != nil {
		return nil, err
	}
	advanced := stored != e.LegalStatus

	fields := []zap.Field{
		zap.String("evidence_id", evidenceID.String()),
		zap.String("action", string(req.Action)),
		zap.String("officer", req.Officer),
	}
	if advanced {
		fields = append(fields, zap.String("legal_status", string(stored)))
		e.LegalStatus = stored
		e.UpdatedAt = entry.CreatedAt
		e.deriveAdmissibility()
	}
	logger.WithContext(ctx).Info("Custody entry recorded", fields...)

	return &CustodyResult{Evidence: e, Entry: entry, Advanced: advanced}, nil
}

// VerifyIntegrity recomputes the payload hash and records the outcome.
// A mismatch is returned as ErrIntegrityMismatch alongside the report and is never repaired.
func (s *Service) VerifyIntegrity(ctx context.Context, evidenceID uuid.UUID) (*IntegrityReport, error) {
	now := s.now()
	report := &IntegrityReport{EvidenceID: evidenceID, CheckedAt: now}

	e, err := s.repo.GetByID(ctx, evidenceID)
	if errors.Is(err, ErrEvidenceNotFound) {
		report.Result = IntegrityNotFound
		integrityChecksTotal.WithLabelValues(string(report.Result)).Inc()
		return report, err
	}
	if err != nil {
		return nil, err
	}

	report.StoredHash = e.ContentHash
	report.ComputedHash = HashContent(e.Data)
	report.Result = IntegrityIntact
	if report.ComputedHash != report.StoredHash {
		report.Result = IntegrityTampered
	}
	integrityChecksTotal.WithLabelValues(string(report.Result)).Inc()
	report.ArchiveResult = s.checkArchive(ctx, e)

	if err := s.repo.RecordIntegrity(context.WithoutCancel(ctx), evidenceID, report.Result, now); err != nil {
		return nil, fmt.Errorf("failed to record integrity result: %w", err)
	}

	if report.Result == IntegrityTampered {
		logger.WithContext(ctx).Error("Evidence integrity check failed",
			zap.String("evidence_id", evidenceID.String()),
			zap.String("stored_hash", report.StoredHash),
			zap.String("computed_hash", report.ComputedHash),
		)
		return report, fmt.Errorf("%w: evidence %s", ErrIntegrityMismatch, evidenceID)
	}
	return report, nil
}

// checkArchive hashes the archived copy against the recorded hash
func (s *Service) checkArchive(ctx context.Context, e *Evidence) *IntegrityResult {
	if s.archiver == nil || e.ArchiveKey == "" {
		return nil
	}

	result := IntegrityIntact
	body, err := s.archiver.Download(ctx, e.ArchiveKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		result = IntegrityNotFound
	} else if err != nil {
		logger.WithContext(ctx).Warn("Archive copy unreachable during integrity check",
			zap.String("evidence_id", e.ID.String()),
			zap.Error(err),
		)
		return nil
	} else {
		defer body.Close()
		h := sha256.New()
		if _, err := io.Copy(h, body); err != nil {
			logger.WithContext(ctx).Warn("Failed to read archive copy",
				zap.String("evidence_id", e.ID.String()),
				zap.Error(err),
			)
			return nil
		}
		if hex.EncodeToString(h.Sum(nil)) != e.ContentHash {
			result = IntegrityTampered
		}
	}

	if result != IntegrityIntact {
		logger.WithContext(ctx).Error("Evidence archive copy does not match",
			zap.String("evidence_id", e.ID.String()),
			zap.String("archive_key", e.ArchiveKey),
			zap.String("archive_result", string(result)),
		)
	}
	return &result
}

// ArchiveURL returns a time-limited download link for the archived copy
func (s *Service) ArchiveURL(ctx context.Context, evidenceID uuid.UUID, expiresIn time.Duration) (*storage.PresignedURLResult, error) {
	e, err := s.repo.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if s.archiver == nil || e.ArchiveKey == "" {
		return nil, ErrNoArchive
	}
	return s.archiver.GetPresignedDownloadURL(ctx, e.ArchiveKey, expiresIn)
}

// GetEvidence returns one evidence record
func (s *Service) GetEvidence(ctx context.Context, id uuid.UUID) (*Evidence, error) {
	return s.repo.GetByID(ctx, id)
}

// ListCustody returns the custody chain of an evidence record
func (s *Service) ListCustody(ctx context.Context, evidenceID uuid.UUID) ([]*CustodyEntry, error) {
	if _, err := s.repo.GetByID(ctx, evidenceID); err != nil {
		return nil, err
	}
	return s.repo.ListCustody(ctx, evidenceID)
}

// ListByAlert returns the evidence collected for an alert
func (s *Service) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*Evidence, error) {
	exists, err := s.repo.AlertExists(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAlertNotFound
	}
	return s.repo.ListByAlert(ctx, alertID)
}
