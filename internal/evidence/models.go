package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrEvidenceNotFound  = errors.New("evidence not found")
	ErrIntegrityMismatch = errors.New("evidence content hash mismatch")
	ErrInvalidType       = errors.New("invalid evidence type")
	ErrInvalidAction     = errors.New("invalid custody action")
	ErrEmptyPayload      = errors.New("evidence payload is empty")
	ErrOfficerRequired   = errors.New("officer is required")
	ErrNoArchive         = errors.New("evidence has no archived copy")
)

// Type classifies an evidence payload
type Type string

const (
	TypeScreenshot    Type = "screenshot"
	TypeConversation  Type = "conversation"
	TypeProfile       Type = "profile"
	TypeTransaction   Type = "transaction"
	TypeImageAnalysis Type = "image_analysis"
	TypeOther         Type = "other"
)

// Valid reports whether t is a known evidence type
func (t Type) Valid() bool {
	switch t {
	case TypeScreenshot, TypeConversation, TypeProfile, TypeTransaction, TypeImageAnalysis, TypeOther:
		return true
	}
	return false
}

// LegalStatus is the legal lifecycle position of an evidence record
type LegalStatus string

const (
	LegalCollected LegalStatus = "collected"
	LegalAnalyzed  LegalStatus = "analyzed"
	LegalSubmitted LegalStatus = "submitted"
	LegalArchived  LegalStatus = "archived"
)

// legalOrder is the only direction legal status may move
var legalOrder = []LegalStatus{LegalCollected, LegalAnalyzed, LegalSubmitted, LegalArchived}

// Rank returns the position of s in the legal lifecycle, or -1 if unknown
func (s LegalStatus) Rank() int {
	for i, v := range legalOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Action is a handling step recorded in the chain of custody
type Action string

const (
	ActionCollected Action = "collected"
	ActionAnalyzed  Action = "analyzed"
	ActionReviewed  Action = "reviewed"
	ActionSubmitted Action = "submitted"
	ActionExported  Action = "exported"
	ActionArchived  Action = "archived"
)

// Valid reports whether a is a known custody action
func (a Action) Valid() bool {
	switch a {
	case ActionCollected, ActionAnalyzed, ActionReviewed, ActionSubmitted, ActionExported, ActionArchived:
		return true
	}
	return false
}

// LegalStatus returns the legal status this action corresponds to.
// Reviewed and exported are history only and never move the legal status.
func (a Action) LegalStatus() (LegalStatus, bool) {
	switch a {
	case ActionCollected:
		return LegalCollected, true
	case ActionAnalyzed:
		return LegalAnalyzed, true
	case ActionSubmitted:
		return LegalSubmitted, true
	case ActionArchived:
		return LegalArchived, true
	}
	return "", false
}

// IntegrityResult is the outcome of recomputing an evidence hash
type IntegrityResult string

const (
	IntegrityIntact   IntegrityResult = "intact"
	IntegrityTampered IntegrityResult = "tampered"
	IntegrityNotFound IntegrityResult = "not_found"
)

// Evidence is a write-once artifact with a content hash and a legal lifecycle
type Evidence struct {
	ID                  uuid.UUID        `json:"id"`
	AlertID             *uuid.UUID       `json:"alert_id,omitempty"`
	CaseNumber          string           `json:"case_number,omitempty"`
	Type                Type             `json:"evidence_type"`
	Data                []byte           `json:"-"`
	ContentHash         string           `json:"content_hash"`
	ArchiveKey          string           `json:"archive_key,omitempty"`
	CollectedBy         string           `json:"collected_by"`
	CollectedAt         time.Time        `json:"collected_at"`
	LegalStatus         LegalStatus      `json:"legal_status"`
	LastIntegrityResult *IntegrityResult `json:"last_integrity_result,omitempty"`
	LastVerifiedAt      *time.Time       `json:"last_verified_at,omitempty"`
	CourtAdmissible     bool             `json:"court_admissible"`
	Metadata            models.Metadata  `json:"metadata"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// deriveAdmissibility sets CourtAdmissible from the legal status and the latest integrity check
func (e *Evidence) deriveAdmissibility() {
	e.CourtAdmissible = e.LegalStatus.Rank() >= LegalSubmitted.Rank() &&
		e.LastIntegrityResult != nil && *e.LastIntegrityResult == IntegrityIntact
}

// CustodyEntry is one append-only record in an evidence chain of custody
type CustodyEntry struct {
	ID         uuid.UUID `json:"id"`
	EvidenceID uuid.UUID `json:"evidence_id"`
	Action     Action    `json:"action"`
	Officer    string    `json:"officer"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IntegrityReport is the structured result of VerifyIntegrity.
// ArchiveResult compares the object storage copy and is nil when there is none or it was unreachable.
type IntegrityReport struct {
	EvidenceID    uuid.UUID        `json:"evidence_id"`
	Result        IntegrityResult  `json:"result"`
	StoredHash    string           `json:"stored_hash,omitempty"`
	ComputedHash  string           `json:"computed_hash,omitempty"`
	ArchiveResult *IntegrityResult `json:"archive_result,omitempty"`
	CheckedAt     time.Time        `json:"checked_at"`
}

// HashContent returns the hex SHA-256 digest of data
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CreateEvidenceRequest is the operator payload for new evidence.
// Data arrives base64 encoded in JSON.
type CreateEvidenceRequest struct {
	AlertID    *uuid.UUID      `json:"alert_id"`
	CaseNumber string          `json:"case_number"`
	Type       Type            `json:"evidence_type" binding:"required"`
	Data       []byte          `json:"evidence_data" binding:"required"`
	Officer    string          `json:"officer" binding:"required"`
	Metadata   models.Metadata `json:"metadata"`
}

// AppendCustodyRequest is the operator payload for a custody action
type AppendCustodyRequest struct {
	Action  Action `json:"action" binding:"required"`
	Officer string `json:"officer" binding:"required"`
	Notes   string `json:"notes"`
}
