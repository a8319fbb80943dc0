package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

// Repository handles evidence and custody persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new evidence repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const evidenceColumns = `
	id, alert_id, case_number, evidence_type, evidence_data, content_hash, archive_key,
	collected_by, collected_at, legal_status, last_integrity_result, last_verified_at,
	metadata, updated_at`

// AlertExists reports whether an alert row exists
func (r *Repository) AlertExists(ctx context.Context, alertID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, alertID).Scan(&exists)
	return exists, err
}

// CreateWithCustody inserts the evidence row and its first custody entry in one transaction
func (r *Repository) CreateWithCustody(ctx context.Context, e *Evidence, first *CustodyEntry) error {
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	evidenceQuery := `
		INSERT INTO evidence (
			id, alert_id, case_number, evidence_type, evidence_data, content_hash,
			collected_by, collected_at, legal_status, metadata, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, evidenceQuery,
		e.ID, e.AlertID, nullString(e.CaseNumber), e.Type, e.Data, e.ContentHash,
		e.CollectedBy, e.CollectedAt, e.LegalStatus, metadataJSON, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}

	if err := insertCustody(ctx, tx, first); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an evidence record including its payload
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1`
	e, err := scanEvidence(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEvidenceNotFound
	}
	return e, err
}

// AppendCustody records a custody action and returns the legal status stored after it.
// Legal status only ever moves forward.
func (r *Repository) AppendCustody(ctx context.Context, entry *CustodyEntry, advanceTo *LegalStatus) (LegalStatus, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT legal_status FROM evidence WHERE id = $1 FOR UPDATE`, entry.EvidenceID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEvidenceNotFound
	}
	if err != nil {
		return "", err
	}

	if err := insertCustody(ctx, tx, entry); err != nil {
		return "", err
	}

	if advanceTo != nil {
		order := make([]string, len(legalOrder))
		for i, s := range legalOrder {
			order[i] = string(s)
		}
		advanceQuery := `
			UPDATE evidence
			SET legal_status = $2::text, updated_at = NOW()
			WHERE id = $1
			  AND array_position($3::text[], legal_status::text) < array_position($3::text[], $2::text)
			RETURNING legal_status
		`
		err := tx.QueryRow(ctx, advanceQuery, entry.EvidenceID, string(*advanceTo), order).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("advance legal status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return LegalStatus(current), nil
}

// ListCustody returns the custody chain oldest first
func (r *Repository) ListCustody(ctx context.Context, evidenceID uuid.UUID) ([]*CustodyEntry, error) {
	query := `
		SELECT id, evidence_id, action, officer, notes, created_at
		FROM custody_entries
		WHERE evidence_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, evidenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*CustodyEntry, 0)
	for rows.Next() {
		var c CustodyEntry
		var notes sql.NullString
		if err := rows.Scan(&c.ID, &c.EvidenceID, &c.Action, &c.Officer, &notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Notes = notes.String
		entries = append(entries, &c)
	}
	return entries, rows.Err()
}

// ListByAlert returns every evidence record collected for an alert
func (r *Repository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE alert_id = $1 ORDER BY collected_at DESC`
	rows, err := r.db.Query(ctx, query, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*Evidence, 0)
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// RecordIntegrity stores the outcome of the latest integrity check
func (r *Repository) RecordIntegrity(ctx context.Context, id uuid.UUID, result IntegrityResult, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE evidence SET last_integrity_result = $2, last_verified_at = $3, updated_at = NOW() WHERE id = $1`,
		id, result, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEvidenceNotFound
	}
	return nil
}

// SetArchiveKey records where the payload copy lives in object storage
func (r *Repository) SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.db.Exec(ctx, `UPDATE evidence SET archive_key = $2 WHERE id = $1`, id, key)
	return err
}

func insertCustody(ctx context.Context, tx pgx.Tx, c *CustodyEntry) error {
	query := `
		INSERT INTO custody_entries (id, evidence_id, action, officer, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, c.ID, c.EvidenceID, c.Action, c.Officer, nullString(c.Notes), c.CreatedAt); err != nil {
		return fmt.Errorf("insert custody entry: %w", err)
	}
	return nil
}

func scanEvidence(row pgx.Row) (*Evidence, error) {
	var e Evidence
	var alertID *uuid.UUID
	var caseNumber, archiveKey, integrity sql.NullString
	var verifiedAt sql.NullTime
	var metadataJSON []byte

	err := row.Scan(
		&e.ID, &alertID, &caseNumber, &e.Type, &e.Data, &e.ContentHash, &archiveKey,
		&e.CollectedBy, &e.CollectedAt, &e.LegalStatus, &integrity, &verifiedAt,
		&metadataJSON, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.AlertID = alertID
	e.CaseNumber = caseNumber.String
	e.ArchiveKey = archiveKey.String
	if integrity.Valid {
		result := IntegrityResult(integrity.String)
		e.LastIntegrityResult = &result
	}
	if verifiedAt.Valid {
		e.LastVerifiedAt = &verifiedAt.Time
	}
	if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil || e.Metadata == nil {
		e.Metadata = models.Metadata{}
	}
	e.deriveAdmissibility()
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
