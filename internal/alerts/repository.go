package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

// Repository handles alert persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new alerts repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const alertColumns = `
	id, source_platform, source_id, source_url, author, content, media_urls,
	confidence, risk_tier, category, signals, reasoning, language, metadata,
	status, assigned_to, observed_at, collected_at, resolved_at, created_at, updated_at`

// UpsertByNaturalKey inserts the alert unless (source_platform, source_id) already exists
func (r *Repository) UpsertByNaturalKey(ctx context.Context, a *Alert) (bool, error) {
	mediaJSON, err := json.Marshal(nonNil(a.MediaURLs))
	if err != nil {
		return false, err
	}
	signalsJSON, err := json.Marshal(nonNil(a.Signals))
	if err != nil {
		return false, err
	}
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO alerts (
			id, source_platform, source_id, source_url, author, content, media_urls,
			confidence, risk_tier, category, signals, reasoning, language, metadata,
			status, observed_at, collected_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18
		)
		ON CONFLICT (source_platform, source_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err = r.db.QueryRow(ctx, query,
		a.ID, a.SourcePlatform, a.SourceID, nullString(a.SourceURL), nullString(a.Author),
		a.Content, mediaJSON, a.Confidence, a.RiskTier, a.Category, signalsJSON,
		nullString(a.Reasoning), nullString(string(a.Language)), metadataJSON,
		a.Status, a.ObservedAt, a.CollectedAt, now,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert alert %s: %w", a.Key(), err)
	}

	existing, err := r.GetByNaturalKey(ctx, a.SourcePlatform, a.SourceID)
	if err != nil {
		return false, err
	}
	*a = *existing
	return false, nil
}

// GetByID retrieves an alert by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	return a, err
}

// GetByNaturalKey retrieves an alert by platform and platform-native id
func (r *Repository) GetByNaturalKey(ctx context.Context, platform, sourceID string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE source_platform = $1 AND source_id = $2`
	a, err := scanAlert(r.db.QueryRow(ctx, query, platform, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	return a, err
}

// List retrieves alerts matching filter, newest first, with the total match count
func (r *Repository) List(ctx context.Context, filter *ListFilter) ([]*Alert, int64, error) {
	where, args := filter.clause()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM alerts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts := make([]*Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

// UpdateStatus sets the workflow status of an alert
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, resolvedAt *time.Time) error {
	query := `
		UPDATE alerts
		SET status = $2, resolved_at = COALESCE($3, resolved_at), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, status, resolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Assign records the officer handling an alert
func (r *Repository) Assign(ctx context.Context, id uuid.UUID, officer string) error {
	tag, err := r.db.Exec(ctx, `UPDATE alerts SET assigned_to = $2, updated_at = NOW() WHERE id = $1`, id, officer)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// GetStats aggregates alerts by tier, category and status, plus daily counts since since
func (r *Repository) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{
		ByRiskTier:     make(map[string]int64),
		ByCategory:     make([]CategoryCount, 0),
		ByStatus:       make(map[string]int64),
		RecentActivity: make([]DailyCount, 0),
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	if err := r.countInto(ctx, `SELECT risk_tier, COUNT(*) FROM alerts GROUP BY risk_tier`, stats.ByRiskTier); err != nil {
		return nil, err
	}
	if err := r.countInto(ctx, `SELECT status, COUNT(*) FROM alerts GROUP BY status`, stats.ByStatus); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*) AS count
		FROM alerts
		GROUP BY category
		ORDER BY count DESC, category
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByCategory = append(stats.ByCategory, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT DATE(created_at) AS day, COUNT(*)
		FROM alerts
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var day time.Time
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		stats.RecentActivity = append(stats.RecentActivity, DailyCount{Date: day.Format("2006-01-02"), Count: count})
	}
	return stats, rows.Err()
}

func (r *Repository) countInto(ctx context.Context, query string, into map[string]int64) error {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

// ========================================
// HELPERS
// ========================================

// clause builds the WHERE clause and positional args for f
func (f *ListFilter) clause() (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("risk_tier", f.RiskTier)
	add("category", f.Category)
	add("status", f.Status)
	add("source_platform", f.Platform)

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	var mediaJSON, signalsJSON, metadataJSON []byte
	var sourceURL, author, reasoning, language, assignedTo sql.NullString
	var observedAt, collectedAt, resolvedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.SourcePlatform, &a.SourceID, &sourceURL, &author, &a.Content, &mediaJSON,
		&a.Confidence, &a.RiskTier, &a.Category, &signalsJSON, &reasoning, &language, &metadataJSON,
		&a.Status, &assignedTo, &observedAt, &collectedAt, &resolvedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(mediaJSON, &a.MediaURLs); err != nil {
		a.MediaURLs = []string{}
	}
	if err := json.Unmarshal(signalsJSON, &a.Signals); err != nil {
		a.Signals = []string{}
	}
	if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil || a.Metadata == nil {
		a.Metadata = models.Metadata{}
	}

	a.SourceURL = sourceURL.String
	a.Author = author.String
	a.Reasoning = reasoning.String
	a.Language = scoring.Language(language.String)
	a.AssignedTo = assignedTo.String
	if observedAt.Valid {
		a.ObservedAt = &observedAt.Time
	}
	if collectedAt.Valid {
		a.CollectedAt = &collectedAt.Time
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
