package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Lead statuses. A lead is created pending, flips to delivered once the
// debit lands, and to failed when the debit loses the balance race.
const (
	LeadPending   = "pending"
	LeadDelivered = "delivered"
	LeadFailed    = "failed"
	LeadRefunded  = "refunded"
)

type LeadStore struct {
	db DB
}

type LeadInput struct {
	ID           string
	UserID       string
	ConfigID     string
	CampaignID   string
	Platform     string
	SourceLeadID string
	Data         string
	QualityScore int
	CostCents    int64
	Status       string
}

type Lead struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	ConfigID     string `db:"config_id"`
	CampaignID   string `db:"campaign_id"`
	Platform     string `db:"platform"`
	SourceLeadID string `db:"source_lead_id"`
	Data         string `db:"data"`
	QualityScore int    `db:"quality_score"`
	CostCents    int64  `db:"cost_cents"`
	Status       string `db:"status"`
	CreatedAt    any    `db:"created_at"`
	UpdatedAt    any    `db:"updated_at"`
}

func NewLeadStore(db DB) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) Create(ctx context.Context, input LeadInput) error {
	query := `
		INSERT INTO leads (id, user_id, config_id, campaign_id, platform, source_lead_id, data, quality_score, cost_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		input.ID, input.UserID, input.ConfigID, input.CampaignID, input.Platform,
		input.SourceLeadID, input.Data, input.QualityScore, input.CostCents, input.Status,
	)
	return err
}

func (s *LeadStore) UpdateStatus(ctx context.Context, leadID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, leadID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("lead %s not found", leadID)
	}
	return nil
}

func (s *LeadStore) GetByID(ctx context.Context, leadID string) (Lead, error) {
	var row Lead
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, config_id, campaign_id, platform, source_lead_id, data, quality_score, cost_cents, status, created_at, updated_at
		FROM leads
		WHERE id = $1
	`, leadID)
	if err != nil {
		return Lead{}, err
	}
	return row, nil
}

// GetBySource resolves the dedup key used for redelivered webhook events.
func (s *LeadStore) GetBySource(ctx context.Context, userID, platform, sourceLeadID string) (Lead, error) {
	var row Lead
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, config_id, campaign_id, platform, source_lead_id, data, quality_score, cost_cents, status, created_at, updated_at
		FROM leads
		WHERE user_id = $1 AND platform = $2 AND source_lead_id = $3
	`, userID, platform, sourceLeadID)
	if err != nil {
		return Lead{}, err
	}
	return row, nil
}

func (s *LeadStore) ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]map[string]any, error) {
	var rows []Lead
	query := `
		SELECT id, user_id, config_id, campaign_id, platform, source_lead_id, data, quality_score, cost_cents, status, created_at, updated_at
		FROM leads
		WHERE user_id = $1
	`
	args := []any{userID}
	param := 2
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
		param = 3
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", param, param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"id":             row.ID,
			"config_id":      row.ConfigID,
			"campaign_id":    row.CampaignID,
			"platform":       row.Platform,
			"source_lead_id": row.SourceLeadID,
			"data":           row.Data,
			"quality_score":  row.QualityScore,
			"cost_cents":     row.CostCents,
			"status":         row.Status,
			"created_at":     row.CreatedAt,
		})
	}
	return out, nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (duplicate source lead delivery).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505"
}
