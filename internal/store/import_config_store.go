package store

import (
	"context"
	"encoding/json"
)

// Source platforms accepted on import configs. Meta, TikTok and the custom
// HMAC-token path have front door adapters; google and linkedin configs can
// be created but their ingestion endpoints are not implemented yet.
const (
	PlatformMeta     = "meta"
	PlatformTikTok   = "tiktok"
	PlatformGoogle   = "google"
	PlatformLinkedIn = "linkedin"
	PlatformCustom   = "custom"
)

func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformMeta, PlatformTikTok, PlatformGoogle, PlatformLinkedIn, PlatformCustom:
		return true
	}
	return false
}

type ImportConfigStore struct {
	db DB
}

type ImportConfig struct {
	ID                  string `db:"id"`
	UserID              string `db:"user_id"`
	Platform            string `db:"platform"`
	CampaignID          string `db:"campaign_id"`
	CampaignName        string `db:"campaign_name"`
	VerifyToken         string `db:"verify_token"`
	WebhookSecret       string `db:"webhook_secret"`
	AccessToken         string `db:"access_token"`
	FieldMapping        string `db:"field_mapping"`
	CostPerLeadCents    int64  `db:"cost_per_lead_cents"`
	MinQualityScore     int    `db:"min_quality_score"`
	AllowedRegions      string `db:"allowed_regions"`
	AutoRecharge        bool   `db:"auto_recharge"`
	RechargeAmountCents int64  `db:"recharge_amount_cents"`
	Active              bool   `db:"active"`
	CreatedAt           any    `db:"created_at"`
}

// Mapping decodes the canonical-field -> source-path dictionary.
func (c ImportConfig) Mapping() (map[string]string, error) {
	if c.FieldMapping == "" {
		return map[string]string{}, nil
	}
	var mapping map[string]string
	if err := json.Unmarshal([]byte(c.FieldMapping), &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Regions decodes the allowed-region list; empty means no geo filter.
func (c ImportConfig) Regions() ([]string, error) {
	if c.AllowedRegions == "" {
		return nil, nil
	}
	var regions []string
	if err := json.Unmarshal([]byte(c.AllowedRegions), &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func NewImportConfigStore(db DB) *ImportConfigStore {
	return &ImportConfigStore{db: db}
}

const importConfigColumns = `id, user_id, platform, campaign_id, campaign_name, verify_token, webhook_secret, access_token,
       field_mapping, cost_per_lead_cents, min_quality_score, allowed_regions, auto_recharge, recharge_amount_cents, active, created_at`

func (s *ImportConfigStore) Create(ctx context.Context, tx Execer, input ImportConfig) error {
	query := `
		INSERT INTO import_configs (id, user_id, platform, campaign_id, campaign_name, verify_token, webhook_secret, access_token,
		                            field_mapping, cost_per_lead_cents, min_quality_score, allowed_regions, auto_recharge, recharge_amount_cents, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.Platform, input.CampaignID, input.CampaignName,
		input.VerifyToken, input.WebhookSecret, input.AccessToken, input.FieldMapping,
		input.CostPerLeadCents, input.MinQualityScore, input.AllowedRegions,
		input.AutoRecharge, input.RechargeAmountCents, input.Active,
	)
	return err
}

func (s *ImportConfigStore) GetActiveByID(ctx context.Context, configID string) (ImportConfig, error) {
	var row ImportConfig
	err := s.db.GetContext(ctx, &row, `
		SELECT `+importConfigColumns+`
		FROM import_configs
		WHERE id = $1 AND active
	`, configID)
	if err != nil {
		return ImportConfig{}, err
	}
	return row, nil
}

func (s *ImportConfigStore) GetActiveByCampaign(ctx context.Context, platform, campaignID string) (ImportConfig, error) {
	var row ImportConfig
	err := s.db.GetContext(ctx, &row, `
		SELECT `+importConfigColumns+`
		FROM import_configs
		WHERE platform = $1 AND campaign_id = $2 AND active
	`, platform, campaignID)
	if err != nil {
		return ImportConfig{}, err
	}
	return row, nil
}

func (s *ImportConfigStore) ListByUser(ctx context.Context, userID string) ([]ImportConfig, error) {
	var rows []ImportConfig
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+importConfigColumns+`
		FROM import_configs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate soft-disables a config. Configs are never deleted.
func (s *ImportConfigStore) Deactivate(ctx context.Context, configID, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_configs SET active = FALSE WHERE id = $1 AND user_id = $2
	`, configID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
