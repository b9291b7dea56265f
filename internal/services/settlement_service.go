package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"leadgate/internal/leadmap"
	"leadgate/internal/scoring"
	"leadgate/internal/store"
	"leadgate/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConfigStore interface {
	GetActiveByID(ctx context.Context, configID string) (store.ImportConfig, error)
	GetActiveByCampaign(ctx context.Context, platform, campaignID string) (store.ImportConfig, error)
}

type LeadStore interface {
	Create(ctx context.Context, input store.LeadInput) error
	UpdateStatus(ctx context.Context, leadID, status string) error
	GetBySource(ctx context.Context, userID, platform, sourceLeadID string) (store.Lead, error)
}

type SettlementLedger interface {
	GetBalance(ctx context.Context, userID string) (store.Balance, error)
	Debit(ctx context.Context, userID string, amountCents int64, leadID string) error
}

type RechargeAgent interface {
	AttemptRecharge(ctx context.Context, userID string, amountCents int64) bool
}

type NotificationStore interface {
	Create(ctx context.Context, input store.NotificationInput) error
}

type NotificationHub interface {
	BroadcastNotification(userID string, notification websocket.LeadNotification)
}

// ConfigRef identifies the import config for an inbound event: either an
// explicit config id (custom integrations) or a platform+campaign pair.
type ConfigRef struct {
	ConfigID   string
	Platform   string
	CampaignID string
}

// SettlementService is the pipeline entry point. One call settles one
// lead event end to end.
type SettlementService struct {
	configs       ConfigStore
	leads         LeadStore
	ledger        SettlementLedger
	recharge      RechargeAgent
	notifications NotificationStore
	hub           NotificationHub
	logger        *zap.Logger
}

func NewSettlementService(configs ConfigStore, leads LeadStore, ledger SettlementLedger, recharge RechargeAgent, notifications NotificationStore, hub NotificationHub, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		configs:       configs,
		leads:         leads,
		ledger:        ledger,
		recharge:      recharge,
		notifications: notifications,
		hub:           hub,
		logger:        logger,
	}
}

// ProcessLead runs the settlement state machine: resolve config, ensure
// funds (with auto-recharge fallback), map, score, filter, persist the
// lead, debit the balance, finalize, notify.
//
// The balance check is advisory; the debit itself is the atomic gate. When
// the debit loses that race after the lead row exists, the lead flips to
// failed and the insufficient-funds rejection is returned. A redelivered
// event (same owner, platform and source lead id) is a no-op returning the
// original lead id.
func (s *SettlementService) ProcessLead(ctx context.Context, ref ConfigRef, payload map[string]any, sourceLeadID string) (string, error) {
	cfg, err := s.resolveConfig(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrConfigNotFound
		}
		return "", fmt.Errorf("resolve config: %w", err)
	}

	balance, err := s.ledger.GetBalance(ctx, cfg.UserID)
	if err != nil {
		return "", fmt.Errorf("read balance: %w", err)
	}
	if balance.AvailableCents < cfg.CostPerLeadCents {
		if cfg.AutoRecharge && cfg.RechargeAmountCents > 0 {
			if !s.recharge.AttemptRecharge(ctx, cfg.UserID, cfg.RechargeAmountCents) {
				return "", ErrAutoRechargeFailed
			}
		} else {
			return "", ErrInsufficientFunds
		}
	}

	mapping, err := cfg.Mapping()
	if err != nil {
		return "", fmt.Errorf("decode field mapping: %w", err)
	}
	lead := leadmap.Map(payload, mapping)
	score := scoring.Score(lead)
	if cfg.MinQualityScore > 0 && score < cfg.MinQualityScore {
		return "", ErrBelowQualityThreshold
	}

	regions, err := cfg.Regions()
	if err != nil {
		return "", fmt.Errorf("decode allowed regions: %w", err)
	}
	if len(regions) > 0 {
		// A lead with no resolvable location passes; only a present but
		// disallowed one blocks.
		if region := resolveRegion(lead); region != "" && !containsFold(regions, region) {
			return "", ErrRegionNotAllowed
		}
	}

	leadID := uuid.NewString()
	if sourceLeadID == "" {
		sourceLeadID = leadID
	}
	data, err := json.Marshal(lead)
	if err != nil {
		return "", fmt.Errorf("encode lead data: %w", err)
	}
	err = s.leads.Create(ctx, store.LeadInput{
		ID:           leadID,
		UserID:       cfg.UserID,
		ConfigID:     cfg.ID,
		CampaignID:   cfg.CampaignID,
		Platform:     cfg.Platform,
		SourceLeadID: sourceLeadID,
		Data:         string(data),
		QualityScore: score,
		CostCents:    cfg.CostPerLeadCents,
		Status:       store.LeadPending,
	})
	if store.IsUniqueViolation(err) {
		existing, lookupErr := s.leads.GetBySource(ctx, cfg.UserID, cfg.Platform, sourceLeadID)
		if lookupErr != nil {
			return "", fmt.Errorf("resolve duplicate lead: %w", lookupErr)
		}
		s.logger.Info("duplicate lead delivery ignored",
			zap.String("platform", cfg.Platform),
			zap.String("source_lead_id", sourceLeadID),
			zap.String("lead_id", existing.ID))
		return existing.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("persist lead: %w", err)
	}

	if err := s.ledger.Debit(ctx, cfg.UserID, cfg.CostPerLeadCents, leadID); err != nil {
		if flipErr := s.leads.UpdateStatus(ctx, leadID, store.LeadFailed); flipErr != nil {
			s.logger.Error("lead stuck pending after failed debit",
				zap.String("lead_id", leadID),
				zap.NamedError("debit_error", err),
				zap.NamedError("status_error", flipErr))
			return "", ErrSettlementInconsistent
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return "", ErrInsufficientFunds
		}
		return "", fmt.Errorf("debit lead %s: %w", leadID, err)
	}

	if err := s.leads.UpdateStatus(ctx, leadID, store.LeadDelivered); err != nil {
		s.logger.Error("lead debited but not finalized",
			zap.String("lead_id", leadID),
			zap.Error(err))
		return "", ErrSettlementInconsistent
	}

	s.notify(ctx, cfg, leadID, score)
	return leadID, nil
}

func (s *SettlementService) resolveConfig(ctx context.Context, ref ConfigRef) (store.ImportConfig, error) {
	if ref.ConfigID != "" {
		return s.configs.GetActiveByID(ctx, ref.ConfigID)
	}
	return s.configs.GetActiveByCampaign(ctx, ref.Platform, ref.CampaignID)
}

// notify is best-effort: a failed notification never fails the settlement.
func (s *SettlementService) notify(ctx context.Context, cfg store.ImportConfig, leadID string, score int) {
	title := "New lead received"
	message := fmt.Sprintf("A new %s lead for %s scored %d", cfg.Platform, cfg.CampaignName, score)
	payload, _ := json.Marshal(map[string]any{
		"lead_id":       leadID,
		"config_id":     cfg.ID,
		"campaign_id":   cfg.CampaignID,
		"quality_score": score,
	})
	err := s.notifications.Create(ctx, store.NotificationInput{
		ID:      uuid.NewString(),
		UserID:  cfg.UserID,
		Type:    "new_lead",
		Title:   title,
		Message: message,
		Payload: string(payload),
	})
	if err != nil {
		s.logger.Warn("notification write failed",
			zap.String("lead_id", leadID),
			zap.Error(err))
	}
	s.hub.BroadcastNotification(cfg.UserID, websocket.LeadNotification{
		LeadID:       leadID,
		Type:         "new_lead",
		Title:        title,
		Message:      message,
		QualityScore: score,
	})
}

func resolveRegion(lead map[string]any) string {
	if address, ok := lead["address"].(map[string]any); ok {
		if state, ok := address["state"].(string); ok && state != "" {
			return state
		}
	}
	if state, ok := lead["state"].(string); ok {
		return state
	}
	return ""
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
