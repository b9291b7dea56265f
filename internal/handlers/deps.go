package handlers

import (
	"context"

	"leadgate/internal/services"
	"leadgate/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type ConfigStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ImportConfig) error
	GetActiveByID(ctx context.Context, configID string) (store.ImportConfig, error)
	GetActiveByCampaign(ctx context.Context, platform, campaignID string) (store.ImportConfig, error)
	ListByUser(ctx context.Context, userID string) ([]store.ImportConfig, error)
	Deactivate(ctx context.Context, configID, userID string) (int64, error)
}

type LeadStore interface {
	GetByID(ctx context.Context, leadID string) (store.Lead, error)
	ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]map[string]any, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error)
	SumByUser(ctx context.Context, userID string) (int64, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]map[string]any, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type PaymentMethodStore interface {
	Create(ctx context.Context, tx store.Execer, input store.PaymentMethod) error
	ClearDefault(ctx context.Context, tx store.Execer, userID string) error
	ListByUser(ctx context.Context, userID string) ([]store.PaymentMethod, error)
}

type EventLogStore interface {
	Record(ctx context.Context, input store.EventLogInput) error
	List(ctx context.Context, platform string, limit, offset int) ([]map[string]any, error)
}

type BalanceSettingsStore interface {
	UpdateRechargeSettings(ctx context.Context, userID string, autoRecharge bool, thresholdCents, rechargeCents int64) error
}

type LedgerService interface {
	GetBalance(ctx context.Context, userID string) (store.Balance, error)
}

type RechargeService interface {
	Topup(ctx context.Context, userID string, amountCents int64) (string, error)
}

type SettlementService interface {
	ProcessLead(ctx context.Context, ref services.ConfigRef, payload map[string]any, sourceLeadID string) (string, error)
}

// LeadFetcher pulls the full lead record for platforms whose webhooks only
// deliver a lead reference.
type LeadFetcher interface {
	FetchLead(ctx context.Context, leadID, accessToken string) (map[string]any, error)
}
