package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"

	"leadgate/internal/metrics"
	"leadgate/internal/services"
	"leadgate/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Per-event outcomes written to the webhook audit trail. One inbound
// request can fan out into several events, each with its own outcome.
const (
	outcomeDelivered         = "delivered"
	outcomeConfigNotFound    = "config_not_found"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomeRechargeFailed    = "auto_recharge_failed"
	outcomeBelowQuality      = "below_quality"
	outcomeRegionBlocked     = "region_blocked"
	outcomeFetchFailed       = "fetch_failed"
	outcomeInconsistent      = "inconsistent"
	outcomeError             = "error"
)

func (h *Handler) NotImplementedWebhook(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotImplemented, "platform ingestion not implemented")
}

// settleEvent runs one webhook event through the pipeline and records the
// outcome. The settlement error never propagates to the HTTP response: a
// structurally valid delivery is always acknowledged so the platform does
// not retry forever.
func (h *Handler) settleEvent(ctx context.Context, platform, configID, sourceLeadID string, payload map[string]any) {
	_, err := h.settlement.ProcessLead(ctx, services.ConfigRef{ConfigID: configID}, payload, sourceLeadID)
	h.recordEvent(ctx, platform, configID, sourceLeadID, err)
}

func (h *Handler) recordEvent(ctx context.Context, platform, configID, sourceLeadID string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
		h.logger.Warn("lead settlement rejected",
			zap.String("platform", platform),
			zap.String("config_id", configID),
			zap.String("source_lead_id", sourceLeadID),
			zap.Error(err))
	}
	h.recordOutcome(ctx, platform, configID, sourceLeadID, settlementOutcome(err), detail)
}

func (h *Handler) recordOutcome(ctx context.Context, platform, configID, sourceLeadID, outcome, detail string) {
	metrics.Default.Settlements.WithLabelValues(platform, outcome).Inc()
	if recordErr := h.events.Record(ctx, store.EventLogInput{
		ID:           uuid.NewString(),
		Platform:     platform,
		ConfigID:     configID,
		SourceLeadID: sourceLeadID,
		Outcome:      outcome,
		Detail:       detail,
	}); recordErr != nil {
		h.logger.Warn("webhook event log write failed", zap.Error(recordErr))
	}
}

// errConfigLookup folds a missing-row lookup into the pipeline's own
// rejection so the audit trail uses one vocabulary.
func errConfigLookup(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return services.ErrConfigNotFound
	}
	return err
}

func settlementOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeDelivered
	case errors.Is(err, services.ErrConfigNotFound):
		return outcomeConfigNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		return outcomeInsufficientFunds
	case errors.Is(err, services.ErrAutoRechargeFailed):
		return outcomeRechargeFailed
	case errors.Is(err, services.ErrBelowQualityThreshold):
		return outcomeBelowQuality
	case errors.Is(err, services.ErrRegionNotAllowed):
		return outcomeRegionBlocked
	case errors.Is(err, services.ErrSettlementInconsistent):
		return outcomeInconsistent
	default:
		return outcomeError
	}
}

func hmacSHA256Hex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(expected, presented string) bool {
	return hmac.Equal([]byte(expected), []byte(presented))
}
