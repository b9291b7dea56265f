package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"leadgate/internal/middleware"
	"leadgate/internal/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	status := query.Get("status")
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	leads, err := h.leads.ListByUser(r.Context(), userID, status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load leads")
		return
	}
	for _, row := range leads {
		if cents, ok := row["cost_cents"].(int64); ok {
			row["cost"] = centsToMoney(cents)
		}
	}
	respondJSON(w, http.StatusOK, leads)
}

func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	leadID := chi.URLParam(r, "id")
	lead, err := h.leads.GetByID(r.Context(), leadID)
	if err != nil || lead.UserID != userID {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	var data map[string]any
	_ = json.Unmarshal([]byte(lead.Data), &data)
	respondJSON(w, http.StatusOK, map[string]any{
		"id":             lead.ID,
		"config_id":      lead.ConfigID,
		"campaign_id":    lead.CampaignID,
		"platform":       lead.Platform,
		"source_lead_id": lead.SourceLeadID,
		"data":           data,
		"quality_score":  lead.QualityScore,
		"cost":           centsToMoney(lead.CostCents),
		"status":         lead.Status,
		"created_at":     lead.CreatedAt,
		"updated_at":     lead.UpdatedAt,
	})
}

type settleLeadRequest struct {
	ConfigID     string         `json:"config_id"`
	SourceLeadID string         `json:"source_lead_id"`
	Payload      map[string]any `json:"payload"`
}

// SettleLead pushes a lead through the settlement pipeline directly,
// bypassing the platform front doors. Used for manual imports and backfills
// of an account's own configs.
func (h *Handler) SettleLead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req settleLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ConfigID == "" || req.Payload == nil {
		respondError(w, http.StatusBadRequest, "config_id and payload are required")
		return
	}
	cfg, err := h.configs.GetActiveByID(r.Context(), req.ConfigID)
	if err != nil || cfg.UserID != userID {
		respondError(w, http.StatusNotFound, "config not found")
		return
	}
	leadID, err := h.settlement.ProcessLead(r.Context(), services.ConfigRef{ConfigID: req.ConfigID}, req.Payload, req.SourceLeadID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConfigNotFound):
			respondError(w, http.StatusNotFound, "config_not_found")
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusPaymentRequired, "insufficient_balance")
		case errors.Is(err, services.ErrAutoRechargeFailed):
			respondError(w, http.StatusPaymentRequired, "auto_recharge_failed")
		case errors.Is(err, services.ErrBelowQualityThreshold):
			respondError(w, http.StatusUnprocessableEntity, "below_quality_threshold")
		case errors.Is(err, services.ErrRegionNotAllowed):
			respondError(w, http.StatusUnprocessableEntity, "region_not_allowed")
		default:
			respondError(w, http.StatusInternalServerError, "settlement_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"lead_id": leadID})
}
