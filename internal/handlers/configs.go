package handlers

import (
	"encoding/json"
	"net/http"

	"leadgate/internal/middleware"
	"leadgate/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type createConfigRequest struct {
	Platform        string            `json:"platform"`
	CampaignID      string            `json:"campaign_id"`
	CampaignName    string            `json:"campaign_name"`
	VerifyToken     string            `json:"verify_token"`
	WebhookSecret   string            `json:"webhook_secret"`
	AccessToken     string            `json:"access_token"`
	FieldMapping    map[string]string `json:"field_mapping"`
	CostPerLead     string            `json:"cost_per_lead"`
	MinQualityScore int               `json:"min_quality_score"`
	AllowedRegions  []string          `json:"allowed_regions"`
	AutoRecharge    bool              `json:"auto_recharge"`
	RechargeAmount  string            `json:"recharge_amount"`
}

func (h *Handler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !store.ValidPlatform(req.Platform) {
		respondError(w, http.StatusBadRequest, "unknown platform")
		return
	}
	if req.CampaignID == "" {
		respondError(w, http.StatusBadRequest, "campaign_id is required")
		return
	}
	costCents, err := parseAmountCents(req.CostPerLead)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cost_per_lead")
		return
	}
	if req.MinQualityScore < 0 || req.MinQualityScore > 100 {
		respondError(w, http.StatusBadRequest, "min_quality_score must be 0-100")
		return
	}
	rechargeCents, err := parseSettingCents(req.RechargeAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_recharge_amount")
		return
	}
	if req.AutoRecharge && rechargeCents <= 0 {
		respondError(w, http.StatusBadRequest, "recharge_amount_required_for_auto_recharge")
		return
	}
	mapping := req.FieldMapping
	if mapping == nil {
		mapping = map[string]string{}
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid field_mapping")
		return
	}
	regionsJSON, err := json.Marshal(req.AllowedRegions)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid allowed_regions")
		return
	}
	configID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.configs.Create(r.Context(), tx, store.ImportConfig{
			ID:                  configID,
			UserID:              userID,
			Platform:            req.Platform,
			CampaignID:          req.CampaignID,
			CampaignName:        req.CampaignName,
			VerifyToken:         req.VerifyToken,
			WebhookSecret:       req.WebhookSecret,
			AccessToken:         req.AccessToken,
			FieldMapping:        string(mappingJSON),
			CostPerLeadCents:    costCents,
			MinQualityScore:     req.MinQualityScore,
			AllowedRegions:      string(regionsJSON),
			AutoRecharge:        req.AutoRecharge,
			RechargeAmountCents: rechargeCents,
			Active:              true,
		})
	})
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "an active config already exists for this campaign")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to create config")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": configID})
}

func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	configs, err := h.configs.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load configs")
		return
	}
	normalized := make([]map[string]any, 0, len(configs))
	for _, cfg := range configs {
		mapping, _ := cfg.Mapping()
		regions, _ := cfg.Regions()
		normalized = append(normalized, map[string]any{
			"id":                cfg.ID,
			"platform":          cfg.Platform,
			"campaign_id":       cfg.CampaignID,
			"campaign_name":     cfg.CampaignName,
			"field_mapping":     mapping,
			"cost_per_lead":     centsToMoney(cfg.CostPerLeadCents),
			"min_quality_score": cfg.MinQualityScore,
			"allowed_regions":   regions,
			"auto_recharge":     cfg.AutoRecharge,
			"recharge_amount":   centsToMoney(cfg.RechargeAmountCents),
			"active":            cfg.Active,
			"created_at":        cfg.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) DeactivateConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	configID := chi.URLParam(r, "id")
	rows, err := h.configs.Deactivate(r.Context(), configID, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to deactivate config")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "config not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
