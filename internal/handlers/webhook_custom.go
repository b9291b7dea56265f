package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"leadgate/internal/metrics"
	"leadgate/internal/store"

	"github.com/go-chi/chi/v5"
)

// CustomWebhook is the generic front door for integrations that post a
// bare lead payload. The caller authenticates with the config's webhook
// secret as a bearer token.
func (h *Handler) CustomWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.Default.WebhookRequests.WithLabelValues(store.PlatformCustom).Inc()
	configID := chi.URLParam(r, "configID")
	cfg, err := h.configs.GetActiveByID(r.Context(), configID)
	if err != nil {
		respondError(w, http.StatusNotFound, "config not found")
		return
	}
	token := ""
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cfg.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.WebhookSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}
	var payload map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sourceLeadID := valueToString(payload["lead_id"])
	if sourceLeadID == "" {
		sourceLeadID = valueToString(payload["id"])
	}
	h.settleEvent(r.Context(), store.PlatformCustom, cfg.ID, sourceLeadID, payload)
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
