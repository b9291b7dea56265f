package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"leadgate/internal/metrics"
	"leadgate/internal/store"
)

type tiktokWebhookBody struct {
	FormID string `json:"form_id"`
	Leads  []struct {
		LeadID     string         `json:"lead_id"`
		Properties map[string]any `json:"properties"`
	} `json:"leads"`
}

// TikTokWebhook ingests lead deliveries that carry the full lead record
// inline. The request is authenticated with an HMAC of the raw body keyed
// by the config's webhook secret.
func (h *Handler) TikTokWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.Default.WebhookRequests.WithLabelValues(store.PlatformTikTok).Inc()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read body")
		return
	}
	var event tiktokWebhookBody
	if err := json.Unmarshal(body, &event); err != nil || event.FormID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cfg, err := h.configs.GetActiveByCampaign(r.Context(), store.PlatformTikTok, event.FormID)
	if err != nil {
		h.recordEvent(r.Context(), store.PlatformTikTok, "", event.FormID, errConfigLookup(err))
		// Acknowledged anyway: an unknown form is not the sender's problem.
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	if cfg.WebhookSecret != "" {
		signature := r.Header.Get("X-TikTok-Signature")
		if !validSignature(hmacSHA256Hex(cfg.WebhookSecret, body), signature) {
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}
	for _, lead := range event.Leads {
		h.settleEvent(r.Context(), store.PlatformTikTok, cfg.ID, lead.LeadID, lead.Properties)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
