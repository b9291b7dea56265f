package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"leadgate/internal/metrics"
	"leadgate/internal/store"

	"go.uber.org/zap"
)

// MetaVerify answers the one-time subscription handshake: echo the
// challenge when the verify token matches.
func (h *Handler) MetaVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.MetaVerifyToken)) != 1 {
		respondError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

type metaWebhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				FormID    string `json:"form_id"`
				LeadgenID string `json:"leadgen_id"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// MetaWebhook ingests leadgen change notifications. The payload only names
// the lead; the full record comes from the Graph API using the config's
// page access token.
func (h *Handler) MetaWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.Default.WebhookRequests.WithLabelValues(store.PlatformMeta).Inc()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read body")
		return
	}
	if h.cfg.MetaAppSecret != "" {
		signature := strings.TrimPrefix(r.Header.Get("X-Hub-Signature-256"), "sha256=")
		if !validSignature(hmacSHA256Hex(h.cfg.MetaAppSecret, body), signature) {
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}
	var event metaWebhookBody
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" {
				continue
			}
			h.processMetaLead(r.Context(), change.Value.FormID, change.Value.LeadgenID)
		}
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) processMetaLead(ctx context.Context, formID, leadgenID string) {
	cfg, err := h.configs.GetActiveByCampaign(ctx, store.PlatformMeta, formID)
	if err != nil {
		h.recordEvent(ctx, store.PlatformMeta, "", leadgenID, errConfigLookup(err))
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, h.cfg.LeadFetchTimeout)
	defer cancel()
	payload, err := h.leadFetcher.FetchLead(fetchCtx, leadgenID, cfg.AccessToken)
	if err != nil {
		h.logger.Warn("lead fetch failed",
			zap.String("form_id", formID),
			zap.String("leadgen_id", leadgenID),
			zap.Error(err))
		h.recordOutcome(ctx, store.PlatformMeta, cfg.ID, leadgenID, outcomeFetchFailed, err.Error())
		return
	}
	h.settleEvent(ctx, store.PlatformMeta, cfg.ID, leadgenID, payload)
}
