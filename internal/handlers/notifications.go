package handlers

import (
	"net/http"
	"strings"

	"leadgate/internal/auth"
	"leadgate/internal/middleware"
	"leadgate/internal/websocket"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	unreadOnly := query.Get("unread") == "true"
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	notifications, err := h.notifications.ListByUser(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notificationID := chi.URLParam(r, "id")
	if err := h.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	platform := query.Get("platform")
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 50)
	offset := (page - 1) * limit
	events, err := h.events.List(r.Context(), platform, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// WSNotifications upgrades to a websocket stream of settlement
// notifications. Browsers cannot set headers on websocket dials, so the
// token also comes through the query string.
func (h *Handler) WSNotifications(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
