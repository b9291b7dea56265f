package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"leadgate/internal/middleware"
	"leadgate/internal/services"
	"leadgate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"available":                balance.AvailableCents,
		"available_formatted":      centsToMoney(balance.AvailableCents),
		"auto_recharge":            balance.AutoRecharge,
		"recharge_threshold_cents": balance.RechargeThresholdCents,
		"recharge_amount_cents":    balance.RechargeAmountCents,
		"last_recharge_at":         balance.LastRechargeAt,
	})
}

type rechargeRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountCents, err := parseAmountCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	chargeID, err := h.recharge.Topup(r.Context(), userID, amountCents)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoDefaultPaymentMethod):
			respondError(w, http.StatusBadRequest, "no_default_payment_method")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, services.ErrChargeNotCompleted):
			respondError(w, http.StatusPaymentRequired, "charge_not_completed")
		default:
			respondError(w, http.StatusInternalServerError, "recharge_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"charge_id": chargeID,
		"amount":    centsToMoney(amountCents),
	})
}

type rechargeSettingsRequest struct {
	AutoRecharge bool   `json:"auto_recharge"`
	Threshold    string `json:"threshold"`
	Amount       string `json:"amount"`
}

func (h *Handler) UpdateRechargeSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rechargeSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	thresholdCents, err := parseSettingCents(req.Threshold)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_threshold")
		return
	}
	amountCents, err := parseSettingCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if req.AutoRecharge && amountCents <= 0 {
		respondError(w, http.StatusBadRequest, "amount_required_for_auto_recharge")
		return
	}
	if _, err := h.ledger.GetBalance(r.Context(), userID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	if err := h.balances.UpdateRechargeSettings(r.Context(), userID, req.AutoRecharge, thresholdCents, amountCents); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update settings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"auto_recharge":            req.AutoRecharge,
		"recharge_threshold_cents": thresholdCents,
		"recharge_amount_cents":    amountCents,
	})
}

type paymentMethodRequest struct {
	ProviderCustomerRef string `json:"provider_customer_ref"`
	ProviderMethodRef   string `json:"provider_method_ref"`
	Brand               string `json:"brand"`
	Last4               string `json:"last4"`
	MakeDefault         bool   `json:"make_default"`
}

func (h *Handler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ProviderCustomerRef == "" || req.ProviderMethodRef == "" {
		respondError(w, http.StatusBadRequest, "provider references are required")
		return
	}
	methodID := uuid.NewString()
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if req.MakeDefault {
			if err := h.methods.ClearDefault(r.Context(), tx, userID); err != nil {
				return err
			}
		}
		return h.methods.Create(r.Context(), tx, store.PaymentMethod{
			ID:                  methodID,
			UserID:              userID,
			ProviderCustomerRef: req.ProviderCustomerRef,
			ProviderMethodRef:   req.ProviderMethodRef,
			Brand:               req.Brand,
			Last4:               req.Last4,
			IsDefault:           req.MakeDefault,
		})
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save payment method")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": methodID})
}

func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	methods, err := h.methods.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payment methods")
		return
	}
	normalized := make([]map[string]any, 0, len(methods))
	for _, method := range methods {
		normalized = append(normalized, map[string]any{
			"id":         method.ID,
			"brand":      method.Brand,
			"last4":      method.Last4,
			"is_default": method.IsDefault,
			"created_at": method.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	txType := query.Get("type")
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	transactions, err := h.transactions.ListByUser(r.Context(), userID, txType, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	for _, row := range transactions {
		if cents, ok := row["amount_cents"].(int64); ok {
			row["amount"] = centsToMoney(cents)
		}
	}
	respondJSON(w, http.StatusOK, transactions)
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
