package services

import (
	"context"
	"time"

	"leadgate/internal/metrics"
	"leadgate/internal/payments"
	"leadgate/internal/store"

	"go.uber.org/zap"
)

type ChargeClient interface {
	CreateAndConfirmCharge(ctx context.Context, amountCents int64, currency, customerRef, methodRef string) (payments.ChargeResult, error)
}

type PaymentMethodStore interface {
	GetDefault(ctx context.Context, userID string) (store.PaymentMethod, error)
}

type Ledger interface {
	Credit(ctx context.Context, userID string, amountCents int64, txType, referenceID, description string) error
}

// RechargeService tops up a balance through the card processor.
type RechargeService struct {
	methods       PaymentMethodStore
	charges       ChargeClient
	ledger        Ledger
	currency      string
	chargeTimeout time.Duration
	logger        *zap.Logger
}

func NewRechargeService(methods PaymentMethodStore, charges ChargeClient, ledger Ledger, currency string, chargeTimeout time.Duration, logger *zap.Logger) *RechargeService {
	return &RechargeService{
		methods:       methods,
		charges:       charges,
		ledger:        ledger,
		currency:      currency,
		chargeTimeout: chargeTimeout,
		logger:        logger,
	}
}

// AttemptRecharge charges the account's default payment method and credits
// the ledger on immediate success. Every failure mode collapses to false:
// callers never see the processor's errors.
func (s *RechargeService) AttemptRecharge(ctx context.Context, userID string, amountCents int64) bool {
	if amountCents <= 0 {
		return false
	}
	method, err := s.methods.GetDefault(ctx, userID)
	if err != nil {
		s.logger.Info("auto-recharge skipped, no default payment method",
			zap.String("user_id", userID), zap.Error(err))
		metrics.Default.RechargeAttempts.WithLabelValues("auto", "no_method").Inc()
		return false
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()
	result, err := s.charges.CreateAndConfirmCharge(chargeCtx, amountCents, s.currency, method.ProviderCustomerRef, method.ProviderMethodRef)
	if err != nil || result.Status != payments.ChargeSucceeded {
		s.logger.Warn("auto-recharge charge did not complete",
			zap.String("user_id", userID),
			zap.Int64("amount_cents", amountCents),
			zap.String("status", string(result.Status)),
			zap.Error(err))
		metrics.Default.RechargeAttempts.WithLabelValues("auto", "declined").Inc()
		return false
	}

	if err := s.ledger.Credit(ctx, userID, amountCents, store.TxAutoRecharge, result.ChargeID, "Automatic balance recharge"); err != nil {
		// The charge landed but the credit did not. The processor charge id
		// in the log is the reconciliation handle.
		s.logger.Error("auto-recharge credit failed after successful charge",
			zap.String("user_id", userID),
			zap.String("charge_id", result.ChargeID),
			zap.Error(err))
		metrics.Default.RechargeAttempts.WithLabelValues("auto", "credit_failed").Inc()
		return false
	}

	metrics.Default.RechargeAttempts.WithLabelValues("auto", "success").Inc()
	return true
}

// Topup is the user-initiated variant used by the billing API. Unlike
// AttemptRecharge it reports errors, since there is a caller to show them
// to.
func (s *RechargeService) Topup(ctx context.Context, userID string, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}
	method, err := s.methods.GetDefault(ctx, userID)
	if err != nil {
		return "", err
	}
	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()
	result, err := s.charges.CreateAndConfirmCharge(chargeCtx, amountCents, s.currency, method.ProviderCustomerRef, method.ProviderMethodRef)
	if err != nil {
		metrics.Default.RechargeAttempts.WithLabelValues("manual", "declined").Inc()
		return "", err
	}
	if result.Status != payments.ChargeSucceeded {
		metrics.Default.RechargeAttempts.WithLabelValues("manual", "declined").Inc()
		return "", ErrChargeNotCompleted
	}
	if err := s.ledger.Credit(ctx, userID, amountCents, store.TxPaymentRecharge, result.ChargeID, "Balance top-up"); err != nil {
		s.logger.Error("top-up credit failed after successful charge",
			zap.String("user_id", userID),
			zap.String("charge_id", result.ChargeID),
			zap.Error(err))
		metrics.Default.RechargeAttempts.WithLabelValues("manual", "credit_failed").Inc()
		return "", err
	}
	metrics.Default.RechargeAttempts.WithLabelValues("manual", "success").Inc()
	return result.ChargeID, nil
}
