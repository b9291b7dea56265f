package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadgate/internal/payments"
	"leadgate/internal/store"

	"go.uber.org/zap"
)

type stubChargeClient struct {
	result  payments.ChargeResult
	err     error
	charges int
	amount  int64
}

func (s *stubChargeClient) CreateAndConfirmCharge(ctx context.Context, amountCents int64, currency, customerRef, methodRef string) (payments.ChargeResult, error) {
	s.charges++
	s.amount = amountCents
	return s.result, s.err
}

type stubMethodStore struct {
	method store.PaymentMethod
	err    error
}

func (s stubMethodStore) GetDefault(ctx context.Context, userID string) (store.PaymentMethod, error) {
	return s.method, s.err
}

type stubCreditLedger struct {
	credits []store.TransactionInput
	err     error
}

func (s *stubCreditLedger) Credit(ctx context.Context, userID string, amountCents int64, txType, referenceID, description string) error {
	if s.err != nil {
		return s.err
	}
	s.credits = append(s.credits, store.TransactionInput{
		UserID:      userID,
		AmountCents: amountCents,
		Type:        txType,
		ReferenceID: referenceID,
		Description: description,
	})
	return nil
}

func defaultMethod() store.PaymentMethod {
	return store.PaymentMethod{
		ID:                  "pm-1",
		UserID:              "user-1",
		ProviderCustomerRef: "cus_123",
		ProviderMethodRef:   "pm_123",
		IsDefault:           true,
	}
}

func newRechargeService(methods PaymentMethodStore, charges ChargeClient, ledger Ledger) *RechargeService {
	return NewRechargeService(methods, charges, ledger, "usd", time.Second, zap.NewNop())
}

func TestAttemptRechargeSuccess(t *testing.T) {
	charges := &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeSucceeded, ChargeID: "pi_1"}}
	ledger := &stubCreditLedger{}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, ledger)

	if !svc.AttemptRecharge(context.Background(), "user-1", 5000) {
		t.Fatalf("expected recharge to succeed")
	}
	if charges.charges != 1 || charges.amount != 5000 {
		t.Fatalf("expected one charge of 5000")
	}
	if len(ledger.credits) != 1 {
		t.Fatalf("expected one credit")
	}
	credit := ledger.credits[0]
	if credit.Type != store.TxAutoRecharge {
		t.Fatalf("unexpected type %s", credit.Type)
	}
	if credit.ReferenceID != "pi_1" {
		t.Fatalf("credit should reference the charge id")
	}
}

func TestAttemptRechargeNoDefaultMethod(t *testing.T) {
	charges := &stubChargeClient{}
	svc := newRechargeService(stubMethodStore{err: store.ErrNoDefaultPaymentMethod}, charges, &stubCreditLedger{})

	if svc.AttemptRecharge(context.Background(), "user-1", 5000) {
		t.Fatalf("expected failure without a default method")
	}
	if charges.charges != 0 {
		t.Fatalf("no charge should be attempted")
	}
}

func TestAttemptRechargeDeclined(t *testing.T) {
	charges := &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeFailed}, err: errors.New("card declined")}
	ledger := &stubCreditLedger{}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, ledger)

	if svc.AttemptRecharge(context.Background(), "user-1", 5000) {
		t.Fatalf("expected failure on declined charge")
	}
	if len(ledger.credits) != 0 {
		t.Fatalf("declined charge must not credit")
	}
}

func TestAttemptRechargeRequiresActionIsFailure(t *testing.T) {
	charges := &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeRequiresAction, ChargeID: "pi_2"}}
	ledger := &stubCreditLedger{}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, ledger)

	if svc.AttemptRecharge(context.Background(), "user-1", 5000) {
		t.Fatalf("a charge needing manual action cannot fund an automatic recharge")
	}
	if len(ledger.credits) != 0 {
		t.Fatalf("incomplete charge must not credit")
	}
}

func TestAttemptRechargeCreditFailure(t *testing.T) {
	charges := &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeSucceeded, ChargeID: "pi_3"}}
	ledger := &stubCreditLedger{err: errors.New("db down")}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, ledger)

	if svc.AttemptRecharge(context.Background(), "user-1", 5000) {
		t.Fatalf("expected failure when the credit cannot be recorded")
	}
}

func TestAttemptRechargeNonPositiveAmount(t *testing.T) {
	charges := &stubChargeClient{}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, &stubCreditLedger{})
	if svc.AttemptRecharge(context.Background(), "user-1", 0) {
		t.Fatalf("zero amount should never charge")
	}
	if charges.charges != 0 {
		t.Fatalf("no charge should be attempted")
	}
}

func TestTopupSuccess(t *testing.T) {
	charges := &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeSucceeded, ChargeID: "pi_4"}}
	ledger := &stubCreditLedger{}
	svc := newRechargeService(stubMethodStore{method: defaultMethod()}, charges, ledger)

	chargeID, err := svc.Topup(context.Background(), "user-1", 2500)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if chargeID != "pi_4" {
		t.Fatalf("unexpected charge id %s", chargeID)
	}
	if ledger.credits[0].Type != store.TxPaymentRecharge {
		t.Fatalf("top-up should credit as payment_recharge")
	}
}

func TestTopupSurfacesErrors(t *testing.T) {
	svc := newRechargeService(stubMethodStore{err: store.ErrNoDefaultPaymentMethod}, &stubChargeClient{}, &stubCreditLedger{})
	if _, err := svc.Topup(context.Background(), "user-1", 2500); !errors.Is(err, store.ErrNoDefaultPaymentMethod) {
		t.Fatalf("expected ErrNoDefaultPaymentMethod, got %v", err)
	}

	svc = newRechargeService(stubMethodStore{method: defaultMethod()}, &stubChargeClient{result: payments.ChargeResult{Status: payments.ChargeFailed}}, &stubCreditLedger{})
	if _, err := svc.Topup(context.Background(), "user-1", 2500); !errors.Is(err, ErrChargeNotCompleted) {
		t.Fatalf("expected ErrChargeNotCompleted, got %v", err)
	}

	svc = newRechargeService(stubMethodStore{method: defaultMethod()}, &stubChargeClient{}, &stubCreditLedger{})
	if _, err := svc.Topup(context.Background(), "user-1", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
