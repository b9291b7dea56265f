package services

import (
	"context"
	"fmt"

	"leadgate/internal/db"
	"leadgate/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BalanceStore interface {
	Ensure(ctx context.Context, userID string, thresholdCents, rechargeCents int64) error
	Get(ctx context.Context, userID string) (store.Balance, error)
	Debit(ctx context.Context, tx store.Execer, userID string, amountCents int64) (int64, error)
	Credit(ctx context.Context, tx store.Execer, userID string, amountCents int64, markRecharge bool) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

// LedgerService owns every balance mutation. Nothing else writes the
// balances or transactions tables.
type LedgerService struct {
	txRunner              db.TxRunner
	balances              BalanceStore
	transactions          TransactionStore
	defaultThresholdCents int64
	defaultRechargeCents  int64
}

func NewLedgerService(txRunner db.TxRunner, balances BalanceStore, transactions TransactionStore, defaultThresholdCents, defaultRechargeCents int64) *LedgerService {
	return &LedgerService{
		txRunner:              txRunner,
		balances:              balances,
		transactions:          transactions,
		defaultThresholdCents: defaultThresholdCents,
		defaultRechargeCents:  defaultRechargeCents,
	}
}

// GetBalance returns the account balance, creating a zero row with default
// recharge settings on first access.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (store.Balance, error) {
	if err := s.balances.Ensure(ctx, userID, s.defaultThresholdCents, s.defaultRechargeCents); err != nil {
		return store.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	return s.balances.Get(ctx, userID)
}

// Debit atomically takes amountCents from the balance and appends the
// matching deduction transaction. Returns ErrInsufficientFunds when the
// balance cannot cover the amount; the conditional update in the store is
// what makes two racing debits safe.
func (s *LedgerService) Debit(ctx context.Context, userID string, amountCents int64, leadID string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.balances.Debit(ctx, tx, userID, amountCents)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInsufficientFunds
		}
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          uuid.NewString(),
			UserID:      userID,
			AmountCents: -amountCents,
			Type:        store.TxDeduction,
			Description: "Lead delivery charge",
			ReferenceID: leadID,
		})
	})
}

// Credit adds amountCents and appends the matching transaction. Recharge
// credits also stamp last_recharge_at.
func (s *LedgerService) Credit(ctx context.Context, userID string, amountCents int64, txType, referenceID, description string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	markRecharge := txType == store.TxAutoRecharge || txType == store.TxPaymentRecharge
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.balances.Credit(ctx, tx, userID, amountCents, markRecharge); err != nil {
			return err
		}
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          uuid.NewString(),
			UserID:      userID,
			AmountCents: amountCents,
			Type:        txType,
			Description: description,
			ReferenceID: referenceID,
		})
	})
}
