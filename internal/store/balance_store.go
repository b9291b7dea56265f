package store

import (
	"context"
	"time"
)

type BalanceStore struct {
	db DB
}

type Balance struct {
	UserID                 string     `db:"user_id"`
	AvailableCents         int64      `db:"available_cents"`
	ReservedCents          int64      `db:"reserved_cents"`
	AutoRecharge           bool       `db:"auto_recharge"`
	RechargeThresholdCents int64      `db:"recharge_threshold_cents"`
	RechargeAmountCents    int64      `db:"recharge_amount_cents"`
	LastRechargeAt         *time.Time `db:"last_recharge_at"`
}

func NewBalanceStore(db DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// Ensure creates a zero balance with default recharge settings if none
// exists. Safe under concurrent first access.
func (s *BalanceStore) Ensure(ctx context.Context, userID string, thresholdCents, rechargeCents int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, available_cents, reserved_cents, auto_recharge, recharge_threshold_cents, recharge_amount_cents)
		VALUES ($1, 0, 0, FALSE, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, thresholdCents, rechargeCents)
	return err
}

func (s *BalanceStore) Get(ctx context.Context, userID string) (Balance, error) {
	var row Balance
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, available_cents, reserved_cents, auto_recharge, recharge_threshold_cents, recharge_amount_cents, last_recharge_at
		FROM balances
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return Balance{}, err
	}
	return row, nil
}

// Debit decrements the available balance only if the result stays >= 0.
// Returns the number of rows updated; zero means insufficient funds. The
// guard in the WHERE clause is what keeps two concurrent debits from both
// passing the zero floor.
func (s *BalanceStore) Debit(ctx context.Context, tx Execer, userID string, amountCents int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET available_cents = available_cents - $1, updated_at = NOW()
		WHERE user_id = $2 AND available_cents >= $1
	`, amountCents, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BalanceStore) Credit(ctx context.Context, tx Execer, userID string, amountCents int64, markRecharge bool) error {
	if markRecharge {
		_, err := tx.ExecContext(ctx, `
			UPDATE balances
			SET available_cents = available_cents + $1, last_recharge_at = NOW(), updated_at = NOW()
			WHERE user_id = $2
		`, amountCents, userID)
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET available_cents = available_cents + $1, updated_at = NOW()
		WHERE user_id = $2
	`, amountCents, userID)
	return err
}

func (s *BalanceStore) UpdateRechargeSettings(ctx context.Context, userID string, autoRecharge bool, thresholdCents, rechargeCents int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE balances
		SET auto_recharge = $1, recharge_threshold_cents = $2, recharge_amount_cents = $3, updated_at = NOW()
		WHERE user_id = $4
	`, autoRecharge, thresholdCents, rechargeCents, userID)
	return err
}
