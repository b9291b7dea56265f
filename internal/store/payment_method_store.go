package store

import (
	"context"
	"errors"
)

// ErrNoDefaultPaymentMethod is returned when an account has zero or more
// than one payment method flagged as default. Ambiguity is treated the same
// as absence: the auto-recharge agent must not guess.
var ErrNoDefaultPaymentMethod = errors.New("no unambiguous default payment method")

type PaymentMethodStore struct {
	db DB
}

type PaymentMethod struct {
	ID                  string `db:"id"`
	UserID              string `db:"user_id"`
	ProviderCustomerRef string `db:"provider_customer_ref"`
	ProviderMethodRef   string `db:"provider_method_ref"`
	Brand               string `db:"brand"`
	Last4               string `db:"last4"`
	IsDefault           bool   `db:"is_default"`
	CreatedAt           any    `db:"created_at"`
}

func NewPaymentMethodStore(db DB) *PaymentMethodStore {
	return &PaymentMethodStore{db: db}
}

func (s *PaymentMethodStore) Create(ctx context.Context, tx Execer, input PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, user_id, provider_customer_ref, provider_method_ref, brand, last4, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.ProviderCustomerRef, input.ProviderMethodRef,
		input.Brand, input.Last4, input.IsDefault,
	)
	return err
}

// ClearDefault unsets the default flag on all of a user's methods, so a
// newly attached default is the only one.
func (s *PaymentMethodStore) ClearDefault(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1
	`, userID)
	return err
}

func (s *PaymentMethodStore) GetDefault(ctx context.Context, userID string) (PaymentMethod, error) {
	var rows []PaymentMethod
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, provider_customer_ref, provider_method_ref, brand, last4, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1 AND is_default
	`, userID)
	if err != nil {
		return PaymentMethod{}, err
	}
	if len(rows) != 1 {
		return PaymentMethod{}, ErrNoDefaultPaymentMethod
	}
	return rows[0], nil
}

func (s *PaymentMethodStore) ListByUser(ctx context.Context, userID string) ([]PaymentMethod, error) {
	var rows []PaymentMethod
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, provider_customer_ref, provider_method_ref, brand, last4, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
