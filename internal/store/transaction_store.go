package store

import (
	"context"
	"fmt"
)

// Transaction types. Rows are append-only: there is no update path.
const (
	TxDeduction       = "deduction"
	TxPaymentRecharge = "payment_recharge"
	TxAutoRecharge    = "auto_recharge"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID          string
	UserID      string
	AmountCents int64
	Type        string
	Description string
	ReferenceID string
}

type transactionRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	AmountCents int64  `db:"amount_cents"`
	Type        string `db:"type"`
	Description string `db:"description"`
	ReferenceID string `db:"reference_id"`
	CreatedAt   any    `db:"created_at"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO transactions (id, user_id, amount_cents, type, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.AmountCents, input.Type, input.Description, input.ReferenceID,
	)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error) {
	var rows []transactionRow
	query := `
		SELECT id, user_id, amount_cents, type, description, reference_id, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	param := 2
	if txType != "" {
		query += " AND type = $2"
		args = append(args, txType)
		param = 3
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", param, param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"id":           row.ID,
			"user_id":      row.UserID,
			"amount_cents": row.AmountCents,
			"type":         row.Type,
			"description":  row.Description,
			"reference_id": row.ReferenceID,
			"created_at":   row.CreatedAt,
		})
	}
	return out, nil
}

func (s *TransactionStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = $1
	`, userID)
	return sum, err
}
