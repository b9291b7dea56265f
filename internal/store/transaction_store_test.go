package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestTransactionStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[2] != int64(-500) || args[3] != TxDeduction {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	err := store.Create(ctx, execer, TransactionInput{
		ID: "tx-1", UserID: "user-1", AmountCents: -500,
		Type: TxDeduction, Description: "Lead delivery charge", ReferenceID: "lead-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreSumByUser(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*int64) = 9500
			return nil
		},
	})
	sum, err := store.SumByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 9500 {
		t.Fatalf("unexpected sum: %d", sum)
	}
}
