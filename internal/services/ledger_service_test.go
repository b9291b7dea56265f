package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"leadgate/internal/store"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type stubBalanceStore struct {
	balance   store.Balance
	getErr    error
	ensureErr error

	// available is the racing-debit model: Debit decrements it atomically
	// and reports zero rows when it would go negative.
	available int64
	debitErr  error
	credits   []int64
	marks     []bool
}

func (s *stubBalanceStore) Ensure(ctx context.Context, userID string, thresholdCents, rechargeCents int64) error {
	return s.ensureErr
}

func (s *stubBalanceStore) Get(ctx context.Context, userID string) (store.Balance, error) {
	return s.balance, s.getErr
}

func (s *stubBalanceStore) Debit(ctx context.Context, tx store.Execer, userID string, amountCents int64) (int64, error) {
	if s.debitErr != nil {
		return 0, s.debitErr
	}
	for {
		current := atomic.LoadInt64(&s.available)
		if current < amountCents {
			return 0, nil
		}
		if atomic.CompareAndSwapInt64(&s.available, current, current-amountCents) {
			return 1, nil
		}
	}
}

func (s *stubBalanceStore) Credit(ctx context.Context, tx store.Execer, userID string, amountCents int64, markRecharge bool) error {
	s.credits = append(s.credits, amountCents)
	s.marks = append(s.marks, markRecharge)
	return nil
}

type stubTransactionStore struct {
	mu      sync.Mutex
	created []store.TransactionInput
	err     error
}

func (s *stubTransactionStore) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.created = append(s.created, input)
	s.mu.Unlock()
	return nil
}

func TestLedgerDebitAppendsDeduction(t *testing.T) {
	balances := &stubBalanceStore{available: 1000}
	transactions := &stubTransactionStore{}
	svc := NewLedgerService(fakeTxRunner{}, balances, transactions, 1000, 5000)

	if err := svc.Debit(context.Background(), "user-1", 500, "lead-1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balances.available != 500 {
		t.Fatalf("expected 500 remaining, got %d", balances.available)
	}
	if len(transactions.created) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions.created))
	}
	txn := transactions.created[0]
	if txn.AmountCents != -500 {
		t.Fatalf("deduction should be negative, got %d", txn.AmountCents)
	}
	if txn.Type != store.TxDeduction {
		t.Fatalf("unexpected type %s", txn.Type)
	}
	if txn.ReferenceID != "lead-1" {
		t.Fatalf("deduction should reference the lead")
	}
}

func TestLedgerDebitInsufficient(t *testing.T) {
	balances := &stubBalanceStore{available: 100}
	transactions := &stubTransactionStore{}
	svc := NewLedgerService(fakeTxRunner{}, balances, transactions, 1000, 5000)

	err := svc.Debit(context.Background(), "user-1", 500, "lead-1")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if balances.available != 100 {
		t.Fatalf("balance should be untouched, got %d", balances.available)
	}
	if len(transactions.created) != 0 {
		t.Fatalf("no transaction should be written")
	}
}

func TestLedgerDebitRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewLedgerService(fakeTxRunner{}, &stubBalanceStore{}, &stubTransactionStore{}, 1000, 5000)
	for _, amount := range []int64{0, -100} {
		if err := svc.Debit(context.Background(), "user-1", amount, "lead-1"); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

// Two racing debits against a balance that covers only one: exactly one
// wins, and the loser gets the insufficient-funds rejection.
func TestLedgerConcurrentDebitsNeverOverdraw(t *testing.T) {
	balances := &stubBalanceStore{available: 500}
	transactions := &stubTransactionStore{}
	svc := NewLedgerService(fakeTxRunner{}, balances, transactions, 1000, 5000)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Debit(context.Background(), "user-1", 500, "lead-x")
		}()
	}
	wg.Wait()
	close(results)

	var wins, rejections int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInsufficientFunds):
			rejections++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning debit, got %d", wins)
	}
	if rejections != attempts-1 {
		t.Fatalf("expected %d rejections, got %d", attempts-1, rejections)
	}
	if balances.available != 0 {
		t.Fatalf("balance should be exactly zero, got %d", balances.available)
	}
	if len(transactions.created) != 1 {
		t.Fatalf("expected one deduction, got %d", len(transactions.created))
	}
}

func TestLedgerCreditMarksRechargeTypes(t *testing.T) {
	cases := []struct {
		txType string
		mark   bool
	}{
		{store.TxAutoRecharge, true},
		{store.TxPaymentRecharge, true},
		{store.TxDeduction, false},
	}
	for _, tc := range cases {
		balances := &stubBalanceStore{}
		transactions := &stubTransactionStore{}
		svc := NewLedgerService(fakeTxRunner{}, balances, transactions, 1000, 5000)
		if err := svc.Credit(context.Background(), "user-1", 5000, tc.txType, "ref-1", "test"); err != nil {
			t.Fatalf("%s: expected success, got %v", tc.txType, err)
		}
		if len(balances.marks) != 1 || balances.marks[0] != tc.mark {
			t.Fatalf("%s: expected markRecharge=%v", tc.txType, tc.mark)
		}
		if transactions.created[0].AmountCents != 5000 {
			t.Fatalf("%s: credit amount should stay positive", tc.txType)
		}
	}
}

func TestLedgerCreditRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewLedgerService(fakeTxRunner{}, &stubBalanceStore{}, &stubTransactionStore{}, 1000, 5000)
	if err := svc.Credit(context.Background(), "user-1", 0, store.TxPaymentRecharge, "ref", "test"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestLedgerGetBalanceEnsuresRow(t *testing.T) {
	balances := &stubBalanceStore{balance: store.Balance{UserID: "user-1", AvailableCents: 250}}
	svc := NewLedgerService(fakeTxRunner{}, balances, &stubTransactionStore{}, 1000, 5000)
	balance, err := svc.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balance.AvailableCents != 250 {
		t.Fatalf("unexpected balance %d", balance.AvailableCents)
	}
}
