package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestLeadStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewLeadStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO leads") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 10 {
				t.Fatalf("expected 10 args, got %d", len(args))
			}
			if args[9] != LeadPending {
				t.Fatalf("expected pending status, got %v", args[9])
			}
			return stubResult{rows: 1}, nil
		},
	})
	err := store.Create(ctx, LeadInput{
		ID: "lead-1", UserID: "user-1", ConfigID: "cfg-1", CampaignID: "form-1",
		Platform: PlatformMeta, SourceLeadID: "src-1", Data: "{}",
		QualityScore: 85, CostCents: 500, Status: LeadPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLeadStoreUpdateStatusMissingLead(t *testing.T) {
	ctx := context.Background()
	store := NewLeadStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			return stubResult{rows: 0}, nil
		},
	})
	if err := store.UpdateStatus(ctx, "lead-404", LeadDelivered); err == nil {
		t.Fatalf("expected error for missing lead")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "40001"}) {
		t.Fatalf("40001 is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not unique violations")
	}
}
