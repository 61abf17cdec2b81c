package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/shopspring/decimal"
)

func openCredit(id int, balance int64) models.SupplierCredit {
	return models.SupplierCredit{
		ID:               id,
		SupplierId:       1,
		CurrentStatus:    models.SupplierCreditStatusOpen,
		RemainingBalance: decimal.NewFromInt(balance),
	}
}

func TestAllocateCredits_SmallestBalanceFirst(t *testing.T) {
	// Credits of 50, 120 and 30 against a bill needing 90: the 30 closes
	// fully, then the 50, then 10 is carved from the 120 leaving 110.
	credits := []models.SupplierCredit{
		openCredit(3, 30),
		openCredit(1, 50),
		openCredit(2, 120),
	}

	allocations := allocateCredits(decimal.NewFromInt(90), credits)

	if len(allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocations))
	}
	expected := []struct {
		creditId int
		amount   int64
	}{
		{3, 30},
		{1, 50},
		{2, 10},
	}
	for i, want := range expected {
		if allocations[i].CreditId != want.creditId {
			t.Fatalf("allocation %d: expected credit %d, got %d", i, want.creditId, allocations[i].CreditId)
		}
		if !allocations[i].Amount.Equal(decimal.NewFromInt(want.amount)) {
			t.Fatalf("allocation %d: expected amount %d, got %s", i, want.amount, allocations[i].Amount)
		}
	}
}

func TestAllocateCredits_StopsWhenCovered(t *testing.T) {
	credits := []models.SupplierCredit{
		openCredit(1, 40),
		openCredit(2, 60),
		openCredit(3, 100),
	}

	allocations := allocateCredits(decimal.NewFromInt(40), credits)

	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}
	if allocations[0].CreditId != 1 || !allocations[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected allocation: %+v", allocations[0])
	}
}

func TestAllocateCredits_CreditsExhausted(t *testing.T) {
	credits := []models.SupplierCredit{
		openCredit(1, 30),
		openCredit(2, 50),
	}

	allocations := allocateCredits(decimal.NewFromInt(200), credits)

	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	if !total.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected 80 applied in total, got %s", total)
	}
}

func TestAllocateCredits_SkipsEmptyCredits(t *testing.T) {
	credits := []models.SupplierCredit{
		openCredit(1, 0),
		openCredit(2, 25),
	}

	allocations := allocateCredits(decimal.NewFromInt(10), credits)

	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}
	if allocations[0].CreditId != 2 {
		t.Fatalf("expected credit 2, got %d", allocations[0].CreditId)
	}
}

func TestAllocateCredits_NothingToApply(t *testing.T) {
	credits := []models.SupplierCredit{openCredit(1, 30)}

	if got := allocateCredits(decimal.Zero, credits); len(got) != 0 {
		t.Fatalf("expected no allocations, got %d", len(got))
	}
	if got := allocateCredits(decimal.NewFromInt(-5), credits); len(got) != 0 {
		t.Fatalf("expected no allocations for negative remaining, got %d", len(got))
	}
}

func TestAllocateCredits_IdempotentOnReplay(t *testing.T) {
	// After a full run the recomputed remaining is zero, so a replayed event
	// must allocate nothing even though open credits still exist.
	credits := []models.SupplierCredit{openCredit(2, 110)}

	allocations := allocateCredits(decimal.Zero, credits)
	if len(allocations) != 0 {
		t.Fatalf("replay should be a no-op, got %d allocations", len(allocations))
	}
}
