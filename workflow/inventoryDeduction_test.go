package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/shopspring/decimal"
)

func trackedProduct(id int, name string, stock int64, tracked bool) *models.Product {
	return &models.Product{
		ID:             id,
		Name:           name,
		StockQty:       decimal.NewFromInt(stock),
		TrackInventory: &tracked,
	}
}

func TestClampDeduction(t *testing.T) {
	cases := []struct {
		name    string
		current int64
		qty     int64
		want    int64
	}{
		{"normal deduction", 10, 4, 6},
		{"exact depletion", 5, 5, 0},
		{"oversell clamps at zero", 5, 8, 0},
		{"already empty", 0, 3, 0},
		{"zero quantity", 7, 0, 7},
	}
	for _, c := range cases {
		got := clampDeduction(decimal.NewFromInt(c.current), decimal.NewFromInt(c.qty))
		if !got.Equal(decimal.NewFromInt(c.want)) {
			t.Fatalf("%s: expected %d, got %s", c.name, c.want, got)
		}
	}
}

func TestClampDeduction_FractionalQuantities(t *testing.T) {
	current := decimal.RequireFromString("2.5")
	qty := decimal.RequireFromString("1.75")
	if got := clampDeduction(current, qty); !got.Equal(decimal.RequireFromString("0.75")) {
		t.Fatalf("expected 0.75, got %s", got)
	}

	qty = decimal.RequireFromString("3.25")
	if got := clampDeduction(current, qty); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
}

func TestPlanStockDeduction_OversellRecordsFullDelta(t *testing.T) {
	// Stock 5, order for 8: the row clamps at zero while the trail keeps the
	// full requested delta, so the shortfall of 3 stays auditable.
	product := trackedProduct(7, "Widget", 5, true)

	plan, ok := planStockDeduction(product, decimal.NewFromInt(8), 42, "ORD-0042")
	if !ok {
		t.Fatalf("expected a deduction plan")
	}
	if !plan.NextStock.IsZero() {
		t.Fatalf("expected stock clamped to 0, got %s", plan.NextStock)
	}
	if !plan.Trail.Qty.Equal(decimal.NewFromInt(-8)) {
		t.Fatalf("expected trail delta -8, got %s", plan.Trail.Qty)
	}
	if !plan.Trail.ResultingStock.IsZero() {
		t.Fatalf("expected trail resulting stock 0, got %s", plan.Trail.ResultingStock)
	}
	if plan.Trail.ProductId != 7 || plan.Trail.OrderId != 42 {
		t.Fatalf("unexpected trail references: %+v", plan.Trail)
	}
	if plan.Trail.Reason != models.StockTrailReasonSale {
		t.Fatalf("expected Sale reason, got %s", plan.Trail.Reason)
	}
	if plan.Trail.Notes != "Sale of Widget for order ORD-0042" {
		t.Fatalf("unexpected trail notes: %s", plan.Trail.Notes)
	}
}

func TestPlanStockDeduction_NormalSale(t *testing.T) {
	product := trackedProduct(3, "Gadget", 10, true)

	plan, ok := planStockDeduction(product, decimal.NewFromInt(4), 9, "ORD-0009")
	if !ok {
		t.Fatalf("expected a deduction plan")
	}
	if !plan.NextStock.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected stock 6, got %s", plan.NextStock)
	}
	if !plan.Trail.Qty.Equal(decimal.NewFromInt(-4)) {
		t.Fatalf("expected trail delta -4, got %s", plan.Trail.Qty)
	}
	if !plan.Trail.ResultingStock.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected trail resulting stock 6, got %s", plan.Trail.ResultingStock)
	}
}

func TestPlanStockDeduction_Skips(t *testing.T) {
	if _, ok := planStockDeduction(trackedProduct(1, "Service", 10, false), decimal.NewFromInt(2), 1, "ORD-0001"); ok {
		t.Fatalf("untracked product must not produce a plan")
	}
	if _, ok := planStockDeduction(trackedProduct(2, "Widget", 10, true), decimal.Zero, 1, "ORD-0001"); ok {
		t.Fatalf("zero quantity must not produce a plan")
	}
	if _, ok := planStockDeduction(trackedProduct(2, "Widget", 10, true), decimal.NewFromInt(-1), 1, "ORD-0001"); ok {
		t.Fatalf("negative quantity must not produce a plan")
	}
}
