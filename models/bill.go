package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bill is a supplier payable. The credit-application handler only ever moves
// RemainingBalance downward; payment-recording flows live outside this engine
// and are reconciled through the same balance column.
type Bill struct {
	ID               int             `gorm:"primary_key" json:"id"`
	SupplierId       int             `gorm:"index;not null" json:"supplier_id" binding:"required"`
	BillNumber       string          `gorm:"size:255;not null" json:"bill_number" binding:"required"`
	BillDate         time.Time       `gorm:"index;not null" json:"bill_date" binding:"required"`
	CurrentStatus    BillStatus      `gorm:"type:enum('Open','PartiallyPaid','Paid','Cancelled');not null;default:'Open'" json:"current_status"`
	BillTotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bill_total_amount"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"remaining_balance"`
	// Opt-out flag for automatic credit application; set by the billing UI.
	AutoApplyCredits *bool     `gorm:"not null;default:true" json:"auto_apply_credits"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Bill) AutoApply() bool {
	return b.AutoApplyCredits != nil && *b.AutoApplyCredits
}

// CreditApplication is an append-only child of Bill. The sum of a bill's
// applications is the idempotency anchor for the credit matcher: re-running
// the handler recomputes from these committed rows, never from memory.
type CreditApplication struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BillId           int             `gorm:"index;not null" json:"bill_id" binding:"required"`
	SupplierCreditId int             `gorm:"index;not null" json:"supplier_credit_id" binding:"required"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// GetBillByIdForUpdate reads the bill under a row lock. The create and update
// events for one bill carry different message ids, so idempotency keys alone
// do not serialize them; the lock makes the second transaction wait and
// recompute its applied-sum anchor against committed rows.
func GetBillByIdForUpdate(tx *gorm.DB, billId int) (*Bill, error) {
	var bill Bill
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", billId).First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// SumCreditApplications totals the committed applications for a bill.
func SumCreditApplications(tx *gorm.DB, billId int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.Model(&CreditApplication{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("bill_id = ?", billId).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
