package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SupplierCredit is an open credit note balance owed by a supplier.
// RemainingBalance only ever moves downward; the status flips Open -> Closed
// exactly when the balance reaches zero.
type SupplierCredit struct {
	ID               int                  `gorm:"primary_key" json:"id"`
	SupplierId       int                  `gorm:"index;not null" json:"supplier_id" binding:"required"`
	CreditNumber     string               `gorm:"size:255;not null" json:"credit_number" binding:"required"`
	CreditDate       time.Time            `gorm:"index;not null" json:"credit_date" binding:"required"`
	CurrentStatus    SupplierCreditStatus `gorm:"type:enum('Open','Closed');not null;default:'Open'" json:"current_status"`
	TotalAmount      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	RemainingBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"remaining_balance"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOpenSupplierCredits returns a supplier's open credits ordered by
// ascending remaining balance (smallest first), ties broken by id. Applying
// small credits first closes them out fully and keeps the number of
// partially-applied credits low.
//
// Rows are read under a row lock: two bills of the same supplier processed
// concurrently would otherwise both allocate from the same credit balance and
// decrement it twice.
func GetOpenSupplierCredits(tx *gorm.DB, supplierId int) ([]SupplierCredit, error) {
	var credits []SupplierCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND current_status = ?", supplierId, SupplierCreditStatusOpen).
		Order("remaining_balance ASC, id ASC").
		Find(&credits).Error
	if err != nil {
		return nil, err
	}
	return credits, nil
}
