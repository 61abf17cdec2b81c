package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense emitted from a recurring template. ExpenseKey is deterministic
// ("{templateId}_{periodKey}"): at most one row can ever exist per
// (template, period), which is what makes crash-retry of the emitter safe.
type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ExpenseKey  string          `gorm:"size:100;not null;uniqueIndex" json:"expense_key"`
	TemplateId  int             `gorm:"index;not null" json:"template_id"`
	PeriodKey   string          `gorm:"size:20;not null" json:"period_key"`
	SupplierId  int             `gorm:"index" json:"supplier_id"`
	Category    string          `gorm:"size:100;not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ExpenseDate time.Time       `gorm:"index;not null" json:"expense_date"`
	Status      ExpenseStatus   `gorm:"type:enum('Recorded','Void');not null;default:'Recorded'" json:"status"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
