package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockTrailEntry is the append-only audit trail behind every stock change.
// Rows are never updated or deleted; corrections are made by appending a
// compensating entry.
type StockTrailEntry struct {
	ID             int              `gorm:"primary_key" json:"id"`
	ProductId      int              `gorm:"index;not null" json:"product_id" binding:"required"`
	Qty            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"qty"` // signed delta
	Reason         StockTrailReason `gorm:"type:enum('Sale','Adjustment');not null" json:"reason"`
	Notes          string           `gorm:"type:text" json:"notes"`
	OrderId        int              `gorm:"index" json:"order_id"`
	ResultingStock decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"resulting_stock"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
