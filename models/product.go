package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Name           string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku            string          `gorm:"size:100;index" json:"sku"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	StockQty       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_qty"`
	TrackInventory *bool           `gorm:"not null;default:true" json:"track_inventory"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Tracked() bool {
	return p.TrackInventory != nil && *p.TrackInventory
}

// GetProductByIdForUpdate reads the product under a row lock. Concurrent
// transactions for different orders can share a product; without the lock
// both would snapshot the same stock and each commit its own stale absolute
// value, losing one deduction.
func GetProductByIdForUpdate(tx *gorm.DB, productId int) (*Product, error) {
	var product Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productId).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
