package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is created by order intake. The engine only ever writes its
// delivery-assignment fields and the inventory-adjustment marker; everything
// else belongs to the upstream collaborator.
type Order struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderNumber   string          `gorm:"size:255;not null" json:"order_number" binding:"required"`
	Source        string          `gorm:"size:100" json:"source"`
	CurrentStatus OrderStatus     `gorm:"type:enum('Confirmed','Shipped','Delivered','Cancelled');not null;default:'Confirmed'" json:"current_status"`
	OrderDate     time.Time       `gorm:"index;not null" json:"order_date" binding:"required"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`

	// Delivery assignment (written once by the delivery-assignment handler).
	DeliveryAgentId    *int       `gorm:"index" json:"delivery_agent_id"`
	DeliveryAssignedAt *time.Time `json:"delivery_assigned_at"`

	// Inventory adjustment marker (written once by the inventory handler).
	InventoryAdjusted   bool       `gorm:"not null;default:false" json:"inventory_adjusted"`
	InventoryAdjustedAt *time.Time `json:"inventory_adjusted_at"`

	Details   []OrderDetail `json:"order_details" validate:"required,dive,required"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderDetail struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id" binding:"required"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrderWithDetails re-reads the authoritative order row inside the
// caller's transaction. Returns ErrRecordNotFound via gorm when missing.
func GetOrderWithDetails(tx *gorm.DB, orderId int) (*Order, error) {
	var order Order
	if err := tx.Preload("Details").Where("id = ?", orderId).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
