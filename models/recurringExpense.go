package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecurringExpenseTemplate describes one recurring obligation. NextOn only
// ever moves forward, and only the recurrence emitter moves it.
type RecurringExpenseTemplate struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProfileName    string          `gorm:"size:100;not null" json:"profile_name" binding:"required"`
	SupplierId     int             `gorm:"index" json:"supplier_id"`
	Category       string          `gorm:"size:100;not null" json:"category" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	RepeatTerms    RecurringTerms  `gorm:"type:enum('D','W','M','Y');not null" json:"repeat_terms" binding:"required"`
	RepeatInterval int             `gorm:"not null;default:1" json:"repeat_interval"`
	NextOn         time.Time       `gorm:"index;not null" json:"next_on" binding:"required"`
	LastEmittedOn  *time.Time      `json:"last_emitted_on"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *RecurringExpenseTemplate) Active() bool {
	return t.IsActive != nil && *t.IsActive
}

// GetDueRecurringTemplates returns active templates whose NextOn is at or
// before now, oldest first so a backlog drains in order.
func GetDueRecurringTemplates(tx *gorm.DB, now time.Time) ([]RecurringExpenseTemplate, error) {
	var templates []RecurringExpenseTemplate
	err := tx.Where("is_active = ? AND next_on <= ?", true, now).
		Order("next_on ASC, id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}
