package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderSettings is a single-row settings document maintained by the settings
// UI. The engine only reads it.
type OrderSettings struct {
	ID                     int       `gorm:"primary_key" json:"id"`
	AutoAssignDelivery     *bool     `gorm:"not null;default:true" json:"auto_assign_delivery"`
	DefaultDeliveryAgentId *int      `json:"default_delivery_agent_id"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *OrderSettings) AutoAssign() bool {
	return s.AutoAssignDelivery != nil && *s.AutoAssignDelivery
}

// GetOrderSettings reads the settings row. A missing row means defaults
// (auto-assign on, no default agent).
func GetOrderSettings(tx *gorm.DB) (*OrderSettings, error) {
	var settings OrderSettings
	err := tx.Order("id ASC").First(&settings).Error
	if err != nil {
		if IsRecordNotFound(err) {
			enabled := true
			return &OrderSettings{AutoAssignDelivery: &enabled}, nil
		}
		return nil, err
	}
	return &settings, nil
}
