package models

import (
	"time"

	"gorm.io/gorm"
)

// DeliveryAgent's active flag belongs to the staff-management UI; the engine
// only increments AssignedOrderCount.
type DeliveryAgent struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	Name               string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone              string    `gorm:"size:50" json:"phone"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	AssignedOrderCount int       `gorm:"not null;default:0" json:"assigned_order_count"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *DeliveryAgent) Active() bool {
	return a.IsActive != nil && *a.IsActive
}

// GetActiveDeliveryAgents returns active agents ordered by load, ties broken
// by id so selection is stable across replays.
func GetActiveDeliveryAgents(tx *gorm.DB) ([]DeliveryAgent, error) {
	var agents []DeliveryAgent
	err := tx.Where("is_active = ?", true).
		Order("assigned_order_count ASC, id ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func GetDeliveryAgentById(tx *gorm.DB, agentId int) (*DeliveryAgent, error) {
	var agent DeliveryAgent
	if err := tx.Where("id = ?", agentId).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}
