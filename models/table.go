package models

import (
	"time"

	"gorm.io/gorm"
)

type Table struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RestaurantID uint        `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant  `gorm:"foreignKey:RestaurantID" json:"-"`
	TableNumber  string      `gorm:"type:varchar(50);not null" json:"table_number"`
	Capacity     int         `gorm:"not null" json:"capacity"`
	Location     string      `gorm:"type:varchar(255)" json:"location,omitempty"`
	Features     string      `gorm:"type:text" json:"features,omitempty"`
	Status       TableStatus `gorm:"type:varchar(50);not null;default:'AVAILABLE'" json:"status"`
	// Version supports optimistic concurrency: a status update may carry the
	// version it was based on and fails with a conflict when stale.
	Version   uint           `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
