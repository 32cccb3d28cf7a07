package models

import "time"

type Restaurant struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	Owner       User   `gorm:"foreignKey:OwnerID" json:"-"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Address     string `gorm:"type:varchar(500)" json:"address"`
	Phone       string `gorm:"type:varchar(50)" json:"phone"`
	// Opening hours as "HH:MM" local to Timezone; reservations outside the
	// window are rejected.
	OpensAt   string    `gorm:"type:varchar(5);not null;default:'10:00'" json:"opens_at"`
	ClosesAt  string    `gorm:"type:varchar(5);not null;default:'22:00'" json:"closes_at"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
