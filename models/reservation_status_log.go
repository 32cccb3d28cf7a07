package models

import "time"

// ReservationStatusLog is the audit trail row written for every status
// transition, including the ones performed by the sweeper.
type ReservationStatusLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ReservationID uint              `gorm:"not null;index" json:"reservation_id"`
	Reservation   Reservation       `gorm:"foreignKey:ReservationID" json:"-"`
	FromStatus    ReservationStatus `gorm:"type:varchar(30);not null" json:"from_status"`
	ToStatus      ReservationStatus `gorm:"type:varchar(30);not null" json:"to_status"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	PerformedBy   string            `gorm:"type:varchar(255)" json:"performed_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
