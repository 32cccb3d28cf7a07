package models

import "time"

// DepositStatus follows the payment gateway's transaction lifecycle.
type DepositStatus string

const (
	DepositPending   DepositStatus = "PENDING"
	DepositSettled   DepositStatus = "SETTLED"
	DepositExpired   DepositStatus = "EXPIRED"
	DepositCancelled DepositStatus = "CANCELLED"
)

// Deposit is the up-front payment required for full-restaurant and
// private-event bookings. GatewayOrderID is the reference sent to Midtrans.
type Deposit struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ReservationID  uint          `gorm:"not null;uniqueIndex" json:"reservation_id"`
	Reservation    Reservation   `gorm:"foreignKey:ReservationID" json:"-"`
	Amount         float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	GatewayOrderID string        `gorm:"type:varchar(100);unique;not null" json:"gateway_order_id"`
	SnapToken      string        `gorm:"type:varchar(255)" json:"snap_token,omitempty"`
	RedirectURL    string        `gorm:"type:varchar(500)" json:"redirect_url,omitempty"`
	Status         DepositStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	SettledAt      *time.Time    `json:"settled_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
