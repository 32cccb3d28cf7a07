package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReservationType distinguishes a single-table booking from bookings that
// block the whole venue.
type ReservationType string

const (
	ReservationTypeTable          ReservationType = "TABLE"
	ReservationTypeFullRestaurant ReservationType = "FULL_RESTAURANT"
	ReservationTypePrivateEvent   ReservationType = "PRIVATE_EVENT"
)

// DefaultReservationDuration is assumed when a booking does not specify one.
const DefaultReservationDuration = 120 * time.Minute

type Reservation struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ReservationNumber string            `gorm:"type:varchar(50);unique;not null" json:"reservation_number"`
	RestaurantID      uint              `gorm:"not null;index" json:"restaurant_id"`
	Restaurant        Restaurant        `gorm:"foreignKey:RestaurantID" json:"-"`
	CustomerID        uint              `gorm:"not null;index" json:"customer_id"`
	Customer          Customer          `gorm:"foreignKey:CustomerID" json:"customer"`
	TableID           *uint             `gorm:"index" json:"table_id,omitempty"`
	Table             *Table            `gorm:"foreignKey:TableID" json:"table,omitempty"`
	Type              ReservationType   `gorm:"type:varchar(30);not null;default:'TABLE'" json:"type"`
	Date              string            `gorm:"type:varchar(10);not null;index" json:"date"` // YYYY-MM-DD
	Time              string            `gorm:"type:varchar(5);not null" json:"time"`        // HH:MM
	DurationMinutes   int               `gorm:"not null;default:120" json:"duration_minutes"`
	GuestCount        int               `gorm:"not null" json:"guest_count"`
	Status            ReservationStatus `gorm:"type:varchar(30);not null;default:'PENDING'" json:"status"`
	SpecialRequests   string            `gorm:"type:text" json:"special_requests,omitempty"`
	CancellationReason string           `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CheckedInAt       *time.Time        `json:"checked_in_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Version           uint              `gorm:"not null;default:0" json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewReservationNumber builds a human-readable booking reference, e.g.
// RSV-20260830-7F3A21.
func NewReservationNumber(date string) string {
	short := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("RSV-%s-%s", strings.ReplaceAll(date, "-", ""), short)
}

// StartsAt resolves the reservation's starting instant in loc.
func (r *Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
}

// Duration returns the booked duration, falling back to the default.
func (r *Reservation) Duration() time.Duration {
	if r.DurationMinutes <= 0 {
		return DefaultReservationDuration
	}
	return time.Duration(r.DurationMinutes) * time.Minute
}

// Interval returns the half-open [start, end) window the reservation holds
// its table for.
func (r *Reservation) Interval(loc *time.Location) (start, end time.Time, err error) {
	start, err = r.StartsAt(loc)
	if err != nil {
		return
	}
	end = start.Add(r.Duration())
	return
}

// BlocksWholeRestaurant reports whether the reservation takes every table
// regardless of assignment.
func (r *Reservation) BlocksWholeRestaurant() bool {
	return r.Type == ReservationTypeFullRestaurant || r.Type == ReservationTypePrivateEvent
}

// ParseReservationType validates a wire value.
func ParseReservationType(raw string) (ReservationType, error) {
	switch t := ReservationType(raw); t {
	case ReservationTypeTable, ReservationTypeFullRestaurant, ReservationTypePrivateEvent:
		return t, nil
	}
	return "", fmt.Errorf("unknown reservation type %q", raw)
}
