package models

import "time"

// OrderStatus is the dine-in order lifecycle. Orders are opened against an
// occupied table, optionally linked to the reservation that seated it.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "OPEN"
	OrderInKitchen OrderStatus = "IN_KITCHEN"
	OrderServed    OrderStatus = "SERVED"
	OrderClosed    OrderStatus = "CLOSED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderOpen:      {OrderInKitchen, OrderClosed},
	OrderInKitchen: {OrderServed},
	OrderServed:    {OrderClosed},
	OrderClosed:    {},
}

// CanTransitionOrder reports whether cur -> next is a legal order move.
func CanTransitionOrder(cur, next OrderStatus) bool {
	for _, s := range orderTransitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	TableID       uint         `gorm:"not null;index" json:"table_id"`
	Table         Table        `gorm:"foreignKey:TableID" json:"table"`
	ReservationID *uint        `gorm:"index" json:"reservation_id,omitempty"`
	Reservation   *Reservation `gorm:"foreignKey:ReservationID" json:"-"`
	Status        OrderStatus  `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	TotalAmount   float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	OrderItems    []OrderItem  `gorm:"foreignKey:OrderID" json:"order_items"`
}

type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	MenuID    uint      `gorm:"not null" json:"menu_id"`
	Menu      Menu      `gorm:"foreignKey:MenuID" json:"menu"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
