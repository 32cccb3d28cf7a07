package models

import "time"

// ServiceLog tracks the work that keeps a table OUT_OF_SERVICE (bussing,
// cleaning, repairs). FinishedAt nil means the work is still open.
type ServiceLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TableID    uint       `gorm:"not null;index" json:"table_id"`
	Table      Table      `gorm:"foreignKey:TableID" json:"-"`
	StaffID    *uint      `gorm:"index" json:"staff_id,omitempty"`
	Staff      *User      `gorm:"foreignKey:StaffID" json:"-"`
	Reason     string     `gorm:"type:varchar(255)" json:"reason,omitempty"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
