package models

import (
	"time"
)

// User represents a participant identity. Identity lifecycle is owned by the
// external user-management service; this table mirrors the id and display
// name so payout records can carry a readable name.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
