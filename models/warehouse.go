package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Warehouse represents a stock-holding, order-fulfilling location administered
// by a warehouse manager. Orders may only be placed against warehouses that
// are both active and approved.
type Warehouse struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Name       string           `gorm:"not null" json:"name"`
	Address    string           `gorm:"type:text" json:"address"`
	Latitude   *decimal.Decimal `gorm:"type:decimal(9,6)" json:"latitude,omitempty"`
	Longitude  *decimal.Decimal `gorm:"type:decimal(9,6)" json:"longitude,omitempty"`
	AdminID    uint             `gorm:"not null;index" json:"admin_id"` // foreign key to users table
	Admin      User             `gorm:"foreignKey:AdminID" json:"-"`
	IsActive   bool             `gorm:"not null;default:true" json:"is_active"`
	IsApproved bool             `gorm:"not null;default:false" json:"is_approved"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Warehouse model
func (Warehouse) TableName() string {
	return "warehouses"
}

// AcceptsOrders reports whether the warehouse may receive new orders.
func (w *Warehouse) AcceptsOrders() bool {
	return w.IsActive && w.IsApproved
}
