package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order status values. delivered, rejected and cancelled are terminal:
// no transition out of them is permitted, not even for admins.
const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusRejected  = "rejected"
	OrderStatusAssigned  = "assigned"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order represents a shopkeeper's order against a warehouse. TotalAmount is
// computed at creation time from the OrderItem price snapshots and frozen
// thereafter; it is never client-supplied. Orders are never hard-deleted,
// their lifecycle ends in a terminal status.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ShopkeeperID    uint            `gorm:"not null;index" json:"shopkeeper_id"` // foreign key to users table
	Shopkeeper      User            `gorm:"foreignKey:ShopkeeperID" json:"shopkeeper"`
	WarehouseID     uint            `gorm:"not null;index" json:"warehouse_id"` // foreign key to warehouses table
	Warehouse       Warehouse       `gorm:"foreignKey:WarehouseID" json:"-"`
	Status          string          `gorm:"not null;default:'pending';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason,omitempty"` // required when status becomes rejected
	Notes           *string         `gorm:"type:text" json:"notes,omitempty"`
	OrderItems      []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether the order has reached a terminal status.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}
