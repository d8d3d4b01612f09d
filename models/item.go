package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item represents an inventory row owned by exactly one warehouse. Quantity
// never goes negative; it is mutated only under a row lock during order
// creation/cancellation or a manual restock.
type Item struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	WarehouseID uint            `gorm:"not null;index" json:"warehouse_id"` // foreign key to warehouses table
	Warehouse   Warehouse       `gorm:"foreignKey:WarehouseID" json:"-"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	SKU         string          `gorm:"uniqueIndex;not null" json:"sku"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}
