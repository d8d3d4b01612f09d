package models

import "github.com/shopspring/decimal"

// OrderItem is a line within an order. Price is a snapshot of the item's
// price at order time, not a live reference, so later price changes never
// affect placed orders. Rows are created atomically with their parent order
// and are immutable afterward.
type OrderItem struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	OrderID  uint            `gorm:"not null;index" json:"order_id"` // foreign key to orders table
	Order    Order           `gorm:"foreignKey:OrderID" json:"-"`
	ItemID   uint            `gorm:"not null;index" json:"item_id"` // foreign key to items table
	Item     Item            `gorm:"foreignKey:ItemID" json:"item"`
	Quantity int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
