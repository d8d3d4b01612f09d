package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Delivery status values, derived from the parent order's status.
const (
	DeliveryStatusAssigned  = "assigned"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// Delivery tracks the hand-off of one order to a rider. One delivery per
// order, created at the assign-rider transition.
type Delivery struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;uniqueIndex" json:"order_id"` // one-to-one with orders
	Order       Order           `gorm:"foreignKey:OrderID" json:"-"`
	RiderID     *uint           `gorm:"index" json:"rider_id"` // nullable until a rider is assigned
	Rider       *User           `gorm:"foreignKey:RiderID" json:"rider,omitempty"`
	Status      string          `gorm:"not null;default:'assigned'" json:"status"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	ProofS3Key  *string         `json:"proof_s3_key,omitempty"` // S3 key of the proof-of-delivery photo
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Delivery model
func (Delivery) TableName() string {
	return "deliveries"
}
