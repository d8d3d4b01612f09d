package models

import (
	"time"

	"gorm.io/gorm"
)

// Role values assigned by the identity provider. The API trusts the role
// stored on the local user row after provisioning.
const (
	RoleShopkeeper       = "SHOPKEEPER"
	RoleWarehouseManager = "WAREHOUSE_MANAGER"
	RoleRider            = "RIDER"
	RoleAdmin            = "ADMIN"
)

// ValidRoles lists every role the API accepts at user provisioning time.
var ValidRoles = []string{RoleShopkeeper, RoleWarehouseManager, RoleRider, RoleAdmin}

// User represents a user in the system (shopkeeper, warehouse manager, rider or admin)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'SHOPKEEPER'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsValidRole reports whether role is one of the roles the API recognizes.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
