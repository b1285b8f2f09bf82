// internal/domain/company/entity.go
package company

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role represents a company account role
type Role string

const (
	RoleBuyer Role = "buyer"
	RoleAdmin Role = "admin"
)

// Company represents a wholesale buyer account. Admin accounts for the
// selling side use the same table with RoleAdmin.
type Company struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Code         string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string         `gorm:"not null;size:255" json:"-"`
	Role         Role           `gorm:"not null;default:'buyer'" json:"role"`
	ContactName  string         `gorm:"size:255" json:"contact_name"`
	Phone        string         `gorm:"size:50" json:"phone"`
	Address      string         `gorm:"type:text" json:"address"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Company) TableName() string { return "companies" }

// GenerateCode generates a unique account code
func (c *Company) GenerateCode() string {
	return fmt.Sprintf("CMP-%05d", c.ID)
}

// IsAdmin reports whether the account can use admin endpoints.
func (c *Company) IsAdmin() bool {
	return c.Role == RoleAdmin
}
