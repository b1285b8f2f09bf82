// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents one wholesale style. Code is the style number buyers
// and bulk stock uploads reference. A product either carries explicit
// color/size options or none at all, in which case its stock is tracked on
// a single aggregate variant.
type Product struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Code             string         `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Name             string         `gorm:"not null;size:255" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	Price            int64          `gorm:"not null" json:"price"` // Wholesale unit price in cents
	MinOrderQuantity int            `gorm:"default:1" json:"min_order_quantity"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Options []ProductOption `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"options,omitempty"`
}

// ProductOption is one sellable color/size combination of a product.
type ProductOption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_option" json:"product_id"`
	Color     string    `gorm:"size:50;uniqueIndex:idx_product_option" json:"color"`
	Size      string    `gorm:"size:50;uniqueIndex:idx_product_option" json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string       { return "products" }
func (ProductOption) TableName() string { return "product_options" }

// Business methods for Product

// HasOptions reports whether stock is tracked per color/size combination.
func (p *Product) HasOptions() bool {
	return len(p.Options) > 0
}

// HasOption reports whether the given color/size pair is sellable. A
// product without options accepts only the empty pair.
func (p *Product) HasOption(color, size string) bool {
	if !p.HasOptions() {
		return color == "" && size == ""
	}
	for _, o := range p.Options {
		if o.Color == color && o.Size == size {
			return true
		}
	}
	return false
}

// MeetsMinOrder reports whether a requested quantity satisfies the style's
// minimum order quantity. A zero or unset minimum accepts any positive
// quantity.
func (p *Product) MeetsMinOrder(quantity int) bool {
	if p.MinOrderQuantity <= 0 {
		return quantity > 0
	}
	return quantity >= p.MinOrderQuantity
}

// GetFormattedPrice returns unit price as float
func (p *Product) GetFormattedPrice() float64 {
	return float64(p.Price) / 100
}
