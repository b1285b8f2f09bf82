// internal/domain/stock/entity.go
package stock

import (
	"time"

	"gorm.io/gorm"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeAdjustment      MovementType = "adjustment"        // Manual or bulk-upload physical stock change
	MovementTypeOrderAllocation MovementType = "order_allocation"  // Incremental FIFO grant
	MovementTypeReallocation    MovementType = "reallocation"      // Net re-grant after a reset-and-refill pass
	MovementTypeSampleReturn    MovementType = "sample_return"     // Sample came back into sellable stock
	MovementTypeSampleReject    MovementType = "sample_reject"     // Rejected sample returned to stock
	MovementTypeFulfillment     MovementType = "order_fulfillment" // Shipped order's units left physical stock
)

// IsValid reports whether the movement type is one the ledger accepts.
func (m MovementType) IsValid() bool {
	switch m {
	case MovementTypeAdjustment, MovementTypeOrderAllocation, MovementTypeReallocation,
		MovementTypeSampleReturn, MovementTypeSampleReject, MovementTypeFulfillment:
		return true
	}
	return false
}

// VariantStock tracks physical and allocated units for one
// (product, color, size) combination. A product without variant options
// carries a single row with empty color and size.
//
// AvailableStock is derived, never authoritative: it is recomputed from the
// other two on every write via the Before hooks.
type VariantStock struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ProductID      uint   `gorm:"not null;uniqueIndex:idx_variant_key" json:"product_id"`
	Color          string `gorm:"size:50;uniqueIndex:idx_variant_key" json:"color"`
	Size           string `gorm:"size:50;uniqueIndex:idx_variant_key" json:"size"`
	PhysicalStock  int    `gorm:"not null;default:0" json:"physical_stock"`
	AllocatedStock int    `gorm:"not null;default:0" json:"allocated_stock"`
	AvailableStock int    `gorm:"not null;default:0" json:"available_stock"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StockMovement is an append-only record of one ledger mutation. Rows are
// written in the same transaction as the stock change they describe and are
// never updated or deleted; replaying them in created_at order reconstructs
// allocated stock from zero.
type StockMovement struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	ProductID        uint         `gorm:"not null;index:idx_movement_replay" json:"product_id"`
	Color            string       `gorm:"size:50" json:"color"`
	Size             string       `gorm:"size:50" json:"size"`
	MovementType     MovementType `gorm:"not null" json:"movement_type"`
	Quantity         int          `gorm:"not null" json:"quantity"` // Signed effective delta
	PreviousPhysical int          `gorm:"not null" json:"previous_physical"`
	NewPhysical      int          `gorm:"not null" json:"new_physical"`
	ReferenceType    string       `gorm:"size:50" json:"reference_type"` // "order", "bulk_upload", etc.
	ReferenceID      uint         `json:"reference_id"`
	Reason           string       `gorm:"type:text" json:"reason"`
	CreatedBy        uint         `gorm:"index" json:"created_by"`
	CreatedAt        time.Time    `gorm:"index:idx_movement_replay" json:"created_at"`
}

// TableName overrides
func (VariantStock) TableName() string  { return "variant_stocks" }
func (StockMovement) TableName() string { return "stock_movements" }

// BeforeCreate hook to recompute available stock
func (v *VariantStock) BeforeCreate(tx *gorm.DB) error {
	v.AvailableStock = clampFloor(v.PhysicalStock - v.AllocatedStock)
	return nil
}

// BeforeUpdate hook to recompute available stock
func (v *VariantStock) BeforeUpdate(tx *gorm.DB) error {
	v.AvailableStock = clampFloor(v.PhysicalStock - v.AllocatedStock)
	return nil
}

// HasAvailable reports whether the variant can take on new demand.
func (v *VariantStock) HasAvailable() bool {
	return v.AvailableStock > 0
}

// Key returns the lock key for the variant
func (v *VariantStock) Key() string {
	return variantKey(v.ProductID, v.Color, v.Size)
}
