// internal/domain/stock/ledger.go
package stock

import (
	"fmt"

	"gorm.io/gorm"
)

// STOCK LEDGER
//
// The ledger owns physical_stock. Every mutation writes exactly one
// StockMovement row in the same transaction; if the movement insert fails
// the stock change rolls back with it.

// StockLevel is a consistent read of a variant's three quantities.
type StockLevel struct {
	ProductID      uint   `json:"product_id"`
	Color          string `json:"color"`
	Size           string `json:"size"`
	PhysicalStock  int    `json:"physical_stock"`
	AllocatedStock int    `json:"allocated_stock"`
	AvailableStock int    `json:"available_stock"`
}

// AdjustResult describes one applied physical-stock change.
type AdjustResult struct {
	Variant        *VariantStock  `json:"variant"`
	RequestedDelta int            `json:"requested_delta"`
	EffectiveDelta int            `json:"effective_delta"`
	Movement       *StockMovement `json:"movement"`
}

// ReadAvailable returns physical, allocated and available stock as one
// consistent snapshot: the variant lock keeps the read from interleaving
// with a concurrent allocation pass.
func (s *Service) ReadAvailable(productID uint, color, size string) (*StockLevel, error) {
	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return nil, err
	}
	defer release()

	variant, err := s.loadVariantTx(s.db, productID, color, size)
	if err != nil {
		return nil, err
	}

	return &StockLevel{
		ProductID:      variant.ProductID,
		Color:          variant.Color,
		Size:           variant.Size,
		PhysicalStock:  variant.PhysicalStock,
		AllocatedStock: variant.AllocatedStock,
		AvailableStock: variant.AvailableStock,
	}, nil
}

// AdjustPhysical applies a signed delta to a variant's physical stock,
// flooring the result at zero. The movement records the effective delta
// actually applied, which may be smaller in magnitude than the request when
// the floor clamps it; callers that need an exact outcome use
// SetPhysicalAbsolute instead.
//
// This is the bare ledger write. It does not run allocation; composed
// operations (AdjustStock, SetStock, RecordSampleReturn) do that as an
// explicit follow-up step.
func (s *Service) AdjustPhysical(productID uint, color, size string, delta int, movementType MovementType, reason, referenceType string, referenceID, actor uint) (*AdjustResult, error) {
	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.adjustPhysicalLocked(productID, color, size, delta, movementType, reason, referenceType, referenceID, actor)
}

// adjustPhysicalLocked is AdjustPhysical without lock acquisition, for
// composed operations that already hold the variant lock.
func (s *Service) adjustPhysicalLocked(productID uint, color, size string, delta int, movementType MovementType, reason, referenceType string, referenceID, actor uint) (*AdjustResult, error) {
	if !movementType.IsValid() {
		return nil, fmt.Errorf("%w: unknown movement type %q", ErrInvalidAdjustment, movementType)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	variant, err := s.loadVariantTx(tx, productID, color, size)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	previous := variant.PhysicalStock
	variant.PhysicalStock = clampFloor(previous + delta)
	effective := variant.PhysicalStock - previous

	if err := tx.Save(variant).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update physical stock: %w", err)
	}

	// Movement log and stock value are one unit: a failed insert rolls the
	// stock change back.
	movement := &StockMovement{
		ProductID:        productID,
		Color:            color,
		Size:             size,
		MovementType:     movementType,
		Quantity:         effective,
		PreviousPhysical: previous,
		NewPhysical:      variant.PhysicalStock,
		ReferenceType:    referenceType,
		ReferenceID:      referenceID,
		Reason:           reason,
		CreatedBy:        actor,
	}

	if err := tx.Create(movement).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"product_id":      productID,
		"color":           color,
		"size":            size,
		"requested_delta": delta,
		"effective_delta": effective,
		"physical_stock":  variant.PhysicalStock,
	}).Info("Physical stock adjusted")

	s.publishEvent(RoutingKeyStockAdjusted, variant, movementType, effective, 0)

	return &AdjustResult{
		Variant:        variant,
		RequestedDelta: delta,
		EffectiveDelta: effective,
		Movement:       movement,
	}, nil
}

// EnsureVariants creates missing VariantStock rows for a product's option
// combinations with zero stock. Existing rows are left untouched. Called
// when a product is created or edited with inventory options; a product
// without options gets the single implicit aggregate row (empty color and
// size).
func (s *Service) EnsureVariants(productID uint, options []VariantOption) error {
	if len(options) == 0 {
		options = []VariantOption{{}}
	}

	for _, opt := range options {
		var existing VariantStock
		err := s.db.Unscoped().
			Where("product_id = ? AND color = ? AND size = ?", productID, opt.Color, opt.Size).
			First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to check variant stock: %w", err)
		}

		variant := VariantStock{
			ProductID: productID,
			Color:     opt.Color,
			Size:      opt.Size,
		}
		if err := s.db.Create(&variant).Error; err != nil {
			return fmt.Errorf("failed to create variant stock: %w", err)
		}
	}

	return nil
}

// VariantOption is one (color, size) combination of a product
type VariantOption struct {
	Color string `json:"color"`
	Size  string `json:"size"`
}

// GetProductStock returns every variant stock row of a product.
func (s *Service) GetProductStock(productID uint) ([]VariantStock, error) {
	var variants []VariantStock
	if err := s.db.Where("product_id = ?", productID).Order("color ASC, size ASC").Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve product stock: %w", err)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: product %d", ErrVariantNotFound, productID)
	}
	return variants, nil
}

// GetMovements returns a product's movement history in chronological order
// for replay and audit.
func (s *Service) GetMovements(productID uint, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var movements []StockMovement
	if err := s.db.Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}
	return movements, nil
}
