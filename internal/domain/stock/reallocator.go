// internal/domain/stock/reallocator.go
package stock

import (
	"fmt"

	"github.com/your-org/wholesale-backend/internal/domain/order"
)

// REALLOCATOR (reset and refill)
//
// Runs whenever physical stock shrinks or is set to an absolute value:
// every non-terminal item for the variant is reset to zero shipped quantity
// and the whole queue is refilled from physical stock. Diffing old against
// new allocation on shrink is error-prone across interacting orders; a full
// reset-and-refill is idempotent and trivially keeps allocated within
// physical. Resets emit no movement rows; only the net re-grants do.

// ReallocateVariant runs one reset-and-refill pass for a variant.
func (s *Service) ReallocateVariant(productID uint, color, size string, actor uint) (*AllocationReport, error) {
	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.reallocateVariantLocked(productID, color, size, actor)
}

func (s *Service) reallocateVariantLocked(productID uint, color, size string, actor uint) (*AllocationReport, error) {
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

	// Full non-terminal set, granted or not: the refill starts from zero.
	demands, err := s.loadDemandsTx(tx, productID, color, size, false)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if len(demands) > 0 {
		itemIDs := make([]uint, 0, len(demands))
		for _, d := range demands {
			itemIDs = append(itemIDs, d.OrderItemID)
		}
		if err := tx.Model(&order.OrderItem{}).
			Where("id IN ?", itemIDs).
			Update("shipped_quantity", 0).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to reset shipped quantities: %w", err)
		}
	}

	// Refill against physical stock, not available: allocation restarts
	// from an empty slate.
	grants, _ := fillForward(variant.PhysicalStock, resetShipped(demands))

	if err := s.applyGrantsTx(tx, variant, grants, MovementTypeReallocation, actor); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.finishPassTx(tx, variant, demands); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit reallocation pass: %w", err)
	}

	report := buildReport(variant, MovementTypeReallocation, demands, grants)

	s.log.WithFields(map[string]interface{}{
		"product_id": productID,
		"color":      color,
		"size":       size,
		"granted":    report.GrantedTotal,
		"orders":     len(report.Orders),
	}).Info("Reallocation pass completed")
	s.publishEvent(RoutingKeyStockAllocated, variant, MovementTypeReallocation, -report.GrantedTotal, len(report.Orders))

	return report, nil
}

// ReallocateProduct runs reset-and-refill for every variant of a product
// under the union of the product's variant locks, so a concurrent
// single-variant pass can never interleave with the product-wide one.
func (s *Service) ReallocateProduct(productID uint, actor uint) ([]AllocationReport, error) {
	var variants []VariantStock
	if err := s.db.Where("product_id = ?", productID).Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to load product variants: %w", err)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: product %d", ErrVariantNotFound, productID)
	}

	keys := make([]string, 0, len(variants))
	for _, v := range variants {
		keys = append(keys, v.Key())
	}

	release, err := s.locks.Lock(keys...)
	if err != nil {
		return nil, fmt.Errorf("%w: product %d", ErrLockTimeout, productID)
	}
	defer release()

	reports := make([]AllocationReport, 0, len(variants))
	for _, v := range variants {
		report, err := s.reallocateVariantLocked(v.ProductID, v.Color, v.Size, actor)
		if err != nil {
			return nil, fmt.Errorf("reallocation failed for variant (%s/%s): %w", v.Color, v.Size, err)
		}
		reports = append(reports, *report)
	}

	return reports, nil
}
