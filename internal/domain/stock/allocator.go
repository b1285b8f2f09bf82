// internal/domain/stock/allocator.go
package stock

import (
	"fmt"
	"strings"

	"github.com/your-org/wholesale-backend/internal/domain/order"
	"gorm.io/gorm"
)

// ALLOCATOR (incremental, fill forward)
//
// Runs when stock increases or a new order is placed: grants still-unmet
// demand from available stock in strict order-creation order, never touching
// grants that already stand.

// OrderAllocationChange reports one order's allocated quantity before and
// after a pass, for operator-facing responses.
type OrderAllocationChange struct {
	OrderID         uint   `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	AllocatedBefore int    `json:"allocated_before"`
	AllocatedAfter  int    `json:"allocated_after"`
}

// AllocationReport describes one completed allocation or reallocation pass
// for a single variant.
type AllocationReport struct {
	ProductID      uint                    `json:"product_id"`
	Color          string                  `json:"color"`
	Size           string                  `json:"size"`
	MovementType   MovementType            `json:"movement_type"`
	PhysicalStock  int                     `json:"physical_stock"`
	AllocatedStock int                     `json:"allocated_stock"`
	AvailableStock int                     `json:"available_stock"`
	GrantedTotal   int                     `json:"granted_total"`
	Grants         []Grant                 `json:"grants"`
	Orders         []OrderAllocationChange `json:"orders"`
}

// AllocateVariant runs one incremental allocation pass for a variant.
// Idempotent against a stable stock snapshot: with no unmet demand or no
// available stock it changes nothing.
func (s *Service) AllocateVariant(productID uint, color, size string, actor uint) (*AllocationReport, error) {
	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.allocateVariantLocked(productID, color, size, actor)
}

func (s *Service) allocateVariantLocked(productID uint, color, size string, actor uint) (*AllocationReport, error) {
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

	// The persisted totals can lag the demand set: a cancelled order's
	// grants leave the allocation sum before any pass runs. The pool is
	// therefore recomputed from the live item set, never taken on faith.
	allocated, err := s.sumAllocatedTx(tx, productID, color, size)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	variant.AllocatedStock = allocated
	variant.AvailableStock = clampFloor(variant.PhysicalStock - allocated)

	demands, err := s.loadDemandsTx(tx, productID, color, size, true)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	grants, _ := fillForward(variant.AvailableStock, demands)

	if err := s.applyGrantsTx(tx, variant, grants, MovementTypeOrderAllocation, actor); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.finishPassTx(tx, variant, demands); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit allocation pass: %w", err)
	}

	report := buildReport(variant, MovementTypeOrderAllocation, demands, grants)

	if report.GrantedTotal > 0 {
		s.log.WithFields(map[string]interface{}{
			"product_id": productID,
			"color":      color,
			"size":       size,
			"granted":    report.GrantedTotal,
			"orders":     len(report.Orders),
		}).Info("Allocation pass granted stock")
		s.publishEvent(RoutingKeyStockAllocated, variant, MovementTypeOrderAllocation, -report.GrantedTotal, len(report.Orders))
	}

	return report, nil
}

// applyGrantsTx persists the grants of a pass: each granted item's shipped
// quantity plus one movement row per grant. Any failure aborts the whole
// pass via the surrounding transaction, never leaving a partial grant set;
// the error names the orders the pass never reached so the operator knows
// what a follow-up sweep must cover.
func (s *Service) applyGrantsTx(tx *gorm.DB, variant *VariantStock, grants []Grant, movementType MovementType, actor uint) error {
	for i, g := range grants {
		if err := tx.Model(&order.OrderItem{}).
			Where("id = ?", g.OrderItemID).
			Update("shipped_quantity", g.ShippedAfter).Error; err != nil {
			return fmt.Errorf("failed to grant %d units to order item %d (ungranted orders: %s): %w",
				g.Granted, g.OrderItemID, strings.Join(untouchedOrderNumbers(grants[i:]), ", "), err)
		}

		movement := StockMovement{
			ProductID:        variant.ProductID,
			Color:            variant.Color,
			Size:             variant.Size,
			MovementType:     movementType,
			Quantity:         -g.Granted,
			PreviousPhysical: variant.PhysicalStock,
			NewPhysical:      variant.PhysicalStock,
			ReferenceType:    "order",
			ReferenceID:      g.OrderID,
			Reason:           fmt.Sprintf("Allocated %d units to order %s", g.Granted, g.OrderNumber),
			CreatedBy:        actor,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record allocation movement (ungranted orders: %s): %w",
				strings.Join(untouchedOrderNumbers(grants[i:]), ", "), err)
		}
	}
	return nil
}

// untouchedOrderNumbers lists the distinct order numbers of the given
// grants in queue order.
func untouchedOrderNumbers(grants []Grant) []string {
	seen := make(map[string]bool, len(grants))
	numbers := make([]string, 0, len(grants))
	for _, g := range grants {
		if seen[g.OrderNumber] {
			continue
		}
		seen[g.OrderNumber] = true
		numbers = append(numbers, g.OrderNumber)
	}
	return numbers
}

// finishPassTx recomputes the variant's allocated stock from the full
// non-terminal item set, persists it, and re-projects the status of every
// order in the demand set.
func (s *Service) finishPassTx(tx *gorm.DB, variant *VariantStock, demands []Demand) error {
	allocated, err := s.sumAllocatedTx(tx, variant.ProductID, variant.Color, variant.Size)
	if err != nil {
		return err
	}

	variant.AllocatedStock = allocated
	if err := tx.Save(variant).Error; err != nil {
		return fmt.Errorf("failed to update allocated stock: %w", err)
	}

	return s.projectOrderStatusTx(tx, touchedOrderIDs(demands))
}

// buildReport summarizes a pass. Per-order before totals come from the
// demand snapshot taken at pass start; after totals overlay the grants.
func buildReport(variant *VariantStock, movementType MovementType, original []Demand, grants []Grant) *AllocationReport {
	finalShipped := make(map[uint]int, len(grants))
	granted := 0
	for _, g := range grants {
		finalShipped[g.OrderItemID] = g.ShippedAfter
		granted += g.Granted
	}

	report := &AllocationReport{
		ProductID:      variant.ProductID,
		Color:          variant.Color,
		Size:           variant.Size,
		MovementType:   movementType,
		PhysicalStock:  variant.PhysicalStock,
		AllocatedStock: variant.AllocatedStock,
		AvailableStock: variant.AvailableStock,
		GrantedTotal:   granted,
		Grants:         grants,
		Orders:         buildOrderChanges(original, finalShipped, movementType == MovementTypeReallocation),
	}
	return report
}

// buildOrderChanges aggregates per-item shipped quantities into per-order
// before/after pairs. With reset, items not granted in this pass end at
// zero (the reallocator's reset); otherwise they keep their original value.
func buildOrderChanges(original []Demand, finalShipped map[uint]int, reset bool) []OrderAllocationChange {
	type totals struct {
		number string
		before int
		after  int
	}
	byOrder := make(map[uint]*totals)
	ids := make([]uint, 0)

	for _, d := range original {
		t, ok := byOrder[d.OrderID]
		if !ok {
			t = &totals{number: d.OrderNumber}
			byOrder[d.OrderID] = t
			ids = append(ids, d.OrderID)
		}
		t.before += d.ShippedQuantity

		if after, granted := finalShipped[d.OrderItemID]; granted {
			t.after += after
		} else if !reset {
			t.after += d.ShippedQuantity
		}
	}

	changes := make([]OrderAllocationChange, 0, len(ids))
	for _, id := range ids {
		t := byOrder[id]
		if t.before == t.after {
			continue
		}
		changes = append(changes, OrderAllocationChange{
			OrderID:         id,
			OrderNumber:     t.number,
			AllocatedBefore: t.before,
			AllocatedAfter:  t.after,
		})
	}
	return changes
}
