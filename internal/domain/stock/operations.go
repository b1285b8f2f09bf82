// internal/domain/stock/operations.go
package stock

import (
	"fmt"

	"github.com/your-org/wholesale-backend/internal/domain/order"
)

// COMPOSED OPERATIONS
//
// The endpoints of the engine: each completes its ledger write first, then
// invokes the allocator or reallocator as a separate, named step. Stock
// increases get the incremental allocator; decreases and absolute sets get
// the reallocator, which guarantees allocated never exceeds physical
// without per-operation diffing.

// AdjustStockRequest represents an admin stock adjustment. Exactly one of
// Adjustment (relative) or AbsoluteValue (target) must be set. Color and
// size address a variant; a product without options uses its implicit
// aggregate row (both empty).
type AdjustStockRequest struct {
	ProductID     uint   `json:"product_id" binding:"required"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	Adjustment    *int   `json:"adjustment"`
	AbsoluteValue *int   `json:"absolute_value"`
	Reason        string `json:"reason"`
}

// AdjustStockResult bundles the ledger write with the allocation pass that
// followed it, if one ran.
type AdjustStockResult struct {
	Adjust     *AdjustResult     `json:"adjust"`
	Allocation *AllocationReport `json:"allocation,omitempty"`
}

// AdjustStock applies an admin stock adjustment and the allocation step it
// implies: allocator after an effective increase, reallocator after an
// effective decrease or any absolute set.
func (s *Service) AdjustStock(req *AdjustStockRequest, actor uint) (*AdjustStockResult, error) {
	if req.Adjustment == nil && req.AbsoluteValue == nil {
		return nil, fmt.Errorf("%w: either adjustment or absolute_value is required", ErrInvalidAdjustment)
	}
	if req.Adjustment != nil && req.AbsoluteValue != nil {
		return nil, fmt.Errorf("%w: adjustment and absolute_value cannot be combined", ErrInvalidAdjustment)
	}

	if req.AbsoluteValue != nil {
		return s.SetPhysicalAbsolute(req.ProductID, req.Color, req.Size, *req.AbsoluteValue, req.Reason, "manual_adjustment", 0, actor)
	}

	release, err := s.lockVariant(req.ProductID, req.Color, req.Size)
	if err != nil {
		return nil, err
	}
	defer release()

	adjust, err := s.adjustPhysicalLocked(req.ProductID, req.Color, req.Size, *req.Adjustment, MovementTypeAdjustment, req.Reason, "manual_adjustment", 0, actor)
	if err != nil {
		return nil, err
	}

	result := &AdjustStockResult{Adjust: adjust}

	switch {
	case adjust.EffectiveDelta > 0:
		result.Allocation, err = s.allocateVariantLocked(req.ProductID, req.Color, req.Size, actor)
	case adjust.EffectiveDelta < 0:
		result.Allocation, err = s.reallocateVariantLocked(req.ProductID, req.Color, req.Size, actor)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SetPhysicalAbsolute sets a variant's physical stock to an exact target by
// applying the difference through the ledger, then always reallocates: an
// absolute set may be an increase or the discovery of shrinkage, and the
// reset-and-refill handles both without caring which.
func (s *Service) SetPhysicalAbsolute(productID uint, color, size string, target int, reason, referenceType string, referenceID, actor uint) (*AdjustStockResult, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: absolute stock value cannot be negative, got %d", ErrInvalidAdjustment, target)
	}

	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return nil, err
	}
	defer release()

	variant, err := s.loadVariantTx(s.db, productID, color, size)
	if err != nil {
		return nil, err
	}

	delta := target - variant.PhysicalStock

	adjust, err := s.adjustPhysicalLocked(productID, color, size, delta, MovementTypeAdjustment, reason, referenceType, referenceID, actor)
	if err != nil {
		return nil, err
	}

	allocation, err := s.reallocateVariantLocked(productID, color, size, actor)
	if err != nil {
		return nil, err
	}

	return &AdjustStockResult{
		Adjust:     adjust,
		Allocation: allocation,
	}, nil
}

// BulkStockRow is one resolved row of a bulk stock upload. ProductCode is
// echoed back in the result; resolution to ProductID happens upstream.
type BulkStockRow struct {
	ProductCode         string `json:"product_code"`
	ProductID           uint   `json:"product_id"`
	Color               string `json:"color"`
	Size                string `json:"size"`
	TargetPhysicalStock int    `json:"target_physical_stock"`
}

// BulkStockRowResult reports one processed row.
type BulkStockRowResult struct {
	Row          BulkStockRow      `json:"row"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Reallocation *AllocationReport `json:"reallocation,omitempty"`
}

// BulkStockReport aggregates a whole upload.
type BulkStockReport struct {
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Rows      []BulkStockRowResult `json:"rows"`
	Sweep     *SweepReport         `json:"sweep,omitempty"`
}

// BulkSetStock applies a batch of absolute stock targets row by row, then
// runs a global sweep: per-row reallocation runs against intermediate
// state, and the sweep catches cross-variant demand the narrow passes
// could not see yet. Row failures never abort the batch.
func (s *Service) BulkSetStock(rows []BulkStockRow, actor uint) (*BulkStockReport, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: bulk upload contains no rows", ErrInvalidAdjustment)
	}

	report := &BulkStockReport{
		Processed: len(rows),
		Rows:      make([]BulkStockRowResult, 0, len(rows)),
	}

	for _, row := range rows {
		result, err := s.SetPhysicalAbsolute(row.ProductID, row.Color, row.Size, row.TargetPhysicalStock, "Bulk stock upload", "bulk_upload", 0, actor)
		if err != nil {
			report.Failed++
			report.Rows = append(report.Rows, BulkStockRowResult{
				Row:     row,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		report.Succeeded++
		report.Rows = append(report.Rows, BulkStockRowResult{
			Row:          row,
			Success:      true,
			Reallocation: result.Allocation,
		})
	}

	sweep, err := s.Sweep(actor)
	if err != nil {
		s.log.WithError(err).Warn("Post-upload sweep failed; rows were still applied")
	} else {
		report.Sweep = sweep
	}

	return report, nil
}

// ReleaseOrderShipment settles the ledger after an order ships: the granted
// units leave the building, so physical stock drops by each variant's
// shipped total while the allocation sum is recomputed without the
// now-terminal order. Available stock is unchanged by construction, which
// keeps shipped goods from ever looking newly sellable. Call it once, right
// after the order leaves the allocation queue.
func (s *Service) ReleaseOrderShipment(ord *order.Order, actor uint) error {
	type shipmentKey struct {
		productID uint
		color     string
		size      string
	}

	shipped := make(map[shipmentKey]int)
	keys := make([]shipmentKey, 0)

	for _, item := range ord.Items {
		if !item.IsInventoryLine() || item.ShippedQuantity == 0 {
			continue
		}
		key := shipmentKey{productID: *item.ProductID, color: item.Color, size: item.Size}
		if _, ok := shipped[key]; !ok {
			keys = append(keys, key)
		}
		shipped[key] += item.ShippedQuantity
	}

	for _, key := range keys {
		if err := s.releaseShipmentVariant(key.productID, key.color, key.size, shipped[key], ord, actor); err != nil {
			return err
		}
	}

	return nil
}

// releaseShipmentVariant applies one variant's share of a shipment in a
// single transaction: physical down by the shipped total, allocated
// recomputed, one fulfillment movement.
func (s *Service) releaseShipmentVariant(productID uint, color, size string, quantity int, ord *order.Order, actor uint) error {
	release, err := s.lockVariant(productID, color, size)
	if err != nil {
		return err
	}
	defer release()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	variant, err := s.loadVariantTx(tx, productID, color, size)
	if err != nil {
		tx.Rollback()
		return err
	}

	previous := variant.PhysicalStock
	variant.PhysicalStock = clampFloor(previous - quantity)

	allocated, err := s.sumAllocatedTx(tx, productID, color, size)
	if err != nil {
		tx.Rollback()
		return err
	}
	variant.AllocatedStock = allocated

	if err := tx.Save(variant).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to release shipped stock: %w", err)
	}

	movement := StockMovement{
		ProductID:        productID,
		Color:            color,
		Size:             size,
		MovementType:     MovementTypeFulfillment,
		Quantity:         variant.PhysicalStock - previous,
		PreviousPhysical: previous,
		NewPhysical:      variant.PhysicalStock,
		ReferenceType:    "order",
		ReferenceID:      ord.ID,
		Reason:           fmt.Sprintf("Shipped %d units on order %s", quantity, ord.OrderNumber),
		CreatedBy:        actor,
	}
	if err := tx.Create(&movement).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record fulfillment movement: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit shipment release: %w", err)
	}

	s.publishEvent(RoutingKeyStockAdjusted, variant, MovementTypeFulfillment, variant.PhysicalStock-previous, 1)
	return nil
}

// SampleReturnRequest represents a sample coming back into sellable stock.
type SampleReturnRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Reject    bool   `json:"reject"`
	Reason    string `json:"reason"`
}

// RecordSampleReturn books returned or rejected sample units back into
// physical stock and runs the standard incremental allocation pass for the
// increase. No reallocation: stock only grew.
func (s *Service) RecordSampleReturn(req *SampleReturnRequest, actor uint) (*AdjustStockResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: sample quantity must be positive, got %d", ErrInvalidAdjustment, req.Quantity)
	}

	movementType := MovementTypeSampleReturn
	if req.Reject {
		movementType = MovementTypeSampleReject
	}

	release, err := s.lockVariant(req.ProductID, req.Color, req.Size)
	if err != nil {
		return nil, err
	}
	defer release()

	adjust, err := s.adjustPhysicalLocked(req.ProductID, req.Color, req.Size, req.Quantity, movementType, req.Reason, "sample", 0, actor)
	if err != nil {
		return nil, err
	}

	allocation, err := s.allocateVariantLocked(req.ProductID, req.Color, req.Size, actor)
	if err != nil {
		return nil, err
	}

	s.publishEvent(RoutingKeySampleReturned, adjust.Variant, movementType, adjust.EffectiveDelta, len(allocation.Orders))

	return &AdjustStockResult{
		Adjust:     adjust,
		Allocation: allocation,
	}, nil
}
