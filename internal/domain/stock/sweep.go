// internal/domain/stock/sweep.go
package stock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/wholesale-backend/internal/domain/order"
)

// GLOBAL SWEEP
//
// A maintenance pass over every variant that still has unmet non-terminal
// demand, re-running the incremental allocator per variant against current
// availability. Unlike the reallocator it never resets standing grants: it
// only tops up demand that earlier, narrower passes left unmet because they
// ran against stale intermediate state. Idempotent, safe to re-run after
// any broad stock event.

// SweepFailure records one variant the sweep could not allocate.
type SweepFailure struct {
	ProductID uint   `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Error     string `json:"error"`
}

// SweepReport summarizes one global sweep.
type SweepReport struct {
	VariantsVisited int                `json:"variants_visited"`
	GrantedTotal    int                `json:"granted_total"`
	OrdersTouched   int                `json:"orders_touched"`
	Reports         []AllocationReport `json:"reports"`
	Failures        []SweepFailure     `json:"failures,omitempty"`
}

// Sweep enumerates every variant with unmet demand under a non-terminal
// order and runs one allocation pass per variant. Failures on individual
// variants are recorded and do not stop the sweep.
func (s *Service) Sweep(actor uint) (*SweepReport, error) {
	var keys []struct {
		ProductID uint
		Color     string
		Size      string
	}

	err := s.db.Table("order_items").
		Select("DISTINCT order_items.product_id, order_items.color, order_items.size").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id IS NOT NULL").
		Where("order_items.quantity > order_items.shipped_quantity").
		Where("orders.status IN ?", order.NonTerminalStatuses).
		Where("orders.deleted_at IS NULL").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate variants with unmet demand: %w", err)
	}

	report := &SweepReport{
		VariantsVisited: len(keys),
		Reports:         make([]AllocationReport, 0, len(keys)),
	}

	for _, key := range keys {
		passReport, err := s.AllocateVariant(key.ProductID, key.Color, key.Size, actor)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{
				ProductID: key.ProductID,
				Color:     key.Color,
				Size:      key.Size,
				Error:     err.Error(),
			})
			continue
		}

		report.GrantedTotal += passReport.GrantedTotal
		report.OrdersTouched += len(passReport.Orders)
		if passReport.GrantedTotal > 0 {
			report.Reports = append(report.Reports, *passReport)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"variants_visited": report.VariantsVisited,
		"granted_total":    report.GrantedTotal,
		"orders_touched":   report.OrdersTouched,
		"failures":         len(report.Failures),
	}).Info("Global sweep completed")

	if s.bus != nil {
		event := SweepEvent{
			EventID:         uuid.New().String(),
			VariantsVisited: report.VariantsVisited,
			GrantedTotal:    report.GrantedTotal,
			OrdersTouched:   report.OrdersTouched,
			Failures:        len(report.Failures),
			Timestamp:       time.Now().UTC(),
		}
		if err := s.bus.Publish(RoutingKeyStockSweepDone, event); err != nil {
			s.log.WithError(err).Warn("Failed to publish sweep event")
		}
	}

	return report, nil
}
