// internal/domain/stock/allocation.go
package stock

import (
	"sort"
	"time"
)

// Demand is one order item's standing in a variant's priority queue.
type Demand struct {
	OrderItemID     uint
	OrderID         uint
	OrderNumber     string
	OrderCreatedAt  time.Time
	Quantity        int
	ShippedQuantity int
}

// Unmet returns the portion of the demand not yet granted.
func (d Demand) Unmet() int {
	if remaining := d.Quantity - d.ShippedQuantity; remaining > 0 {
		return remaining
	}
	return 0
}

// Grant records one allocation decision for an order item.
type Grant struct {
	OrderItemID   uint   `json:"order_item_id"`
	OrderID       uint   `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	Granted       int    `json:"granted"`
	ShippedBefore int    `json:"shipped_before"`
	ShippedAfter  int    `json:"shipped_after"`
}

// sortByPriority orders demands by parent order creation time, earliest
// first, with order-item id breaking ties. The sort is stable so equal keys
// keep their insertion order.
func sortByPriority(demands []Demand) {
	sort.SliceStable(demands, func(i, j int) bool {
		if !demands[i].OrderCreatedAt.Equal(demands[j].OrderCreatedAt) {
			return demands[i].OrderCreatedAt.Before(demands[j].OrderCreatedAt)
		}
		return demands[i].OrderItemID < demands[j].OrderItemID
	})
}

// fillForward walks the demand queue in priority order and grants each item
// min(unmet, remaining) until the pool is exhausted. Greedy, non-preemptive,
// strictly FIFO: a later order never jumps an earlier one regardless of how
// the quantities would pack.
//
// The input must already be sorted by priority. Items with no unmet demand
// produce no grant. Returns the grants and the undistributed remainder.
func fillForward(available int, demands []Demand) ([]Grant, int) {
	remaining := available
	grants := make([]Grant, 0, len(demands))

	for _, d := range demands {
		if remaining <= 0 {
			break
		}
		unmet := d.Unmet()
		if unmet == 0 {
			continue
		}

		grant := unmet
		if grant > remaining {
			grant = remaining
		}

		grants = append(grants, Grant{
			OrderItemID:   d.OrderItemID,
			OrderID:       d.OrderID,
			OrderNumber:   d.OrderNumber,
			Granted:       grant,
			ShippedBefore: d.ShippedQuantity,
			ShippedAfter:  d.ShippedQuantity + grant,
		})
		remaining -= grant
	}

	return grants, remaining
}

// resetShipped returns a copy of the demand set with every shipped quantity
// zeroed, the starting point of a reset-and-refill pass.
func resetShipped(demands []Demand) []Demand {
	reset := make([]Demand, len(demands))
	copy(reset, demands)
	for i := range reset {
		reset[i].ShippedQuantity = 0
	}
	return reset
}

// clampFloor floors a quantity at zero
func clampFloor(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
